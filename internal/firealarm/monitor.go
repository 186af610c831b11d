// Package firealarm implements the Fire Alarm Unit process: one
// Temperature Monitor per level (spec.md §4.9) and the Alarm Arbiter
// with evacuation takeover (spec.md §4.10).
package firealarm

import "github.com/parkctl/parkctl/internal/shm"

const (
	rawWindowSize      = 5
	smoothedWindowSize = 30

	fixedTempThresholdC = 58
	// fixedTempMinSamples is ceil(0.9 * 30) = 27, per spec.md §4.9.
	fixedTempMinSamples = 27
	rorDeltaThresholdC  = 8
)

// Monitor tracks one level's temperature history and decides, each
// tick, whether that level alone is showing fire conditions.
type Monitor struct {
	level    *shm.Level
	raw      *ring
	smoothed *ring
}

// NewMonitor builds a Monitor for one level.
func NewMonitor(level *shm.Level) *Monitor {
	return &Monitor{
		level:    level,
		raw:      newRing(rawWindowSize),
		smoothed: newRing(smoothedWindowSize),
	}
}

// Tick reads the level's current temperature, advances both ring
// buffers, and reports whether this level's smoothed history currently
// satisfies either fire condition. Returns false (not yet "no fire",
// simply "not yet decidable") until the smoothed window is fully
// populated.
func (m *Monitor) Tick() bool {
	m.raw.push(m.level.Temp())
	if m.raw.full() {
		m.smoothed.push(m.raw.median())
	}
	if !m.smoothed.full() {
		return false
	}
	return m.fixedTempFire() || m.rateOfRiseFire()
}

func (m *Monitor) fixedTempFire() bool {
	return m.smoothed.countAtLeast(fixedTempThresholdC) >= fixedTempMinSamples
}

func (m *Monitor) rateOfRiseFire() bool {
	return m.smoothed.last()-m.smoothed.first() >= rorDeltaThresholdC
}
