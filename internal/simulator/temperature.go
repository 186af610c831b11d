package simulator

import (
	"sync/atomic"
	"time"

	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/shm"
)

// FireMode selects how the Temperature Simulator drives a level's
// temperature (spec.md §4.8), controlled by the debug keypress stream.
type FireMode int32

const (
	FireModeOff FireMode = iota
	FireModeFixed
	FireModeROR // rate-of-rise
)

const maxTemperatureCelsius = 99

// TemperatureSimulator writes a new temperature for every level on each
// tick, per the fire mode currently selected for that level.
type TemperatureSimulator struct {
	levels     []*shm.Level
	modes      []atomic.Int32 // FireMode per level
	rorStarted []atomic.Bool  // whether the ROR ramp's first tick has fired, per level
	rng        *RNG
	running    *atomic.Bool
	timeFactor int
	metrics    *observability.Metrics
}

// NewTemperatureSimulator builds a simulator over the given levels, all
// starting in FireModeOff.
func NewTemperatureSimulator(levels []*shm.Level, rng *RNG, running *atomic.Bool, timeFactor int, metrics *observability.Metrics) *TemperatureSimulator {
	return &TemperatureSimulator{
		levels:     levels,
		modes:      make([]atomic.Int32, len(levels)),
		rorStarted: make([]atomic.Bool, len(levels)),
		rng:        rng,
		running:    running,
		timeFactor: timeFactor,
		metrics:    metrics,
	}
}

// SetMode changes the fire mode for one level, called by the keyboard
// handler in response to a debug keypress.
func (t *TemperatureSimulator) SetMode(level int, mode FireMode) {
	t.modes[level].Store(int32(mode))
	if mode != FireModeROR {
		t.rorStarted[level].Store(false)
	}
}

// Run ticks every 2ms (scaled by TIME_FACTOR) until running is false.
func (t *TemperatureSimulator) Run() {
	tick := time.Duration(2*t.timeFactor) * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for t.running.Load() {
		<-ticker.C
		for i, lv := range t.levels {
			t.step(i, lv)
		}
	}
}

func (t *TemperatureSimulator) step(i int, lv *shm.Level) {
	mode := FireMode(t.modes[i].Load())
	current := lv.Temp()

	var next int16
	switch mode {
	case FireModeFixed:
		next = int16(60 + t.rng.Intn(8)) // uniform 60-67
	case FireModeROR:
		if !t.rorStarted[i].Load() {
			next = current + 20
			t.rorStarted[i].Store(true)
		} else {
			next = current + int16(t.rng.IntRange(-1, 2))
		}
	default: // FireModeOff
		next = int16(25 + t.rng.Intn(8)) // uniform 25-32
	}

	if next > maxTemperatureCelsius {
		next = maxTemperatureCelsius
	}
	lv.SetTemp(next)

	if t.metrics != nil {
		t.metrics.LevelTemperatureCelsius.WithLabelValues(levelLabel(i)).Set(float64(next))
	}
}
