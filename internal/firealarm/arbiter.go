package firealarm

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/shm"
)

// evacuationLetters is cycled onto every entrance sign during an active
// alarm, one letter per 20ms tick, per spec.md §4.10.
const evacuationLetters = "EVACUATE "

// Arbiter runs one Temperature Monitor per level and mirrors their
// combined decision into shared memory: alarm flags on every level, and
// — on the active edge — forcing every gate open and cycling the
// evacuation message onto every sign.
type Arbiter struct {
	region     *shm.Region
	monitors   []*Monitor
	running    *atomic.Bool
	timeFactor int
	active     bool
	evacStop   chan struct{}
	metrics    *observability.Metrics
	log        *zap.Logger
}

// NewArbiter builds an Arbiter over every level in region.
func NewArbiter(region *shm.Region, running *atomic.Bool, timeFactor int, metrics *observability.Metrics, log *zap.Logger) *Arbiter {
	monitors := make([]*Monitor, region.NumLevels())
	for i := range monitors {
		monitors[i] = NewMonitor(region.Level(i))
	}
	return &Arbiter{
		region:     region,
		monitors:   monitors,
		running:    running,
		timeFactor: timeFactor,
		metrics:    metrics,
		log:        log,
	}
}

// Run ticks every 2ms (scaled) evaluating all level monitors, until
// running becomes false.
func (a *Arbiter) Run() {
	tick := time.Duration(2*a.timeFactor) * time.Millisecond
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for a.running.Load() {
		<-ticker.C
		fire := false
		for _, m := range a.monitors {
			if m.Tick() {
				fire = true
			}
		}
		if fire != a.active {
			a.active = fire
			a.onEdge(fire)
		}
	}
	if a.active {
		a.stopEvacuationSigns()
	}
}

// onEdge fires exactly once per activation/deactivation transition
// (spec.md §4.10: "edge-reported ... log activation/deactivation
// once").
func (a *Arbiter) onEdge(active bool) {
	for i := 0; i < a.region.NumLevels(); i++ {
		a.region.Level(i).SetAlarm(active)
	}

	if active {
		a.forceGatesOpen()
		a.evacStop = make(chan struct{})
		go a.runEvacuationSigns(a.evacStop)
		if a.log != nil {
			a.log.Warn("fire alarm activated — evacuation takeover engaged")
		}
	} else {
		a.stopEvacuationSigns()
		if a.log != nil {
			a.log.Info("fire alarm deactivated")
		}
	}

	if a.metrics != nil {
		a.metrics.AlarmActive.Set(boolToFloat(active))
		label := "inactive"
		if active {
			label = "active"
		}
		a.metrics.AlarmTransitionsTotal.WithLabelValues(label).Inc()
	}
}

// forceGatesOpen writes 'O' directly to every entrance and exit gate
// under the gate's own lock, bypassing the normal actuator cycle — the
// evacuation override described in spec.md §4.10.
func (a *Arbiter) forceGatesOpen() {
	for i := 0; i < a.region.NumEntrances(); i++ {
		a.region.Entrance(i).Gate.Set('O')
	}
	for i := 0; i < a.region.NumExits(); i++ {
		a.region.Exit(i).Gate.Set('O')
	}
}

// runEvacuationSigns cycles "EVACUATE " onto every entrance sign, one
// letter per 20ms (scaled), until stop is closed.
func (a *Arbiter) runEvacuationSigns(stop chan struct{}) {
	interval := time.Duration(20*a.timeFactor) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := 0
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			letter := evacuationLetters[pos%len(evacuationLetters)]
			for i := 0; i < a.region.NumEntrances(); i++ {
				a.region.Entrance(i).Sign.Set(letter)
			}
			pos++
		}
	}
}

func (a *Arbiter) stopEvacuationSigns() {
	if a.evacStop != nil {
		close(a.evacStop)
		a.evacStop = nil
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
