package simulator

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/gatestate"
	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/shm"
)

// GateWorker actuates one physical gate (spec.md §4.3): it waits for the
// Manager or Fire Alarm to request a raise ('R') or lower ('L'), sleeps
// a scaled transition delay, then advances the status to 'O' or 'C'.
// An internal/gatestate.Machine keeps a typed local mirror of the
// C→R→O→L→C cycle; it is not checked against the status byte that other
// processes write.
type GateWorker struct {
	gate       *shm.Gate
	machine    *gatestate.Machine
	running    *atomic.Bool
	timeFactor int
	kind       string // "entrance" or "exit", for metrics/logging labels
	index      int
	metrics    *observability.Metrics
	log        *zap.Logger
}

// NewGateWorker builds a worker for one gate. kind/index are only used
// for labeling metrics and log lines.
func NewGateWorker(gate *shm.Gate, running *atomic.Bool, timeFactor int, kind string, index int, metrics *observability.Metrics, log *zap.Logger) *GateWorker {
	return &GateWorker{
		gate:       gate,
		machine:    gatestate.New(),
		running:    running,
		timeFactor: timeFactor,
		kind:       kind,
		index:      index,
		metrics:    metrics,
		log:        log,
	}
}

// scaledSleep sleeps baseMS milliseconds scaled by TIME_FACTOR.
func (w *GateWorker) scaledSleep(baseMS int) {
	time.Sleep(time.Duration(baseMS*w.timeFactor) * time.Millisecond)
}

// Run loops: wait for a request (R or L), perform the transition, repeat
// until running drops to false. The loop exits once running is false
// AND no raise or lower request is pending — spec.md §4.3's "system is
// running OR cars remain" condition is approximated here by the caller
// only stopping gate workers after car workers have drained (spec.md
// §4.11(c) precedes (d)).
func (w *GateWorker) Run() {
	for {
		status, gotRequest := w.gate.WaitForAny(w.running, func(b byte) bool {
			return b == 'R' || b == 'L'
		})
		if !gotRequest {
			return
		}

		switch status {
		case 'R':
			w.machine.Advance() // Closed -> Raising (already reflected in shm; keeps local mirror in sync)
			w.scaledSleep(10)
			w.machine.Advance() // Raising -> Open
			w.gate.Set('O')
			w.observeTransition("open")
		case 'L':
			w.machine.Advance() // Open -> Lowering
			w.scaledSleep(10)
			w.machine.Advance() // Lowering -> Closed
			w.gate.Set('C')
			w.observeTransition("closed")
		}
	}
}

func (w *GateWorker) observeTransition(toState string) {
	if w.metrics != nil {
		w.metrics.GateTransitionsTotal.WithLabelValues(w.kind, toState).Inc()
	}
	if w.log != nil {
		w.log.Debug("gate transitioned",
			zap.String("kind", w.kind),
			zap.Int("index", w.index),
			zap.String("to", toState),
		)
	}
}
