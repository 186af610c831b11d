// Package simulator implements the Simulator process's components:
// the gate actuator, the car orchestrator and car pool, the temperature
// simulator, and the shutdown coordinator's Simulator-side half
// (spec.md §4.3, §4.4, §4.8, §4.11).
package simulator

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/shm"
)

// Simulator owns every Simulator-process component and coordinates
// their startup and shutdown.
type Simulator struct {
	region     *shm.Region
	ctx        *Context
	running    *atomic.Bool
	entryQs    []*EntryQueue
	gates      []*GateWorker
	temp       *TemperatureSimulator
	pool       *CarPool
	poolSize   int
	genStopped chan struct{}
	log        *zap.Logger
}

// Params configures a new Simulator.
type Params struct {
	Region        *shm.Region
	AllowList     []string
	TimeFactor    int
	MinDwellMS    int
	MaxDwellMS    int
	LevelCapacity int // used only to size the car worker pool
	Seed          int64
	Metrics       *observability.Metrics
	Log           *zap.Logger
}

// New wires up a Simulator from its dependencies. The returned Simulator
// is not yet running — call Start.
func New(p Params) *Simulator {
	running := &atomic.Bool{}
	running.Store(true)

	rng := NewRNG(p.Seed)
	bag := NewPlateBag(p.AllowList, rng)

	entryQs := make([]*EntryQueue, p.Region.NumEntrances())
	for i := range entryQs {
		entryQs[i] = NewEntryQueue(running)
	}

	ctx := &Context{
		Region:      p.Region,
		EntryQueues: entryQs,
		PlateBag:    bag,
		RNG:         rng,
		Running:     running,
		TimeFactor:  p.TimeFactor,
		MinDwellMS:  p.MinDwellMS,
		MaxDwellMS:  p.MaxDwellMS,
		Metrics:     p.Metrics,
		Log:         p.Log,
	}

	var gates []*GateWorker
	for i := 0; i < p.Region.NumEntrances(); i++ {
		gates = append(gates, NewGateWorker(p.Region.Entrance(i).Gate, running, p.TimeFactor, "entrance", i, p.Metrics, p.Log))
	}
	for i := 0; i < p.Region.NumExits(); i++ {
		gates = append(gates, NewGateWorker(p.Region.Exit(i).Gate, running, p.TimeFactor, "exit", i, p.Metrics, p.Log))
	}

	var levels []*shm.Level
	for i := 0; i < p.Region.NumLevels(); i++ {
		levels = append(levels, p.Region.Level(i))
	}
	temp := NewTemperatureSimulator(levels, rng, running, p.TimeFactor, p.Metrics)

	poolSize := 2 * p.Region.NumLevels() * p.LevelCapacity
	if poolSize < 1 {
		poolSize = 1
	}
	pool := NewCarPool(ctx, poolSize)

	return &Simulator{
		region:     p.Region,
		ctx:        ctx,
		running:    running,
		entryQs:    entryQs,
		gates:      gates,
		temp:       temp,
		pool:       pool,
		poolSize:   poolSize,
		genStopped: make(chan struct{}),
		log:        p.Log,
	}
}

// Start launches all worker goroutines: gate actuators, the temperature
// simulator, the car pool, and the car generation loop. carGenPeriod
// controls how often a new car is dispatched; it is itself scaled by
// TIME_FACTOR by the caller if desired.
func (s *Simulator) Start(carGenPeriod time.Duration) {
	for _, g := range s.gates {
		go g.Run()
	}
	go s.temp.Run()
	s.pool.Start(s.poolSize)
	go s.generateCars(carGenPeriod)
}

// generateCars periodically manufactures a new car and dispatches it
// into the pool until the simulator is shut down.
func (s *Simulator) generateCars(period time.Duration) {
	defer close(s.genStopped)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for s.running.Load() {
		<-ticker.C
		if !s.running.Load() {
			return
		}
		plate, fromBag := s.ctx.PlateBag.Next(s.ctx.RNG)
		if s.pool.Dispatch(plate, fromBag) {
			if s.ctx.Metrics != nil {
				s.ctx.Metrics.CarsDispatchedTotal.Inc()
			}
		} else if fromBag {
			s.ctx.PlateBag.Return(plate)
		}
	}
}

// TemperatureSimulator exposes the mode switch for the keyboard handler.
func (s *Simulator) TemperatureSimulator() *TemperatureSimulator { return s.temp }

// Shutdown executes the Simulator's half of spec.md §4.11: broadcast on
// every entry-queue and shared-memory wait-variable so blocked workers
// observe termination, then join car workers, then broadcast on gate
// wait-variables and join gate actuators. Destroying the shared region
// itself is the caller's responsibility (it owns the Region handle).
func (s *Simulator) Shutdown() {
	s.running.Store(false)

	// (a) wake queued cars.
	for _, q := range s.entryQs {
		q.Broadcast()
	}
	// (b) wake anything blocked on an LPR wait-variable.
	s.region.WakeAllLPRs()
	s.region.WakeAllSigns()

	<-s.genStopped
	s.pool.Close()

	// (c) join all car workers.
	s.pool.Wait()

	// (d) wake gate actuators.
	s.region.WakeAllGates()
	// (e) gate actuators, input handler, display and temperature worker
	// all observe s.running == false on their next wake and return.
}
