package simulator

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/parkctl/parkctl/internal/shm"
)

// misbehaveProbability is the chance a car disregards its assigned level
// and parks on a random one instead (spec.md §4.4's "optional
// misbehavior injection").
const misbehaveProbability = 0.5

// runCar drives one car through the full lifecycle of spec.md §4.4. It
// blocks for the car's entire journey — callers run it inside a pooled
// worker goroutine. fromBag is true if plate came out of the PlateBag
// (an allow-listed plate) rather than being a synthetic unknown plate —
// only such plates are returned to the bag when the journey ends.
func runCar(ctx *Context, plate string, fromBag bool) {
	plateBytes := shm.PlateBytes(plate)

	entranceIdx := ctx.RNG.Intn(len(ctx.EntryQueues))
	queue := ctx.EntryQueues[entranceIdx]
	entrance := ctx.Region.Entrance(entranceIdx)

	// Step 1: queue for entrance.
	queue.Push(plate)
	if !queue.WaitForHead(plate) {
		queue.Pop(plate)
		return // shutdown
	}

	// Step 2: post to entrance LPR (2ms sensor delay).
	ctx.sleep(2)
	if !entrance.LPR.Post(ctx.Running, plateBytes) {
		queue.Pop(plate)
		return
	}

	// Step 3: read the sign.
	display, ok := entrance.Sign.WaitForNonZero(ctx.Running)
	if !ok {
		queue.Pop(plate)
		return
	}
	entrance.Sign.Clear()

	assignedLevel, accepted := interpretDisplay(display)
	if !accepted {
		queue.Pop(plate)
		if fromBag {
			ctx.PlateBag.Return(plate)
		}
		return
	}

	// Step 4: wait for the entrance gate to open, then leave the queue.
	if !entrance.Gate.WaitFor(ctx.Running, 'O') {
		queue.Pop(plate)
		return
	}
	queue.Pop(plate)

	level := assignedLevel
	if ctx.RNG.Float64() < misbehaveProbability {
		level = ctx.RNG.Intn(ctx.Region.NumLevels())
	}

	// Step 5: drive to level.
	ctx.sleep(10)
	lvl := ctx.Region.Level(level)
	if !lvl.LPR.Post(ctx.Running, plateBytes) {
		return
	}
	lvl.LPR.WaitCleared(ctx.Running)

	// Step 6: dwell.
	dwell := ctx.RNG.IntRange(ctx.MinDwellMS, ctx.MaxDwellMS)
	ctx.sleep(dwell)

	// Step 7: depart level.
	if !lvl.LPR.Post(ctx.Running, plateBytes) {
		return
	}
	lvl.LPR.WaitCleared(ctx.Running)

	// Step 8: choose exit.
	ctx.sleep(10)
	exitIdx := ctx.RNG.Intn(ctx.Region.NumExits())
	exit := ctx.Region.Exit(exitIdx)
	if !exit.LPR.Post(ctx.Running, plateBytes) {
		return
	}
	exit.LPR.WaitCleared(ctx.Running)
	if !exit.Gate.WaitFor(ctx.Running, 'O') {
		return
	}

	// Step 9: return plate to the bag; worker loops (handled by CarPool).
	if fromBag {
		ctx.PlateBag.Return(plate)
	}
}

// interpretDisplay decodes a sign byte per spec.md §4.4 step 3.
func interpretDisplay(b byte) (level int, accepted bool) {
	switch {
	case b >= '1' && b <= '9':
		return int(b-'1'), true
	case b == 'X', b == 'F':
		return 0, false
	default:
		// Evacuation letters (E,V,A,C,U,T,' ') and anything else: reject.
		return 0, false
	}
}

func (ctx *Context) sleep(baseMS int) {
	time.Sleep(time.Duration(baseMS*ctx.TimeFactor) * time.Millisecond)
}

// CarPool is the fixed-size worker pool described in spec.md §3/§5: a
// bounded number of goroutines consuming a single dispatch queue, sized
// 2·N_LVL·LEVEL_CAPACITY so peak concurrent cars is capped without
// unbounded goroutine creation.
type carJob struct {
	plate   string
	fromBag bool
}

type CarPool struct {
	ctx  *Context
	jobs chan carJob
	wg   sync.WaitGroup
	log  *zap.Logger
}

// NewCarPool creates a pool with the given queue depth.
func NewCarPool(ctx *Context, queueDepth int) *CarPool {
	return &CarPool{
		ctx:  ctx,
		jobs: make(chan carJob, queueDepth),
		log:  ctx.Log,
	}
}

// Start launches the fixed number of worker goroutines.
func (p *CarPool) Start(workers int) {
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
}

func (p *CarPool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		if p.ctx.Metrics != nil {
			p.ctx.Metrics.CarsActive.Inc()
		}
		runCar(p.ctx, job.plate, job.fromBag)
		if p.ctx.Metrics != nil {
			p.ctx.Metrics.CarsActive.Dec()
		}
	}
}

// Wait blocks until every worker goroutine has exited (spec.md §4.11(c)
// "join all car workers"). Call after Close.
func (p *CarPool) Wait() {
	p.wg.Wait()
}

// Dispatch enqueues a new car's plate. Returns false, without queueing
// the car, if the dispatch queue is full.
func (p *CarPool) Dispatch(plate string, fromBag bool) bool {
	select {
	case p.jobs <- carJob{plate: plate, fromBag: fromBag}:
		return true
	default:
		if p.log != nil {
			p.log.Debug("car dispatch queue full, dropping generation tick")
		}
		return false
	}
}

// Close stops accepting new cars. Workers drain remaining queued plates
// and then exit once the channel is empty and closed.
func (p *CarPool) Close() {
	close(p.jobs)
}
