package simulator

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func newTestContext(numEnt, numExit, numLvl int) *Context {
	region := shmtest.New(numEnt, numExit, numLvl)
	running := &atomic.Bool{}
	running.Store(true)
	queues := make([]*EntryQueue, numEnt)
	for i := range queues {
		queues[i] = NewEntryQueue(running)
	}
	for i := 0; i < numEnt; i++ {
		region.Entrance(i).Gate.Set('O')
	}
	for i := 0; i < numExit; i++ {
		region.Exit(i).Gate.Set('O')
	}
	return &Context{
		Region:      region,
		EntryQueues: queues,
		PlateBag:    NewPlateBag(nil, NewRNG(1)),
		RNG:         NewRNG(2),
		Running:     running,
		TimeFactor:  1,
		MinDwellMS:  1,
		MaxDwellMS:  2,
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

// driveManagerSide emulates just enough of the Manager to let one car
// complete its full journey: admit at the entrance with a fixed level,
// clear the level LPR on both arrival and departure, and clear the exit
// LPR. It stops once stop is closed.
func driveManagerSide(t *testing.T, ctx *Context, level int, stop <-chan struct{}) {
	t.Helper()
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			plate, ok := ctx.Region.Entrance(0).LPR.Consume(ctx.Running)
			if !ok {
				return
			}
			ctx.Region.Entrance(0).Sign.Set(byte('1' + level))
			ctx.Region.Entrance(0).LPR.Clear()
			return
		}
	}()
	go func() {
		cleared := 0
		for cleared < 2 {
			select {
			case <-stop:
				return
			default:
			}
			if _, ok := ctx.Region.Level(level).LPR.Consume(ctx.Running); ok {
				ctx.Region.Level(level).LPR.Clear()
				cleared++
			}
		}
	}()
	go func() {
		if _, ok := ctx.Region.Exit(0).LPR.Consume(ctx.Running); ok {
			ctx.Region.Exit(0).LPR.Clear()
		}
	}()
}

func TestRunCarFullLifecycleReturnsPlateToBag(t *testing.T) {
	ctx := newTestContext(1, 1, 1)
	stop := make(chan struct{})
	defer close(stop)

	driveManagerSide(t, ctx, 0, stop)

	done := make(chan struct{})
	go func() {
		runCar(ctx, "AAA111", true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runCar did not complete its journey")
	}

	if p, ok := ctx.PlateBag.Take(); !ok || p != "AAA111" {
		t.Fatalf("expected AAA111 back in the bag after a full lifecycle, got %q ok=%v", p, ok)
	}
}

func TestRunCarRejectedDoesNotReturnUnknownPlateToBag(t *testing.T) {
	ctx := newTestContext(1, 1, 1)

	go func() {
		ctx.Region.Entrance(0).LPR.Consume(ctx.Running)
		ctx.Region.Entrance(0).Sign.Set('X') // rejected: unknown plate
		ctx.Region.Entrance(0).LPR.Clear()
	}()

	done := make(chan struct{})
	go func() {
		runCar(ctx, "ZZZ999", false) // synthetic, never taken from the bag
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runCar did not return after a rejection")
	}

	if _, ok := ctx.PlateBag.Take(); ok {
		t.Fatal("a synthetic unknown plate must never end up in the bag")
	}
}

func TestRunCarUnblocksOnShutdown(t *testing.T) {
	ctx := newTestContext(1, 1, 1)
	// Nobody services the entrance LPR; the car should unblock via the
	// shutdown broadcast instead of hanging forever.

	done := make(chan struct{})
	go func() {
		runCar(ctx, "BBB222", true)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	ctx.Running.Store(false)
	for _, q := range ctx.EntryQueues {
		q.Broadcast()
	}
	ctx.Region.WakeAllLPRs()
	ctx.Region.WakeAllSigns()
	ctx.Region.WakeAllGates()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runCar did not unblock on shutdown")
	}
}

func TestInterpretDisplay(t *testing.T) {
	cases := []struct {
		b        byte
		level    int
		accepted bool
	}{
		{'1', 0, true},
		{'9', 8, true},
		{'X', 0, false},
		{'F', 0, false},
		{'E', 0, false},
	}
	for _, c := range cases {
		level, accepted := interpretDisplay(c.b)
		if level != c.level || accepted != c.accepted {
			t.Fatalf("interpretDisplay(%q) = (%d, %v), want (%d, %v)", c.b, level, accepted, c.level, c.accepted)
		}
	}
}
