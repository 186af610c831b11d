package manager

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/billing"
	"github.com/parkctl/parkctl/internal/occupancy"
	"github.com/parkctl/parkctl/internal/platereg"
	"github.com/parkctl/parkctl/internal/shm"
	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func plateBytes(s string) [6]byte { return shm.PlateBytes(s) }

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

func newTestContext(numEnt, numExit, numLvl, capacity int, allowList []string) (*Context, *shm.Region) {
	region := shmtest.New(numEnt, numExit, numLvl)
	running := &atomic.Bool{}
	running.Store(true)
	return &Context{
		Region:     region,
		Registry:   platereg.New(allowList),
		Occupancy:  occupancy.NewTable(numLvl, capacity),
		Billing:    billing.NewTable(),
		Ledger:     nil, // entry controller never touches the ledger
		Running:    running,
		TimeFactor: 1,
		CostPerMS:  0.001,
	}, region
}

func TestEntryControllerAdmitsKnownPlate(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 2, []string{"ABC123"})
	c := NewEntryController(ctx, 0)
	go c.Run()

	entrance := region.Entrance(0)
	if !entrance.LPR.Post(ctx.Running, plateBytes("ABC123")) {
		t.Fatal("post failed")
	}

	waitUntil(t, time.Second, func() bool {
		assigned, _, ok := ctx.Registry.Levels("ABC123")
		return ok && assigned == 0
	})

	if _, ok := ctx.Billing.TakeEntry("ABC123"); !ok {
		t.Fatal("expected billing entry to be recorded on admission")
	}

	waitUntil(t, time.Second, func() bool { return entrance.LPR.Status() == 0 })
	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestEntryControllerRejectsUnknownPlate(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 2, []string{"ABC123"})
	c := NewEntryController(ctx, 0)
	go c.Run()

	entrance := region.Entrance(0)
	entrance.LPR.Post(ctx.Running, plateBytes("ZZZ999"))

	waitUntil(t, time.Second, func() bool { return entrance.LPR.Status() == 0 })

	if _, _, ok := ctx.Registry.Levels("ZZZ999"); ok {
		t.Fatal("unknown plate must not be recorded in the registry")
	}
	if entrance.Gate.Status() != 'C' {
		t.Fatalf("gate must stay closed on rejection, got %q", entrance.Gate.Status())
	}
	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestEntryControllerRejectsWhenFull(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 1, []string{"AAA111", "BBB222"})
	ctx.Occupancy.Level(0).Admit() // fill the only slot

	c := NewEntryController(ctx, 0)
	go c.Run()

	entrance := region.Entrance(0)
	entrance.LPR.Post(ctx.Running, plateBytes("BBB222"))

	waitUntil(t, time.Second, func() bool { return entrance.LPR.Status() == 0 })

	if _, _, ok := ctx.Registry.Levels("BBB222"); ok {
		t.Fatal("plate must not be assigned when the only level is full")
	}
	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestEntryControllerRejectsReentry(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 2, []string{"AAA111"})
	ctx.Registry.Assign("AAA111", 0) // already inside

	c := NewEntryController(ctx, 0)
	go c.Run()

	entrance := region.Entrance(0)
	entrance.LPR.Post(ctx.Running, plateBytes("AAA111"))

	waitUntil(t, time.Second, func() bool { return entrance.LPR.Status() == 0 })

	if _, ok := ctx.Billing.TakeEntry("AAA111"); ok {
		t.Fatal("re-entry must not record a second billing entry")
	}
	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestEntryControllerRefusesDuringAlarm(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 2, []string{"AAA111"})
	region.Level(0).SetAlarm(true)

	c := NewEntryController(ctx, 0)
	go c.Run()

	entrance := region.Entrance(0)
	entrance.LPR.Post(ctx.Running, plateBytes("AAA111"))

	waitUntil(t, time.Second, func() bool { return entrance.LPR.Status() == 0 })

	if _, _, ok := ctx.Registry.Levels("AAA111"); ok {
		t.Fatal("alarm-time arrivals must not be admitted")
	}
	if entrance.Sign.Status() != 0 {
		t.Fatalf("sign must be left clear on alarm refusal, got %q", entrance.Sign.Status())
	}
	ctx.Running.Store(false)
	region.WakeAllLPRs()
}
