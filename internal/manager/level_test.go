package manager

import (
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/platereg"
)

func TestLevelControllerArrivalAndDeparture(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 2, []string{"AAA111"})
	ctx.Registry.Assign("AAA111", 0)

	c := NewLevelController(ctx, 0)
	go c.Run()

	level := region.Level(0)

	// Arrival.
	level.LPR.Post(ctx.Running, plateBytes("AAA111"))
	waitUntil(t, time.Second, func() bool {
		_, current, _ := ctx.Registry.Levels("AAA111")
		return current == 0
	})
	if ctx.Occupancy.Level(0).Count() != 1 {
		t.Fatalf("expected occupancy 1 after arrival, got %d", ctx.Occupancy.Level(0).Count())
	}
	waitUntil(t, time.Second, func() bool { return level.LPR.Status() == 0 })

	// Departure.
	level.LPR.Post(ctx.Running, plateBytes("AAA111"))
	waitUntil(t, time.Second, func() bool {
		_, current, _ := ctx.Registry.Levels("AAA111")
		return current == platereg.None
	})
	if ctx.Occupancy.Level(0).Count() != 0 {
		t.Fatalf("expected occupancy 0 after departure, got %d", ctx.Occupancy.Level(0).Count())
	}

	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestLevelControllerUnknownPlateIsViolation(t *testing.T) {
	ctx, region := newTestContext(1, 1, 1, 2, nil)
	c := NewLevelController(ctx, 0)
	go c.Run()

	level := region.Level(0)
	level.LPR.Post(ctx.Running, plateBytes("ZZZ999"))
	waitUntil(t, time.Second, func() bool { return level.LPR.Status() == 0 })

	if ctx.Occupancy.Level(0).Count() != 0 {
		t.Fatal("unknown plate must not change occupancy")
	}
	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestLevelControllerReassignment(t *testing.T) {
	ctx, region := newTestContext(1, 1, 2, 1, []string{"AAA111"})
	ctx.Registry.Assign("AAA111", 0) // assigned to level 0

	c1 := NewLevelController(ctx, 1)
	go c1.Run()

	level1 := region.Level(1)
	level1.LPR.Post(ctx.Running, plateBytes("AAA111"))

	waitUntil(t, time.Second, func() bool {
		assigned, current, _ := ctx.Registry.Levels("AAA111")
		return assigned == 1 && current == 1
	})
	if ctx.Occupancy.Level(1).Count() != 1 {
		t.Fatalf("expected occupancy 1 on level 1 after reassignment, got %d", ctx.Occupancy.Level(1).Count())
	}
	if ctx.Occupancy.Level(0).Count() != 0 {
		t.Fatalf("expected occupancy 0 on original level after reassignment, got %d", ctx.Occupancy.Level(0).Count())
	}

	ctx.Running.Store(false)
	region.WakeAllLPRs()
}

func TestLevelControllerTeleportViolation(t *testing.T) {
	ctx, region := newTestContext(1, 1, 2, 2, []string{"AAA111"})
	ctx.Registry.Assign("AAA111", 0)
	ctx.Registry.SetCurrent("AAA111", 0) // car is already marked present on level 0

	c1 := NewLevelController(ctx, 1)
	go c1.Run()

	level1 := region.Level(1)
	level1.LPR.Post(ctx.Running, plateBytes("AAA111"))
	waitUntil(t, time.Second, func() bool { return level1.LPR.Status() == 0 })

	_, current, _ := ctx.Registry.Levels("AAA111")
	if current != 0 {
		t.Fatalf("teleport violation must not move current level, got %d", current)
	}
	if ctx.Occupancy.Level(1).Count() != 0 {
		t.Fatal("teleport violation must not change the other level's occupancy")
	}

	ctx.Running.Store(false)
	region.WakeAllLPRs()
}
