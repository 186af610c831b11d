package manager

import (
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func TestManagerHappyPath(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	dir := t.TempDir()

	m, err := New(Params{
		Region:        region,
		AllowList:     []string{"AAA111"},
		TimeFactor:    1,
		CostPerMS:     0.001,
		LevelCapacity: 2,
		BillingPath:   dir + "/billing.log",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Start()

	entrance := region.Entrance(0)
	level := region.Level(0)
	exit := region.Exit(0)

	entrance.LPR.Post(m.ctx.Running, plateBytes("AAA111"))
	waitUntil(t, time.Second, func() bool {
		assigned, _, ok := m.ctx.Registry.Levels("AAA111")
		return ok && assigned == 0
	})
	waitUntil(t, time.Second, func() bool { return entrance.LPR.Status() == 0 })

	level.LPR.Post(m.ctx.Running, plateBytes("AAA111")) // arrival
	waitUntil(t, time.Second, func() bool {
		_, current, _ := m.ctx.Registry.Levels("AAA111")
		return current == 0
	})
	waitUntil(t, time.Second, func() bool { return level.LPR.Status() == 0 })

	level.LPR.Post(m.ctx.Running, plateBytes("AAA111")) // departure
	waitUntil(t, time.Second, func() bool {
		_, current, _ := m.ctx.Registry.Levels("AAA111")
		return current == -1
	})
	waitUntil(t, time.Second, func() bool { return level.LPR.Status() == 0 })

	exit.LPR.Post(m.ctx.Running, plateBytes("AAA111"))
	waitUntil(t, time.Second, func() bool {
		assigned, _, ok := m.ctx.Registry.Levels("AAA111")
		return ok && assigned == -1
	})
	waitUntil(t, time.Second, func() bool { return exit.LPR.Status() == 0 })

	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if m.ctx.Ledger.Total() <= 0 {
		t.Fatal("expected a positive billing total after one full car cycle")
	}
}

func TestManagerShutdownUnblocksAllControllers(t *testing.T) {
	region := shmtest.New(2, 2, 2)
	dir := t.TempDir()

	m, err := New(Params{
		Region:        region,
		AllowList:     nil,
		TimeFactor:    1,
		CostPerMS:     0.001,
		LevelCapacity: 1,
		BillingPath:   dir + "/billing.log",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Start()

	done := make(chan struct{})
	go func() {
		m.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Shutdown did not return — a controller goroutine is stuck")
	}
}
