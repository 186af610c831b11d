package firealarm

import (
	"testing"

	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func TestMonitorNoFireAtNominalTemperature(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	m := NewMonitor(region.Level(0))
	region.Level(0).SetTemp(25)

	for i := 0; i < rawWindowSize+smoothedWindowSize; i++ {
		if fire := m.Tick(); fire {
			t.Fatalf("unexpected fire at nominal temperature on tick %d", i)
		}
	}
}

func TestMonitorFixedTempFire(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	m := NewMonitor(region.Level(0))
	region.Level(0).SetTemp(60)

	var fired bool
	for i := 0; i < rawWindowSize+smoothedWindowSize; i++ {
		if m.Tick() {
			fired = true
		}
	}
	if !fired {
		t.Fatal("expected fixed-temperature fire once the smoothed window fills at 60C")
	}
}

func TestMonitorRateOfRiseFire(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	m := NewMonitor(region.Level(0))

	// Fill the smoothed window at a cool baseline first: the first
	// smoothed sample needs a full raw window, so these ticks fill it
	// exactly and the oldest entry stays at 25C when the jump arrives.
	region.Level(0).SetTemp(25)
	for i := 0; i < rawWindowSize+smoothedWindowSize-1; i++ {
		m.Tick()
	}

	// A sharp jump needs a few ticks to dominate the 5-wide raw median
	// before it shows up as a new smoothed sample.
	region.Level(0).SetTemp(40)
	fired := false
	for i := 0; i < 10; i++ {
		if m.Tick() {
			fired = true
			break
		}
	}
	if !fired {
		t.Fatal("expected rate-of-rise fire after a sharp temperature jump")
	}
}

func TestMonitorNotDecidableBeforeWindowFull(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	m := NewMonitor(region.Level(0))
	region.Level(0).SetTemp(99)

	if fire := m.Tick(); fire {
		t.Fatal("must not report fire before the smoothed window is fully populated")
	}
}
