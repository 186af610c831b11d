package firealarm

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

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

func TestArbiterForcesGatesOpenOnFire(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	region.Entrance(0).Gate.Set('C')
	region.Exit(0).Gate.Set('C')
	region.Level(0).SetTemp(60) // steady fixed-temperature fire condition

	running := &atomic.Bool{}
	running.Store(true)
	a := NewArbiter(region, running, 1, nil, nil)
	go a.Run()

	waitUntil(t, 2*time.Second, func() bool {
		return region.Entrance(0).Gate.Status() == 'O' && region.Exit(0).Gate.Status() == 'O'
	})
	waitUntil(t, 2*time.Second, func() bool { return region.Level(0).Alarm() })

	running.Store(false)
}

func TestArbiterCyclesEvacuationSign(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	region.Level(0).SetTemp(65)

	running := &atomic.Bool{}
	running.Store(true)
	a := NewArbiter(region, running, 1, nil, nil)
	go a.Run()

	waitUntil(t, 2*time.Second, func() bool { return region.Entrance(0).Sign.Status() != 0 })

	first := region.Entrance(0).Sign.Status()
	waitUntil(t, 2*time.Second, func() bool { return region.Entrance(0).Sign.Status() != first })

	running.Store(false)
}

func TestArbiterNoFireAtNominalTemperature(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	region.Level(0).SetTemp(25)

	running := &atomic.Bool{}
	running.Store(true)
	a := NewArbiter(region, running, 1, nil, nil)
	go a.Run()

	time.Sleep(100 * time.Millisecond)
	if region.Level(0).Alarm() {
		t.Fatal("alarm must not activate at nominal temperature")
	}
	if region.Entrance(0).Gate.Status() != 'C' {
		t.Fatal("gate must not be forced open without a fire condition")
	}

	running.Store(false)
}
