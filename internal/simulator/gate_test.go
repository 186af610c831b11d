package simulator

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func TestGateWorkerOpensThenCloses(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	running := &atomic.Bool{}
	running.Store(true)
	gate := region.Entrance(0).Gate

	w := NewGateWorker(gate, running, 1, "entrance", 0, nil, nil)
	go w.Run()

	gate.Set('R')
	waitUntil(t, time.Second, func() bool { return gate.Status() == 'O' })

	gate.Set('L')
	waitUntil(t, time.Second, func() bool { return gate.Status() == 'C' })

	running.Store(false)
	gate.Wake()
}

func TestGateWorkerStopsOnShutdown(t *testing.T) {
	region := shmtest.New(1, 1, 1)
	running := &atomic.Bool{}
	running.Store(true)
	gate := region.Entrance(0).Gate

	w := NewGateWorker(gate, running, 1, "entrance", 0, nil, nil)
	done := make(chan struct{})
	go func() { w.Run(); close(done) }()

	running.Store(false)
	gate.Wake()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("gate worker did not stop on shutdown")
	}
}
