package simulator

import (
	"testing"
	"time"
)

func TestCarPoolDispatchFullQueueReturnsFalse(t *testing.T) {
	ctx := newTestContext(1, 1, 1)
	pool := NewCarPool(ctx, 1)
	// No workers started: the first Dispatch fills the one-deep queue,
	// the second must report the queue as full.
	if !pool.Dispatch("AAA111", true) {
		t.Fatal("expected the first dispatch into an empty queue to succeed")
	}
	if pool.Dispatch("BBB222", true) {
		t.Fatal("expected dispatch into a full queue to fail")
	}
	pool.Close()
	pool.Start(1)

	stop := make(chan struct{})
	defer close(stop)
	driveManagerSide(t, ctx, 0, stop)

	done := make(chan struct{})
	go func() { pool.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pool workers did not join after Close")
	}
}
