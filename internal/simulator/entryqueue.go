package simulator

import (
	"sync"
	"sync/atomic"
)

// EntryQueue is the Simulator-local FIFO of plates queued at one
// entrance (spec.md §3/§4.4 step 1). It guarantees strict head-of-line
// delivery: a car blocks until its own plate reaches the front before it
// is allowed to touch the entrance LPR, which is what gives the Manager
// a one-plate-at-a-time view of each entrance.
type EntryQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	plates  []string
	running *atomic.Bool
}

// NewEntryQueue creates an empty queue. running is the Simulator's
// process-wide running flag — the queue's Wait loop rechecks it exactly
// like the shared-memory wait loops do, so a shutdown broadcast unblocks
// every queued car (spec.md §4.11(a)).
func NewEntryQueue(running *atomic.Bool) *EntryQueue {
	q := &EntryQueue{running: running}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends plate to the back of the queue. The plate value itself
// identifies the caller's position — duplicates cannot occur because a
// plate has at most one live worker at a time, spec.md invariant 4.
func (q *EntryQueue) Push(plate string) {
	q.mu.Lock()
	q.plates = append(q.plates, plate)
	q.cond.Broadcast()
	q.mu.Unlock()
}

// WaitForHead blocks until plate is at the front of the queue, or the
// queue's running flag drops to false. Returns false in the latter case.
func (q *EntryQueue) WaitForHead(plate string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for (len(q.plates) == 0 || q.plates[0] != plate) && q.running.Load() {
		q.cond.Wait()
	}
	return len(q.plates) > 0 && q.plates[0] == plate
}

// Pop removes the current head of the queue (the caller must already
// know it is plate, per WaitForHead) and wakes the next waiter.
func (q *EntryQueue) Pop(plate string) {
	q.mu.Lock()
	if len(q.plates) > 0 && q.plates[0] == plate {
		q.plates = q.plates[1:]
	}
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Broadcast wakes every waiter without changing the queue — used by the
// shutdown coordinator (spec.md §4.11(a)).
func (q *EntryQueue) Broadcast() {
	q.mu.Lock()
	q.cond.Broadcast()
	q.mu.Unlock()
}
