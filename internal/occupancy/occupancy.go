// Package occupancy implements the Manager-local LevelOccupancy table: a
// capacity-guarded counter per level, one per spec.md §3/§4.6.
//
// Invariant: 0 <= count[l] <= capacity. Admit refuses past capacity at
// all times, including during an active alarm; Release never fails and
// stops at zero.
package occupancy

import "sync"

// Counter is a thread-safe, capacity-bounded occupancy count for a single
// level. Admit/Release are the only mutators; there is no time-driven
// refill — unlike a rate-limiting token bucket, a parking level's free
// capacity returns exactly when a car departs, not on a clock tick.
type Counter struct {
	mu       sync.Mutex
	capacity int
	count    int
}

// New creates a Counter with the given capacity. capacity must be > 0.
func New(capacity int) *Counter {
	if capacity <= 0 {
		panic("occupancy.Counter: capacity must be > 0")
	}
	return &Counter{capacity: capacity}
}

// Admit attempts to occupy one slot. Returns true if a slot was available
// and the count was incremented, false if the level is full.
func (c *Counter) Admit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count >= c.capacity {
		return false
	}
	c.count++
	return true
}

// Release frees one slot. Never fails; a departure always has room to
// land back in [0, capacity] because it can only follow a prior Admit.
func (c *Counter) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count > 0 {
		c.count--
	}
}

// Count returns the current occupancy.
func (c *Counter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Capacity returns the configured capacity.
func (c *Counter) Capacity() int {
	return c.capacity // immutable after construction
}

// Available reports whether at least one slot is free, without mutating
// state. Used by the entry controller to decide which levels to offer a
// car (spec.md §4.5: "compute available levels").
func (c *Counter) Available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count < c.capacity
}

// Table is the full LevelOccupancy map, one Counter per level index.
type Table struct {
	levels []*Counter
}

// NewTable creates a Table with n levels, each with the given capacity.
func NewTable(n, capacity int) *Table {
	t := &Table{levels: make([]*Counter, n)}
	for i := range t.levels {
		t.levels[i] = New(capacity)
	}
	return t
}

// Level returns the Counter for the given level index. Panics on an
// out-of-range index — the caller always knows the level count at
// compile time (it comes from config, validated at startup).
func (t *Table) Level(id int) *Counter {
	return t.levels[id]
}

// Len returns the number of levels in the table.
func (t *Table) Len() int {
	return len(t.levels)
}

// AvailableLevels returns the indices of every level with free capacity.
func (t *Table) AvailableLevels() []int {
	var ids []int
	for i, c := range t.levels {
		if c.Available() {
			ids = append(ids, i)
		}
	}
	return ids
}
