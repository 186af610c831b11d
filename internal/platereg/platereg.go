// Package platereg implements the Manager-local PlateRegistry from
// spec.md §3: a mapping from plate to {assigned level, current level},
// both optional. A plate absent from the registry is not on the
// allow-list; a plate that has exited stays in the registry with no
// assigned and no current level.
package platereg

import "sync"

// None marks "no level" for either AssignedLevel or CurrentLevel.
const None = -1

type entry struct {
	assigned int
	current  int
}

// Registry is the Manager's single source of truth for which plates are
// known, where they were told to park, and where they actually are.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New builds a Registry seeded with the given allow-listed plates, each
// starting with no assignment and no current level.
func New(allowList []string) *Registry {
	r := &Registry{entries: make(map[string]*entry, len(allowList))}
	for _, p := range allowList {
		r.entries[p] = &entry{assigned: None, current: None}
	}
	return r
}

// Known reports whether plate is on the allow-list at all. A car with an
// unknown plate must be rejected (spec.md §4.5 "Absent → display 'X'").
func (r *Registry) Known(plate string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[plate]
	return ok
}

// Inside reports whether plate currently holds an assignment or a
// current level — i.e. is already somewhere in the garage, in which
// case a second entry must be refused (spec.md §4.5 "no re-entry while
// inside").
func (r *Registry) Inside(plate string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[plate]
	if !ok {
		return false
	}
	return e.assigned != None || e.current != None
}

// Assign records a fresh admission: assigned=level, current=None. The
// caller must already have verified Known(plate) && !Inside(plate).
func (r *Registry) Assign(plate string, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[plate]
	if !ok {
		e = &entry{}
		r.entries[plate] = e
	}
	e.assigned = level
	e.current = None
}

// Levels returns the (assigned, current) pair for plate. ok is false if
// the plate is not in the registry at all.
func (r *Registry) Levels(plate string) (assigned, current int, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, exists := r.entries[plate]
	if !exists {
		return None, None, false
	}
	return e.assigned, e.current, true
}

// SetCurrent updates only the current-level field, used by the level
// controller on arrival and departure (spec.md §4.6); re-assignment
// uses Reassign.
func (r *Registry) SetCurrent(plate string, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[plate]
	if !ok {
		e = &entry{assigned: None}
		r.entries[plate] = e
	}
	e.current = level
}

// Reassign atomically moves a plate's assigned and current level to a
// new level, used by the level controller's re-assignment case (spec.md
// §4.6: "decrement occupancy(assigned), increment occupancy(this), set
// both assigned and current to this").
func (r *Registry) Reassign(plate string, level int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[plate]
	if !ok {
		e = &entry{}
		r.entries[plate] = e
	}
	e.assigned = level
	e.current = level
}

// Release clears both assigned and current level for plate, on exit
// (spec.md §4.7: "Clear PlateRegistry entry for the plate").
func (r *Registry) Release(plate string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[plate]; ok {
		e.assigned = None
		e.current = None
	}
}
