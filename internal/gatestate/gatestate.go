// Package gatestate defines the boomgate state machine shared by every
// boomgate in the parking garage: entrances, exits, and (during an
// evacuation) gates forced open by the fire alarm unit.
//
// State transition graph:
//
//	CLOSED (C) ──→ RAISING (R) ──→ OPEN (O) ──→ LOWERING (L) ──→ CLOSED (C)
//
// The cycle is one-directional and wraps — there is no decay, no pinning,
// and no terminal state: a gate cycles for as long as the garage runs.
// The byte written into shared memory (`C`, `R`, `O`, `L`) is the ASCII
// encoding of the state, so State.Byte()/FromByte() round-trip exactly
// what the other two processes observe over the wire.
package gatestate

import (
	"fmt"
	"sync"
)

// State is a position in the boomgate cycle.
type State uint8

const (
	Closed State = iota
	Raising
	Open
	Lowering
)

// String returns the human-readable state name.
func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Raising:
		return "RAISING"
	case Open:
		return "OPEN"
	case Lowering:
		return "LOWERING"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// Byte returns the shared-memory wire byte for this state.
func (s State) Byte() byte {
	switch s {
	case Closed:
		return 'C'
	case Raising:
		return 'R'
	case Open:
		return 'O'
	case Lowering:
		return 'L'
	default:
		panic(fmt.Sprintf("gatestate: invalid state %d", uint8(s)))
	}
}

// FromByte parses a shared-memory wire byte into a State.
// Returns false if b is not one of C/R/O/L.
func FromByte(b byte) (State, bool) {
	switch b {
	case 'C':
		return Closed, true
	case 'R':
		return Raising, true
	case 'O':
		return Open, true
	case 'L':
		return Lowering, true
	default:
		return Closed, false
	}
}

// next is the only legal successor of each state. Any other transition
// is a protocol violation — a gate never jumps C -> O, for example.
var next = map[State]State{
	Closed:   Raising,
	Raising:  Open,
	Open:     Lowering,
	Lowering: Closed,
}

// Machine tracks the mutable state of a single boomgate. Mutation is
// guarded by mu; the gate actuator goroutine owns all writes, while the
// Manager and car orchestrator only ever observe the state through the
// shared-memory byte (see internal/shm.Gate), not through this type —
// Machine exists so the actuator itself has a typed, race-free view of
// "what I last wrote" instead of re-deriving it from the raw byte.
type Machine struct {
	mu      sync.Mutex
	current State
}

// New creates a Machine in the Closed state, matching shared-memory
// initialization (every gate starts 'C').
func New() *Machine {
	return &Machine{current: Closed}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Advance moves the machine to its one legal successor state and returns
// it. Panics if called on a Machine whose state is somehow invalid — that
// can only happen from a bug elsewhere, never from caller input, since
// Advance takes no argument.
func (m *Machine) Advance() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := next[m.current]
	if !ok {
		panic(fmt.Sprintf("gatestate: no successor for %v", m.current))
	}
	m.current = n
	return m.current
}

// Set forces the machine directly to target, bypassing the single-step
// cycle. Nothing in this repository calls it: the evacuation takeover
// forces gates open by writing the shared-memory status byte
// (shm.Gate.Set), which does not update any Machine.
func (m *Machine) Set(target State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = target
}
