package shm

import (
	"sync/atomic"
	"unsafe"

	"github.com/parkctl/parkctl/internal/shmsync"
)

// LPR is a license-plate reader: a one-slot, process-shared rendezvous
// buffer. See spec.md §4.2 for the post/consume/clear protocol.
type LPR struct {
	mu    *shmsync.Mutex
	cond  *shmsync.Cond
	plate []byte // len 6, aliases the shared buffer
}

func newLPR(buf []byte, base int) *LPR {
	return &LPR{
		mu:    shmsync.NewMutex((*uint32)(unsafe.Pointer(&buf[base]))),
		cond:  shmsync.NewCond((*uint32)(unsafe.Pointer(&buf[base+wordSize]))),
		plate: buf[base+2*wordSize : base+2*wordSize+6],
	}
}

// Post writes plate into the reader, waiting for any previous plate to be
// cleared first (spec.md invariant 1: non-zero first byte iff unread).
// Returns false, without writing, if running is false once the wait for
// a free slot ends — the caller must treat that as a shutdown, not as
// data.
func (l *LPR) Post(running *atomic.Bool, plate [6]byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.plate[0] != 0 && running.Load() {
		l.cond.Wait(l.mu)
	}
	if l.plate[0] != 0 || !running.Load() {
		return false
	}
	copy(l.plate, plate[:])
	l.cond.Broadcast()
	return true
}

// Consume waits for a plate to appear and copies it out. The caller is
// responsible for calling Clear once it has finished with the value —
// Consume never clears automatically, so a second observer blocked on
// the same LPR still sees the plate (spec.md §4.2 rationale for
// broadcast-not-signal).
func (l *LPR) Consume(running *atomic.Bool) (plate [6]byte, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.plate[0] == 0 && running.Load() {
		l.cond.Wait(l.mu)
	}
	if l.plate[0] == 0 {
		return plate, false
	}
	copy(plate[:], l.plate)
	return plate, true
}

// WaitCleared blocks until the plate buffer has been consumed and
// cleared (plate[0]==0), or running becomes false. Used by a poster that
// must not write a second plate until the first has been fully handled
// downstream (e.g. the car orchestrator's level-LPR arrival/departure
// pair, spec.md §4.4 steps 5-7).
func (l *LPR) WaitCleared(running *atomic.Bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.plate[0] != 0 && running.Load() {
		l.cond.Wait(l.mu)
	}
	return l.plate[0] == 0
}

// Clear zeroes the plate buffer and wakes any waiters blocked in Post.
func (l *LPR) Clear() {
	l.mu.Lock()
	for i := range l.plate {
		l.plate[i] = 0
	}
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Wake broadcasts without altering the plate — used by the shutdown
// coordinator (spec.md §4.11(b)) to unblock waiters purely on the
// running flag they are also checking.
func (l *LPR) Wake() {
	l.mu.Lock()
	l.cond.Broadcast()
	l.mu.Unlock()
}

// Status returns the first byte of the plate buffer: zero means empty,
// non-zero means a plate is posted and awaiting Consume/Clear.
func (l *LPR) Status() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.plate[0]
}

// Gate is a process-shared boomgate status channel. Status bytes are
// 'C' (closed), 'R' (raising), 'O' (open), 'L' (lowering) — see
// internal/gatestate for the state machine these bytes encode.
type Gate struct {
	mu     *shmsync.Mutex
	cond   *shmsync.Cond
	status []byte // len 1
}

func newGate(buf []byte, base int) *Gate {
	return &Gate{
		mu:     shmsync.NewMutex((*uint32)(unsafe.Pointer(&buf[base]))),
		cond:   shmsync.NewCond((*uint32)(unsafe.Pointer(&buf[base+wordSize]))),
		status: buf[base+2*wordSize : base+2*wordSize+1],
	}
}

// Set writes a new status byte directly and wakes all waiters. Used both
// by the gate actuator (advancing through its own cycle) and by the
// evacuation arbiter (forcing a gate straight to 'O').
func (g *Gate) Set(b byte) {
	g.mu.Lock()
	g.status[0] = b
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Status returns the current status byte.
func (g *Gate) Status() byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status[0]
}

// WaitFor blocks until the status equals target or running becomes
// false. Returns false in the latter case.
func (g *Gate) WaitFor(running *atomic.Bool, target byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.status[0] != target && running.Load() {
		g.cond.Wait(g.mu)
	}
	return g.status[0] == target
}

// WaitForAny blocks until cond reports true for the status, or running
// becomes false, used by the gate actuator worker which wakes on either
// a raise or a lower request.
func (g *Gate) WaitForAny(running *atomic.Bool, cond func(byte) bool) (byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for !cond(g.status[0]) && running.Load() {
		g.cond.Wait(g.mu)
	}
	return g.status[0], cond(g.status[0])
}

// Wake broadcasts without altering status (spec.md §4.11(d)).
func (g *Gate) Wake() {
	g.mu.Lock()
	g.cond.Broadcast()
	g.mu.Unlock()
}

// Sign is a process-shared info-sign display channel.
type Sign struct {
	mu      *shmsync.Mutex
	cond    *shmsync.Cond
	display []byte // len 1
}

func newSign(buf []byte, base int) *Sign {
	return &Sign{
		mu:      shmsync.NewMutex((*uint32)(unsafe.Pointer(&buf[base]))),
		cond:    shmsync.NewCond((*uint32)(unsafe.Pointer(&buf[base+wordSize]))),
		display: buf[base+2*wordSize : base+2*wordSize+1],
	}
}

// Set writes the display byte and wakes waiters.
func (s *Sign) Set(b byte) {
	s.mu.Lock()
	s.display[0] = b
	s.cond.Broadcast()
	s.mu.Unlock()
}

// WaitForNonZero blocks until the display is non-zero (the car
// orchestrator's sign-read step), or running becomes false.
func (s *Sign) WaitForNonZero(running *atomic.Bool) (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.display[0] == 0 && running.Load() {
		s.cond.Wait(s.mu)
	}
	if s.display[0] == 0 {
		return 0, false
	}
	return s.display[0], true
}

// Wake broadcasts without altering the display.
func (s *Sign) Wake() {
	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Status returns the current display byte without blocking.
func (s *Sign) Status() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display[0]
}

// Clear resets the display to zero.
func (s *Sign) Clear() {
	s.mu.Lock()
	s.display[0] = 0
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Level holds a level's LPR plus its temperature/alarm fields. temp and
// alarm have no dedicated lock — in the original C they are `volatile`,
// written by exactly one process (temp by the Simulator, alarm by the
// Fire Alarm Unit) and read by the others. atomic load/store preserves
// that single-writer contract without inventing a lock the original
// doesn't have.
type Level struct {
	LPR   *LPR
	temp  *int32
	alarm *int32
}

func newLevel(buf []byte, base int) *Level {
	return &Level{
		LPR:   newLPR(buf, base),
		temp:  (*int32)(unsafe.Pointer(&buf[base+lprSize])),
		alarm: (*int32)(unsafe.Pointer(&buf[base+lprSize+wordSize])),
	}
}

// Temp returns the current temperature in Celsius.
func (lv *Level) Temp() int16 {
	return int16(atomic.LoadInt32(lv.temp))
}

// SetTemp stores a new temperature.
func (lv *Level) SetTemp(c int16) {
	atomic.StoreInt32(lv.temp, int32(c))
}

// Alarm returns whether this level's alarm flag is set.
func (lv *Level) Alarm() bool {
	return atomic.LoadInt32(lv.alarm) != 0
}

// SetAlarm sets or clears this level's alarm flag.
func (lv *Level) SetAlarm(active bool) {
	var v int32
	if active {
		v = 1
	}
	atomic.StoreInt32(lv.alarm, v)
}

// Entrance groups the three channels of a single entrance.
type Entrance struct {
	LPR  *LPR
	Gate *Gate
	Sign *Sign
}

// Exit groups the two channels of a single exit.
type Exit struct {
	LPR  *LPR
	Gate *Gate
}
