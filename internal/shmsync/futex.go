// Package shmsync implements process-shared mutual exclusion and
// condition-variable broadcast on top of Linux futexes.
//
// Go's standard library has no equivalent of pthread_mutexattr_setpshared:
// sync.Mutex and sync.Cond are only valid within one address space. The
// shared-memory protocol in spec.md §4.1/§9 needs primitives that work
// across process boundaries, so this package builds them directly on the
// futex(2) syscall, operating on a uint32 word that lives inside the
// memory-mapped region itself (see internal/shm). Any process that maps
// the same bytes can lock the same mutex and wait on the same condition
// variable — the kernel's futex wait queue is keyed by physical address,
// not by in-process identity.
//
// The mutex is the standard two-/three-state futex mutex (unlocked,
// locked-uncontended, locked-contended). The condition variable is a
// sequence counter: Wait() snapshots the sequence, releases the mutex,
// and blocks until the sequence changes (Broadcast/Signal bump it and
// wake waiters) — this is the same race-free handoff pthread_cond_wait
// provides, and it tolerates spurious wakeups the same way: every caller
// in this codebase re-checks its real predicate in a loop around Wait(),
// never trusting the wakeup alone.
package shmsync

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	mutexUnlocked   uint32 = 0
	mutexLocked     uint32 = 1
	mutexContended  uint32 = 2
)

// Mutex is a process-shared mutual exclusion lock backed by a uint32 word
// at a fixed address inside a memory-mapped region. The zero value of the
// backing word is "unlocked", so a freshly mmap'd (zero-filled) region
// needs no explicit initialization call — unlike pthread_mutex_init,
// which the original C must call once per primitive at creation time.
type Mutex struct {
	state *uint32
}

// NewMutex binds a Mutex to the uint32 at the given address. addr must
// point into memory visible to every process that will use this Mutex
// (i.e. into a memory-mapped shared region), and must be 4-byte aligned.
func NewMutex(addr *uint32) *Mutex {
	return &Mutex{state: addr}
}

// Lock acquires the mutex, blocking until it is available.
func (m *Mutex) Lock() {
	if atomic.CompareAndSwapUint32(m.state, mutexUnlocked, mutexLocked) {
		return
	}
	for {
		old := atomic.SwapUint32(m.state, mutexContended)
		if old == mutexUnlocked {
			return
		}
		futexWait(m.state, mutexContended)
	}
}

// Unlock releases the mutex. The caller must hold it.
func (m *Mutex) Unlock() {
	if atomic.SwapUint32(m.state, mutexUnlocked) == mutexContended {
		futexWake(m.state, 1)
	}
}

// Cond is a process-shared condition variable, always used together with
// a specific Mutex that the caller holds across Wait().
type Cond struct {
	seq *uint32
}

// NewCond binds a Cond to the uint32 sequence counter at the given
// address. Like NewMutex, the zero value is a valid starting state.
func NewCond(addr *uint32) *Cond {
	return &Cond{seq: addr}
}

// Wait releases m, blocks until Broadcast or Signal is called (or a
// spurious wakeup occurs), then reacquires m before returning. Callers
// must always re-check their own predicate in a loop — Wait does not
// guarantee the condition that woke it still holds.
func (c *Cond) Wait(m *Mutex) {
	old := atomic.LoadUint32(c.seq)
	m.Unlock()
	futexWait(c.seq, old)
	m.Lock()
}

// Broadcast wakes every waiter blocked in Wait. Used whenever more than
// one observer may be blocked on the same channel (spec.md §4.2: "the
// Manager's controller and the car thread can both wait on entrance/
// level/exit LPRs").
func (c *Cond) Broadcast() {
	atomic.AddUint32(c.seq, 1)
	futexWake(c.seq, maxWaiters)
}

// Signal wakes at most one waiter blocked in Wait.
func (c *Cond) Signal() {
	atomic.AddUint32(c.seq, 1)
	futexWake(c.seq, 1)
}

// maxWaiters is large enough to wake every conceivable waiter on a single
// channel; FUTEX_WAKE clamps internally to the actual queue length.
const maxWaiters = 1 << 30

func futexWait(addr *uint32, expected uint32) {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWait),
		uintptr(expected),
		0, 0, 0,
	)
	// EAGAIN means the value already changed before the kernel could
	// block us — treat it the same as a normal wakeup; EINTR means a
	// signal interrupted the wait. Both are handled by the caller's
	// predicate re-check loop, so there is nothing to do here.
	_ = errno
}

func futexWake(addr *uint32, n int) {
	_, _, _ = unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(linuxFutexWake),
		uintptr(n),
		0, 0, 0,
	)
}

const (
	linuxFutexWait = 0 // FUTEX_WAIT
	linuxFutexWake = 1 // FUTEX_WAKE
)
