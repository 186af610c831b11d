package simulator

import (
	"math/rand"
	"sync"
)

// RNG wraps a *rand.Rand behind a mutex. spec.md §5 calls out that "the
// RNG is guarded by a dedicated lock since the standard generator is not
// re-entrant" — true of a rand.Rand built on a private Source, which is
// what every car worker, the plate bag and the temperature simulator
// share here, in place of the package-level math/rand functions (whose
// own internal locking would hide the sharing this spec's concurrency
// model wants to make explicit).
type RNG struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRNG seeds a new RNG.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

// Intn returns a uniform random int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// Float64 returns a uniform random float64 in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// IntRange returns a uniform random int in [lo, hi].
func (r *RNG) IntRange(lo, hi int) int {
	return lo + r.Intn(hi-lo+1)
}
