package manager

import (
	"math/rand"
	"sync"
	"time"
)

// admissionRand is a dedicated, mutex-guarded generator for the entry
// controller's level-assignment randomness — spec.md §5 calls for the
// RNG to be guarded by its own lock rather than shared ad-hoc with other
// subsystems' randomness.
var admissionRand = struct {
	mu  sync.Mutex
	src *rand.Rand
}{src: rand.New(rand.NewSource(time.Now().UnixNano()))}

func defaultPickIndex(n int) int {
	admissionRand.mu.Lock()
	defer admissionRand.mu.Unlock()
	return admissionRand.src.Intn(n)
}

// nowMS returns the current time as milliseconds since the Unix epoch,
// the BillingTable's timestamp unit (spec.md §3).
func nowMS() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}
