// Package shmtest provides an in-process fake shared-memory region for
// exercising internal/manager, internal/simulator and internal/firealarm
// protocol logic without spawning real OS processes or touching
// /dev/shm. It wraps the exact same internal/shm.Region construction
// path (NewFromBuffer) that the real mmap-backed processes use, so the
// channel semantics under test are identical to production — only the
// backing memory's origin differs.
package shmtest

import "github.com/parkctl/parkctl/internal/shm"

// New builds a *shm.Region over a freshly allocated buffer sized for the
// given garage shape. Because the three test processes in a single Go
// test binary share one address space, every goroutine that calls New
// with the same arguments in the same test gets its own independent
// region — callers that want to simulate "three processes talking" must
// share a single *shm.Region value across their goroutines, exactly as
// three real processes share one mmap.
func New(numEntrances, numExits, numLevels int) *shm.Region {
	layout := shm.Layout{
		NumEntrances: numEntrances,
		NumExits:     numExits,
		NumLevels:    numLevels,
	}
	buf := make([]byte, layout.Size())
	r, err := shm.NewFromBuffer(buf, layout)
	if err != nil {
		// Size is computed from the same Layout, so this cannot fail;
		// a panic here means layout.Size() and this package disagree.
		panic(err)
	}
	return r
}
