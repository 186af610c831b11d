// Package shm defines the byte-exact shared-memory layout described in
// spec.md §3/§6 and provides the process-shared channel primitives
// (PlateReader, Gate, Sign) built on internal/shmsync.
//
// Layout (all offsets computed at runtime from N_ENT/N_EXIT/N_LVL, but
// stable once computed — every process derives the same offsets from the
// same three counts):
//
//	Entrance[0..N_ENT-1]: {LPR, Gate, Sign} contiguous, 48 bytes each
//	Exit[0..N_EXIT-1]:    {LPR, Gate}       contiguous, 32 bytes each
//	Level[0..N_LVL-1]:    {LPR, temp, alarm} contiguous, 24 bytes each
//
// Every (lock, wait-variable, payload) triple is laid out lock-then-seq-
// then-payload so the two 4-byte synchronization words are always at the
// start of the struct and naturally 4-byte aligned, which unsafe-pointer
// casts to *uint32 (required by internal/shmsync) need.
package shm

const (
	wordSize = 4 // size of a shmsync lock or sequence word

	// lprSize: lock(4) + seq(4) + plate(6) + pad(2)
	lprSize = wordSize + wordSize + 6 + 2

	// gateSize: lock(4) + seq(4) + status(1) + pad(7)
	gateSize = wordSize + wordSize + 1 + 7

	// signSize: lock(4) + seq(4) + display(1) + pad(7)
	signSize = wordSize + wordSize + 1 + 7

	// entranceSize: LPR + Gate + Sign
	entranceSize = lprSize + gateSize + signSize

	// exitSize: LPR + Gate
	exitSize = lprSize + gateSize

	// levelSize: LPR + temp(int32, 4) + alarm(int32, 4)
	//
	// The original C packs temp as int16 and alarm as int8; this
	// reimplementation widens both to int32 so they can be accessed with
	// sync/atomic (the fields are read by one process and written by
	// another with no lock — the C "volatile" qualifier's role here is
	// played by an atomic load/store instead).
	levelSize = lprSize + wordSize + wordSize
)

// Layout holds the computed geometry of a region for a given garage
// shape. It is pure arithmetic — no memory, no syscalls — shared by both
// the real mmap-backed Region and the in-memory shmtest fake.
type Layout struct {
	NumEntrances int
	NumExits     int
	NumLevels    int
}

// Size returns the total byte size of the shared region for this layout.
func (l Layout) Size() int {
	return l.NumEntrances*entranceSize + l.NumExits*exitSize + l.NumLevels*levelSize
}

func (l Layout) entranceOffset(i int) int {
	return i * entranceSize
}

func (l Layout) exitOffset(i int) int {
	return l.NumEntrances*entranceSize + i*exitSize
}

func (l Layout) levelOffset(i int) int {
	return l.NumEntrances*entranceSize + l.NumExits*exitSize + i*levelSize
}
