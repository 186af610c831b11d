package shm

// PlateBytes packs a plate string into the fixed 6-byte wire form used
// by every LPR. Panics if s is not exactly 6 bytes — callers are
// expected to validate plate shape before reaching shared memory.
func PlateBytes(s string) [6]byte {
	if len(s) != 6 {
		panic("shm: plate must be exactly 6 bytes: " + s)
	}
	var b [6]byte
	copy(b[:], s)
	return b
}

// PlateString unpacks a 6-byte LPR payload back into a string.
func PlateString(b [6]byte) string {
	return string(b[:])
}
