package simulator

import "sync"

// PlateBag is the Simulator-local set of allow-listed plates that are
// not currently the subject of a live car worker (spec.md §3). It is
// grounded directly on the original source's sim_plates.c linked list:
// random_available_plate there pulls an allow-listed plate from the bag
// roughly half the time and fabricates a synthetic unknown plate the
// rest of the time, to exercise the Manager's rejection path.
type PlateBag struct {
	mu        sync.Mutex
	available []string
	rng       *RNG
}

// NewPlateBag seeds a bag from an allow-list.
func NewPlateBag(allowList []string, rng *RNG) *PlateBag {
	bag := &PlateBag{rng: rng}
	bag.available = append(bag.available, allowList...)
	return bag
}

// Take removes and returns a random allow-listed plate, with
// ok == false if the bag is currently empty.
func (b *PlateBag) Take() (plate string, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.available) == 0 {
		return "", false
	}
	i := b.rng.Intn(len(b.available))
	plate = b.available[i]
	b.available[i] = b.available[len(b.available)-1]
	b.available = b.available[:len(b.available)-1]
	return plate, true
}

// Return puts plate back into the bag, called on successful exit
// (spec.md §3: "returns on successful exit").
func (b *PlateBag) Return(plate string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = append(b.available, plate)
}

const (
	plateLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	plateDigits  = "0123456789"
)

// RandomUnknown fabricates a syntactically valid but non-allow-listed
// plate (AAA000-shaped), used by the car generator to exercise the
// Manager's "unknown plate" rejection path — ported from
// random_available_plate's fallback branch.
func RandomUnknown(rng *RNG) string {
	b := make([]byte, 6)
	for i := 0; i < 3; i++ {
		b[i] = plateLetters[rng.Intn(len(plateLetters))]
	}
	for i := 3; i < 6; i++ {
		b[i] = plateDigits[rng.Intn(len(plateDigits))]
	}
	return string(b)
}

// Next produces the plate for a new car: with 50% probability (and if
// the bag is non-empty) an allow-listed plate pulled from the bag,
// otherwise a synthetic unknown plate. fromBag reports which case
// occurred, so a caller that fails to dispatch the car knows whether it
// must return the plate to the bag.
func (b *PlateBag) Next(rng *RNG) (plate string, fromBag bool) {
	if rng.Intn(2) == 0 {
		if p, ok := b.Take(); ok {
			return p, true
		}
	}
	return RandomUnknown(rng), false
}
