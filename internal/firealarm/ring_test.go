package firealarm

import "testing"

func TestRingPushEvictsOldest(t *testing.T) {
	r := newRing(3)
	r.push(1)
	r.push(2)
	r.push(3)
	if !r.full() {
		t.Fatal("expected full after 3 pushes into a size-3 ring")
	}
	if r.first() != 1 || r.last() != 3 {
		t.Fatalf("expected first=1 last=3, got first=%d last=%d", r.first(), r.last())
	}
	r.push(4)
	if r.first() != 2 || r.last() != 4 {
		t.Fatalf("expected first=2 last=4 after eviction, got first=%d last=%d", r.first(), r.last())
	}
}

func TestRingNotFullUntilFilled(t *testing.T) {
	r := newRing(5)
	for i := 0; i < 4; i++ {
		r.push(int16(i))
		if r.full() {
			t.Fatalf("ring reported full after only %d pushes", i+1)
		}
	}
	r.push(4)
	if !r.full() {
		t.Fatal("expected full after 5 pushes into a size-5 ring")
	}
}

func TestRingMedian(t *testing.T) {
	r := newRing(5)
	for _, v := range []int16{9, 1, 5, 3, 7} {
		r.push(v)
	}
	if got := r.median(); got != 5 {
		t.Fatalf("expected median 5, got %d", got)
	}
}

func TestRingCountAtLeast(t *testing.T) {
	r := newRing(5)
	for _, v := range []int16{60, 59, 58, 30, 57} {
		r.push(v)
	}
	if got := r.countAtLeast(58); got != 3 {
		t.Fatalf("expected 3 samples >= 58, got %d", got)
	}
}
