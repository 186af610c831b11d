package shm_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/parkctl/parkctl/internal/shm/shmtest"
)

func plateOf(s string) [6]byte {
	var p [6]byte
	copy(p[:], s)
	return p
}

func running(v bool) *atomic.Bool {
	var b atomic.Bool
	b.Store(v)
	return &b
}

func TestLPRPostConsumeClear(t *testing.T) {
	r := shmtest.New(1, 1, 1)
	lpr := r.Entrance(0).LPR
	run := running(true)

	done := make(chan [6]byte, 1)
	go func() {
		plate, ok := lpr.Consume(run)
		if !ok {
			t.Error("Consume returned ok=false while running")
		}
		done <- plate
	}()

	time.Sleep(10 * time.Millisecond)
	if !lpr.Post(run, plateOf("ABC123")) {
		t.Fatal("Post returned false unexpectedly")
	}

	select {
	case got := <-done:
		if string(got[:]) != "ABC123" {
			t.Fatalf("consumed plate = %q, want %q", got, "ABC123")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Consume never returned")
	}

	// Until Clear is called, a second Post must block.
	secondPosted := make(chan struct{})
	go func() {
		lpr.Post(run, plateOf("ZZZ999"))
		close(secondPosted)
	}()

	select {
	case <-secondPosted:
		t.Fatal("second Post returned before Clear, slot reuse invariant violated")
	case <-time.After(50 * time.Millisecond):
	}

	lpr.Clear()

	select {
	case <-secondPosted:
	case <-time.After(2 * time.Second):
		t.Fatal("second Post never unblocked after Clear")
	}
}

func TestLPRPostUnblocksOnShutdown(t *testing.T) {
	r := shmtest.New(1, 1, 1)
	lpr := r.Entrance(0).LPR
	run := running(true)

	// Fill the slot so a subsequent Post must wait.
	if !lpr.Post(run, plateOf("FIRST1")) {
		t.Fatal("initial Post failed")
	}

	blocked := make(chan bool, 1)
	go func() {
		blocked <- lpr.Post(run, plateOf("SECOND"))
	}()

	time.Sleep(20 * time.Millisecond)
	run.Store(false)
	lpr.Clear() // Clear is what wakes the waiter; shutdown alone wouldn't.

	select {
	case ok := <-blocked:
		if ok {
			t.Fatal("Post returned true after shutdown, want false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Post never unblocked on shutdown")
	}
}

func TestGateCycle(t *testing.T) {
	r := shmtest.New(1, 0, 0)
	g := r.Entrance(0).Gate

	if got := g.Status(); got != 'C' {
		t.Fatalf("initial gate status = %q, want 'C'", got)
	}

	run := running(true)
	waited := make(chan bool, 1)
	go func() {
		waited <- g.WaitFor(run, 'O')
	}()

	time.Sleep(10 * time.Millisecond)
	g.Set('R')
	g.Set('O')

	select {
	case ok := <-waited:
		if !ok {
			t.Fatal("WaitFor('O') returned false")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitFor('O') never returned")
	}
}

func TestSignWaitForNonZero(t *testing.T) {
	r := shmtest.New(1, 0, 0)
	s := r.Entrance(0).Sign
	run := running(true)

	result := make(chan byte, 1)
	go func() {
		b, ok := s.WaitForNonZero(run)
		if !ok {
			t.Error("WaitForNonZero returned ok=false")
		}
		result <- b
	}()

	time.Sleep(10 * time.Millisecond)
	s.Set('A')

	select {
	case b := <-result:
		if b != 'A' {
			t.Fatalf("display = %q, want 'A'", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForNonZero never returned")
	}
}

func TestLevelTempAndAlarm(t *testing.T) {
	r := shmtest.New(0, 0, 1)
	lv := r.Level(0)

	if got := lv.Temp(); got != 25 {
		t.Fatalf("initial temp = %d, want 25", got)
	}
	if lv.Alarm() {
		t.Fatal("initial alarm = true, want false")
	}

	lv.SetTemp(61)
	if got := lv.Temp(); got != 61 {
		t.Fatalf("temp after SetTemp = %d, want 61", got)
	}

	lv.SetAlarm(true)
	if !lv.Alarm() {
		t.Fatal("alarm after SetAlarm(true) = false, want true")
	}
}

func TestMultipleEntrancesAreIndependent(t *testing.T) {
	r := shmtest.New(2, 1, 1)
	run := running(true)

	if !r.Entrance(0).LPR.Post(run, plateOf("AAA111")) {
		t.Fatal("post to entrance 0 failed")
	}
	// entrance 1's LPR must still be empty — layout offsets must not overlap.
	select {
	case <-func() chan struct{} {
		ch := make(chan struct{})
		go func() {
			plate, ok := r.Entrance(1).LPR.Consume(run)
			if ok {
				t.Errorf("entrance 1 unexpectedly had a plate: %q", plate)
			}
		}()
		return ch
	}():
	case <-time.After(30 * time.Millisecond):
		// expected: entrance 1 has nothing to consume, so its goroutine is
		// still blocked in Consume; that's success for this test.
	}
}
