package keyboard

import "testing"

// Test binaries don't run with a controlling terminal attached to
// stdin, so New degrades to its non-terminal fallback path here —
// this exercises that path specifically.
func TestNewNonTerminalFallback(t *testing.T) {
	r, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	select {
	case _, ok := <-r.Keys():
		if ok {
			t.Fatal("expected no keys on a non-terminal fallback reader")
		}
	default:
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
