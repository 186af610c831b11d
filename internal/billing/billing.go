// Package billing implements the Manager's BillingTable (spec.md §3) and
// the append-only billing log writer (spec.md §4.7).
package billing

import (
	"fmt"
	"os"
	"sync"

	"github.com/parkctl/parkctl/internal/observability"
	"github.com/parkctl/parkctl/internal/parkerrors"
)

// Table maps a plate to the millisecond timestamp it entered the
// garage. Entries are removed by TakeEntry when the car exits.
type Table struct {
	mu      sync.Mutex
	entries map[string]int64
}

// NewTable returns an empty BillingTable.
func NewTable() *Table {
	return &Table{entries: make(map[string]int64)}
}

// RecordEntry stores the entry timestamp for plate, called by the entry
// controller's Gated state (spec.md §4.5).
func (t *Table) RecordEntry(plate string, entryMS int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[plate] = entryMS
}

// TakeEntry removes and returns plate's entry timestamp. ok is false if
// no entry exists, which the exit controller treats as
// parkerrors.ErrMissingBillingEntry rather than a fatal condition
// (spec.md §4.7 combined with §7).
func (t *Table) TakeEntry(plate string) (entryMS int64, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entryMS, ok = t.entries[plate]
	if ok {
		delete(t.entries, plate)
	}
	return entryMS, ok
}

// Writer appends billing lines to a log file and tracks a running total,
// mirroring spec.md §4.7's `"PPPPPP $AMOUNT\n"` format.
type Writer struct {
	mu      sync.Mutex
	f       *os.File
	total   float64
	metrics *observability.Metrics // nil if the caller doesn't want metrics
}

// NewWriter opens path for appending, creating it if necessary.
func NewWriter(path string, metrics *observability.Metrics) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("%w: open billing log %q: %v", parkerrors.ErrInitializationFailure, path, err)
	}
	return &Writer{f: f, metrics: metrics}, nil
}

// Append writes one billing line for plate and amount (in dollars) and
// adds amount to the running total.
func (w *Writer) Append(plate string, amount float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.f, "%s $%.2f\n", plate, amount); err != nil {
		return fmt.Errorf("append billing entry for %q: %w", plate, err)
	}
	w.total += amount

	if w.metrics != nil {
		w.metrics.BillingEntriesTotal.Inc()
		w.metrics.BillingTotalDollars.Add(amount)
	}
	return nil
}

// RecordMissing increments the missing-entry counter without writing a
// billing line — used when TakeEntry reports no matching entry.
func (w *Writer) RecordMissing() {
	if w.metrics != nil {
		w.metrics.BillingMissingTotal.Inc()
	}
}

// Total returns the running total billed across all exits.
func (w *Writer) Total() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.total
}

// Close closes the underlying billing log file.
func (w *Writer) Close() error {
	return w.f.Close()
}
