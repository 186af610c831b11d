// Package dashboard renders the Manager's already-computed state to the
// terminal; the Simulator has no status pane. It is a thin collaborator (spec.md §1: "the terminal
// status dashboards (rendering only — the data they read is in
// scope)") — it never computes occupancy, billing or alarm state
// itself, only reads and formats it.
package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/parkctl/parkctl/internal/adminsock"
)

// StatusProvider is anything that can report a read-only status
// snapshot. *manager.Manager satisfies this (it already implements
// adminsock.StatusProvider for the admin socket — the dashboard reuses
// the same snapshot shape instead of inventing a second one).
type StatusProvider interface {
	Status() adminsock.Status
}

// Dashboard periodically redraws a StatusProvider's snapshot to an
// io.Writer (normally os.Stdout) until Stop is called.
type Dashboard struct {
	provider StatusProvider
	out      io.Writer
	period   time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// New creates a Dashboard that redraws every period.
func New(provider StatusProvider, out io.Writer, period time.Duration) *Dashboard {
	return &Dashboard{
		provider: provider,
		out:      out,
		period:   period,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the redraw loop in a background goroutine.
func (d *Dashboard) Start() {
	go d.run()
}

// Stop ends the redraw loop and waits for it to exit.
func (d *Dashboard) Stop() {
	close(d.stop)
	<-d.done
}

func (d *Dashboard) run() {
	defer close(d.done)
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.render()
		}
	}
}

func (d *Dashboard) render() {
	status := d.provider.Status()

	// ANSI clear + home, then redraw — same full-repaint approach as
	// the original's curses-style screen, without pulling in a curses
	// binding for a read-only table.
	fmt.Fprint(d.out, "\x1b[2J\x1b[H")

	tw := tabwriter.NewWriter(d.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tOCCUPIED\tCAPACITY\tALARM")
	for _, lvl := range status.Levels {
		alarm := ""
		if lvl.AlarmActive {
			alarm = "EVACUATE"
		}
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\n", lvl.Level, lvl.Occupied, lvl.Capacity, alarm)
	}
	tw.Flush()

	fmt.Fprintf(d.out, "\nbilling total: $%.2f\n", status.BillingTotalDollars)
}
