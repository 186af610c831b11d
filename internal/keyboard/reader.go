// Package keyboard reads single, unbuffered keystrokes from the
// controlling terminal (spec.md §6: "Interactive keys (terminal raw
// mode, no echo)"). It is a thin collaborator — the keys it reports are
// an abstract input signal; deciding what a key means is the caller's
// job (spec.md §1 explicitly excludes "interactive keypress handling"
// from the in-scope decision logic).
package keyboard

import (
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Reader puts stdin into raw mode and emits one byte per keystroke on
// Keys(). If stdin is not a terminal (e.g. running under a test harness
// or with input redirected), Reader degrades to a no-op: Keys() never
// fires and Close() is always safe to call.
type Reader struct {
	fd       int
	oldState *term.State
	keys     chan byte
	stop     chan struct{}
	done     chan struct{}
	log      *zap.Logger
}

// New puts the controlling terminal into raw mode and starts reading
// keystrokes in the background. Call Close to restore the terminal and
// stop the reader.
func New(log *zap.Logger) (*Reader, error) {
	fd := int(os.Stdin.Fd())
	r := &Reader{
		fd:   fd,
		keys: make(chan byte, 16),
		stop: make(chan struct{}),
		done: make(chan struct{}),
		log:  log,
	}

	if !term.IsTerminal(fd) {
		close(r.done)
		return r, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	r.oldState = oldState

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = term.Restore(fd, oldState)
		return nil, err
	}

	go r.run()
	return r, nil
}

// Keys returns the channel of keystrokes read from the terminal. For a
// terminal-backed Reader it is closed when the Reader is closed or a
// read error stops it; in the non-terminal fallback it is never closed.
func (r *Reader) Keys() <-chan byte { return r.keys }

// Close restores the terminal's original mode and stops the background
// reader. Safe to call even if stdin was never a terminal.
func (r *Reader) Close() error {
	if r.oldState == nil {
		return nil
	}
	close(r.stop)
	<-r.done
	return term.Restore(r.fd, r.oldState)
}

// run polls stdin for single bytes until stop is closed. stdin is
// non-blocking so a closed stop channel is always observed promptly
// instead of leaving the goroutine parked in a blocking Read.
func (r *Reader) run() {
	defer close(r.done)
	defer close(r.keys)

	buf := make([]byte, 1)
	for {
		select {
		case <-r.stop:
			return
		default:
		}

		n, err := unix.Read(r.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if r.log != nil {
				r.log.Warn("keyboard read error", zap.Error(err))
			}
			return
		}
		if n == 0 {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		select {
		case r.keys <- buf[0]:
		case <-r.stop:
			return
		}
	}
}
