// Package parkerrors defines the sentinel error values shared across the
// Simulator, Manager and Fire Alarm Unit, per spec.md §7. Where a caller
// uses one, it either wraps it with fmt.Errorf("%w: ...") or attaches it
// to a log entry, so errors.Is still matches the sentinel. Other errors
// (for example shared-memory create/open failures) are plain wrapped
// errors that do not carry a sentinel.
package parkerrors

import "errors"

var (
	// ErrInitializationFailure marks a startup failure the process cannot
	// continue from. It is wrapped into the error billing.NewWriter returns
	// when the billing log cannot be opened; the process then exits
	// non-zero.
	ErrInitializationFailure = errors.New("parkctl: initialization failure")

	// ErrProtocolViolation covers a plate event at a level LPR that
	// contradicts the PlateRegistry: a plate that is not on the
	// allow-list, or a plate already current on another level. The level
	// controller logs it with this sentinel, clears the LPR and continues.
	ErrProtocolViolation = errors.New("parkctl: protocol violation")

	// ErrMissingBillingEntry is logged (not fatal) by the exit controller
	// when a car reaches an exit with no matching entry timestamp in the
	// BillingTable — spec.md §4.7 treats this as recoverable: no billing
	// line is written, the exit proceeds, and the occurrence is counted.
	ErrMissingBillingEntry = errors.New("parkctl: missing billing entry for plate")

	// ErrShutdownRace is never returned to a caller as a hard failure; it
	// names the condition internal callers check for explicitly after
	// every blocking wait — a wait that returned because running dropped
	// to false rather than because its predicate became true. Wait
	// helpers in internal/shm report this as a (value, false) result
	// instead of an error; no code returns this sentinel, it only gives
	// the condition a name.
	ErrShutdownRace = errors.New("parkctl: operation aborted by shutdown")
)
