// Package auction implements the auction lifecycle and bidding rules:
// status transitions driven by the time window, bid acceptance, winner
// resolution at close, and the reconciliation sweep that applies the
// same rules to auctions whose window elapsed without a write.
package auction

import "errors"

// Validation errors: the input itself is malformed.  Handlers map
// these to 400.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrNegativePrice = errors.New("starting price cannot be negative")
	ErrInvalidWindow = errors.New("end time must be after start time")
	ErrStartInPast   = errors.New("start time cannot be in the past")
	ErrInvalidAmount = errors.New("bid amount must be positive")
)

// Rule violations: well-formed input rejected by business rules.  The
// sentinel text is the structured rejection reason surfaced to the
// caller.
var (
	ErrNotActive  = errors.New("auction not active")
	ErrOwnAuction = errors.New("cannot bid on own auction")
	ErrBidTooLow  = errors.New("bid too low")
	ErrClosed     = errors.New("auction closed")
)

// ErrConflict is returned after a per-auction mutation lost the race
// repeatedly (deadlock or lock wait timeout on every attempt).  It is
// transient; callers may retry the request.
var ErrConflict = errors.New("concurrent update conflict")
