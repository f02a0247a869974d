package subscription

import "errors"

// Domain errors for subscription persistence and lifecycle management.
// Storage implementations wrap driver failures with these sentinels using
// errors.Join so callers can classify without knowing the backend.
var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrStoreUnavailable     = errors.New("subscription store unavailable")
	ErrCorruptRecord        = errors.New("corrupt subscription record")
	ErrInvalidTarget        = errors.New("invalid subscription target")
)
