package endpoint

import "errors"

var (
	ErrTokenRequired        = errors.New("device token is required")
	ErrCreateEndpointFailed = errors.New("failed to create platform endpoint")
	ErrDeleteEndpointFailed = errors.New("failed to delete platform endpoint")
	// ErrConflictUnresolved is returned when the push platform reports the
	// token already bound to an endpoint but the existing handle cannot be
	// recovered from the error. This is a hard error: the manager never
	// fabricates a placeholder handle.
	ErrConflictUnresolved = errors.New("duplicate token conflict could not be resolved to an existing endpoint")
)
