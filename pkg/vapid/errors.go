package vapid

import "errors"

var (
	ErrIncompleteKeys      = errors.New("vapid key material is incomplete")
	ErrSecretFetchFailed   = errors.New("failed to fetch vapid secret")
	ErrSecretMalformed     = errors.New("vapid secret payload is malformed")
	ErrFailedToLoadConfig  = errors.New("failed to load vapid configuration")
)
