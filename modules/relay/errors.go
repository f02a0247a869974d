package relay

import "errors"

var (
	ErrExactlyOneTarget = errors.New("exactly one of device token or web push subscription must be provided")
	ErrMissingSelector  = errors.New("a user id or subscription id is required")
	ErrTitleRequired    = errors.New("notification title is required")
	ErrBodyRequired     = errors.New("notification body is required")
	ErrNoTargets        = errors.New("no registered devices found for the requested target")
	ErrDispatchDisabled = errors.New("notification dispatch is not configured")
	ErrPlatformDisabled = errors.New("platform device registration is not configured")
)
