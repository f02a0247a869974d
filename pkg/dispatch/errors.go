package dispatch

import "errors"

var (
	ErrNoEndpointManager = errors.New("raw token dispatch requires an endpoint manager")
	ErrNoWebPushSender   = errors.New("web push sender is not configured")
	ErrNoPlatformSender  = errors.New("platform sender is not configured")
	ErrNoKeySource       = errors.New("web push dispatch requires a vapid key source")
	ErrMissingHandle     = errors.New("platform subscription has no endpoint handle")
)
