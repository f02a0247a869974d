package transport

import "errors"

// Payload is the notification content handed to a send primitive.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// Result describes a successful delivery.
type Result struct {
	StatusCode int    // HTTP status from the push service, zero for platform sends
	MessageID  string // transport-assigned message identifier, when available
}

// SendError is a per-target delivery failure. Terminal marks outcomes where
// the transport asserts the destination can never receive pushes again; a
// single terminal signal is authoritative and drives retirement.
type SendError struct {
	StatusCode int
	Terminal   bool
	Err        error
}

func (e *SendError) Error() string {
	msg := "push delivery failed"
	if e.Terminal {
		msg = "push destination permanently invalid"
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err carries a terminal delivery failure.
func IsTerminal(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.Terminal
}
