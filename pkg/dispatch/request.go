package dispatch

// Selector narrows a dispatch to a subset of targets. The zero value means
// broadcast to every active subscription. When several fields are set the
// most specific wins: RawToken over SubscriptionID over OwnerID.
type Selector struct {
	OwnerID        string
	SubscriptionID string
	RawToken       string
}

// IsBroadcast reports whether the selector targets all active subscriptions.
func (s Selector) IsBroadcast() bool {
	return s == Selector{}
}

// Request is one notification dispatch.
type Request struct {
	Title string
	Body  string
	Data  map[string]any
	To    Selector
}

// Outcome is the per-target delivery result.
type Outcome struct {
	OwnerID        string
	SubscriptionID string
	Endpoint       string // push service URL, endpoint handle, or raw token tag
	Ephemeral      bool   // raw-token target, never written back to the store
	OK             bool
	StatusCode     int
	MessageID      string
	Err            error
}

// Result aggregates a dispatch fan-out. Partial failure is represented here
// as data; it never fails the dispatch call itself.
type Result struct {
	BatchID  string // correlates log lines of one fan-out
	Total    int
	Sent     int
	Failed   int
	Outcomes []Outcome
}
