// Package dispatch turns one notification request into concurrent deliveries
// across every resolved target and folds the results back into subscription
// state.
//
// A Request carries the payload plus a Selector. Resolution picks the most
// specific selector field: a raw device token bypasses the registry entirely
// through a throwaway endpoint, a subscription ID resolves one record, an
// owner ID resolves the owner's active set, and the zero selector broadcasts
// to every active subscription.
//
// Per-target delivery failures are represented as Outcomes in the Result,
// never as errors: a dead endpoint must not hide the deliveries that worked.
// Only structural failures such as selector resolution or signing key fetch
// fail the Dispatch call itself.
//
// The Tracker is the single writer of post-delivery subscription state. A
// terminal transport failure retires the subscription in the same write that
// bumps its failure counter; bookkeeping errors are logged and swallowed.
package dispatch
