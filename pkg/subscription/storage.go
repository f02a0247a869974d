package subscription

import (
	"context"
	"time"
)

// Storage handles subscription persistence. All operations are point- or
// owner-scoped over the (owner_id, subscription_id) composite key; no
// secondary filtering lives here.
//
// RecordSuccess and RecordFailure are per-key atomic on backends that support
// it, which removes the lost-update race on the failure counter under
// concurrent dispatches.
type Storage interface {
	// Get retrieves a single subscription.
	// Returns ErrSubscriptionNotFound if no record exists.
	Get(ctx context.Context, ownerID, subID string) (*Subscription, error)

	// Put stores a subscription with unconditional overwrite semantics.
	Put(ctx context.Context, sub Subscription) error

	// QueryByOwner returns every subscription registered for an owner.
	QueryByOwner(ctx context.Context, ownerID string) ([]Subscription, error)

	// ScanAll returns every stored subscription. Broadcast/administrative path.
	ScanAll(ctx context.Context) ([]Subscription, error)

	// Delete removes a single subscription.
	// Returns ErrSubscriptionNotFound if no record exists.
	Delete(ctx context.Context, ownerID, subID string) error

	// RecordSuccess resets the failure counter and stamps the last delivery.
	RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error

	// RecordFailure increments the failure counter and, when the failure is
	// terminal, retires the subscription in the same update.
	RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error
}
