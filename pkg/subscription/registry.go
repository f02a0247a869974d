package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relaykit/pkg/logger"
)

// Registry is the CRUD surface and state machine over subscription records.
// It never flips status directly: retirement happens only through the
// RecordFailure write-through when the transport signals a terminal outcome.
type Registry struct {
	storage Storage
	logger  *slog.Logger
	now     func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for the Registry.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryClock overrides the time source, used by tests for
// deterministic timestamps.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a new subscription registry.
// Panics if storage is nil to fail fast during initialization.
func NewRegistry(storage Storage, opts ...RegistryOption) *Registry {
	if storage == nil {
		panic("subscription: Storage is required")
	}

	r := &Registry{
		storage: storage,
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register stores an active subscription for the owner and target. The
// subscription ID is derived from the target identity, so registering the
// same physical endpoint twice overwrites the existing record instead of
// duplicating it. Returns the stored record.
func (r *Registry) Register(ctx context.Context, ownerID string, target Target) (Subscription, error) {
	sub, err := New(ownerID, target, r.now())
	if err != nil {
		return Subscription{}, err
	}

	if err := r.storage.Put(ctx, sub); err != nil {
		return Subscription{}, err
	}

	r.logger.LogAttrs(ctx, slog.LevelInfo, "Subscription registered",
		logger.OwnerID(sub.OwnerID),
		logger.SubscriptionID(sub.ID),
		logger.Endpoint(sub.Target.Identity()),
	)

	return sub, nil
}

// DeregisterAll removes every subscription for an owner and returns the
// number removed. Returns ErrSubscriptionNotFound when the owner has none.
func (r *Registry) DeregisterAll(ctx context.Context, ownerID string) (int, error) {
	subs, err := r.storage.QueryByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, ErrSubscriptionNotFound
	}

	removed := 0
	for _, sub := range subs {
		if err := r.storage.Delete(ctx, ownerID, sub.ID); err != nil {
			return removed, err
		}
		removed++
	}

	r.logger.LogAttrs(ctx, slog.LevelInfo, "Owner subscriptions deregistered",
		logger.OwnerID(ownerID),
		slog.Int("removed", removed),
	)

	return removed, nil
}

// DeregisterOne removes a single subscription by its ID, resolving the owner
// through the broadcast scan. Returns ErrSubscriptionNotFound when absent.
func (r *Registry) DeregisterOne(ctx context.Context, subID string) error {
	sub, err := r.findByID(ctx, subID)
	if err != nil {
		return err
	}
	return r.storage.Delete(ctx, sub.OwnerID, sub.ID)
}

// Get retrieves a single subscription by its composite key.
func (r *Registry) Get(ctx context.Context, ownerID, subID string) (*Subscription, error) {
	return r.storage.Get(ctx, ownerID, subID)
}

// List returns every subscription for an owner regardless of status, or all
// subscriptions when ownerID is empty. Retired records are included so
// callers can inspect dead endpoints.
func (r *Registry) List(ctx context.Context, ownerID string) ([]Subscription, error) {
	if ownerID == "" {
		return r.storage.ScanAll(ctx)
	}
	return r.storage.QueryByOwner(ctx, ownerID)
}

// ListActive returns the owner's live dispatch targets.
func (r *Registry) ListActive(ctx context.Context, ownerID string) ([]Subscription, error) {
	subs, err := r.storage.QueryByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return filterActive(subs), nil
}

// ListAllActive returns every live dispatch target. Broadcast resolution path.
func (r *Registry) ListAllActive(ctx context.Context) ([]Subscription, error) {
	subs, err := r.storage.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	return filterActive(subs), nil
}

// FindActiveByID resolves a single-subscription selector. Returns
// ErrSubscriptionNotFound when the subscription is absent or retired.
func (r *Registry) FindActiveByID(ctx context.Context, subID string) (*Subscription, error) {
	sub, err := r.findByID(ctx, subID)
	if err != nil {
		return nil, err
	}
	if !sub.IsActive() {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// RecordSuccess resets the failure counter and stamps the last delivery time.
func (r *Registry) RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error {
	return r.storage.RecordSuccess(ctx, ownerID, subID, at)
}

// RecordFailure increments the failure counter; a terminal outcome also
// retires the subscription in the same write.
func (r *Registry) RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error {
	return r.storage.RecordFailure(ctx, ownerID, subID, terminal, at)
}

func (r *Registry) findByID(ctx context.Context, subID string) (*Subscription, error) {
	subs, err := r.storage.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, sub := range subs {
		if sub.ID == subID {
			out := sub
			return &out, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func filterActive(subs []Subscription) []Subscription {
	active := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.IsActive() {
			active = append(active, sub)
		}
	}
	return active
}
