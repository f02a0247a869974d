package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/subscription"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Get(ctx context.Context, ownerID, subID string) (*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, subID)
	if sub := args.Get(0); sub != nil {
		return sub.(*subscription.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) Put(ctx context.Context, sub subscription.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *mockStorage) QueryByOwner(ctx context.Context, ownerID string) ([]subscription.Subscription, error) {
	args := m.Called(ctx, ownerID)
	if subs := args.Get(0); subs != nil {
		return subs.([]subscription.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) ScanAll(ctx context.Context) ([]subscription.Subscription, error) {
	args := m.Called(ctx)
	if subs := args.Get(0); subs != nil {
		return subs.([]subscription.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStorage) Delete(ctx context.Context, ownerID, subID string) error {
	return m.Called(ctx, ownerID, subID).Error(0)
}

func (m *mockStorage) RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error {
	return m.Called(ctx, ownerID, subID, at).Error(0)
}

func (m *mockStorage) RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error {
	return m.Called(ctx, ownerID, subID, terminal, at).Error(0)
}

func webPushTarget(endpoint string) subscription.Target {
	return subscription.Target{
		Kind:     subscription.KindWebPush,
		Endpoint: endpoint,
		P256dh:   "p256dh",
		Auth:     "auth",
	}
}

func TestRegistry_RegisterIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	first, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)

	second, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	subs, err := registry.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestRegistry_RegisterDefaultsOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	sub, err := registry.Register(ctx, "", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)
	assert.Equal(t, subscription.AnonymousOwner, sub.OwnerID)
}

func TestRegistry_RegisterStoreError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	storage := new(mockStorage)
	storage.On("Put", mock.Anything, mock.Anything).Return(subscription.ErrStoreUnavailable)

	registry := subscription.NewRegistry(storage)
	_, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)
	storage.AssertExpectations(t)
}

func TestRegistry_DeregisterAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	_, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)
	_, err = registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/def"))
	require.NoError(t, err)

	removed, err := registry.DeregisterAll(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	_, err = registry.DeregisterAll(ctx, "u1")
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}

func TestRegistry_DeregisterOne(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	sub, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)

	require.NoError(t, registry.DeregisterOne(ctx, sub.ID))
	assert.ErrorIs(t, registry.DeregisterOne(ctx, sub.ID), subscription.ErrSubscriptionNotFound)
}

func TestRegistry_ListActiveExcludesRetired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	live, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)
	dead, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/def"))
	require.NoError(t, err)

	require.NoError(t, registry.RecordFailure(ctx, "u1", dead.ID, true, time.Now()))

	active, err := registry.ListActive(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, live.ID, active[0].ID)

	// Retired record stays visible on the unfiltered listing
	all, err := registry.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRegistry_ListAllActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	_, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)
	_, err = registry.Register(ctx, "u2", webPushTarget("https://push.example.com/v2/def"))
	require.NoError(t, err)

	active, err := registry.ListAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestRegistry_FindActiveByID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	registry := subscription.NewRegistry(subscription.NewMemoryStorage())

	sub, err := registry.Register(ctx, "u1", webPushTarget("https://push.example.com/v2/abc"))
	require.NoError(t, err)

	found, err := registry.FindActiveByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, found.ID)

	require.NoError(t, registry.RecordFailure(ctx, "u1", sub.ID, true, time.Now()))
	_, err = registry.FindActiveByID(ctx, sub.ID)
	assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
}

func TestRegistry_StoreErrorsPropagate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	cause := errors.New("connection refused")
	storage := new(mockStorage)
	storage.On("QueryByOwner", mock.Anything, "u1").
		Return(nil, errors.Join(subscription.ErrStoreUnavailable, cause))

	registry := subscription.NewRegistry(storage)
	_, err := registry.ListActive(ctx, "u1")
	assert.ErrorIs(t, err, subscription.ErrStoreUnavailable)
	storage.AssertExpectations(t)
}
