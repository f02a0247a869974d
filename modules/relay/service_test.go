package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/modules/relay"
	"github.com/dmitrymomot/relaykit/pkg/dispatch"
	"github.com/dmitrymomot/relaykit/pkg/subscription"
)

type mockRegistrar struct {
	mock.Mock
}

func (m *mockRegistrar) Register(ctx context.Context, ownerID string, target subscription.Target) (subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, target)
	return args.Get(0).(subscription.Subscription), args.Error(1)
}

func (m *mockRegistrar) DeregisterAll(ctx context.Context, ownerID string) (int, error) {
	args := m.Called(ctx, ownerID)
	return args.Int(0), args.Error(1)
}

func (m *mockRegistrar) DeregisterOne(ctx context.Context, subID string) error {
	return m.Called(ctx, subID).Error(0)
}

func (m *mockRegistrar) List(ctx context.Context, ownerID string) ([]subscription.Subscription, error) {
	args := m.Called(ctx, ownerID)
	if subs := args.Get(0); subs != nil {
		return subs.([]subscription.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockEndpointCreator struct {
	mock.Mock
}

func (m *mockEndpointCreator) CreateOrReuse(ctx context.Context, token, ownerTag string) (string, error) {
	args := m.Called(ctx, token, ownerTag)
	return args.String(0), args.Error(1)
}

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(dispatch.Result), args.Error(1)
}

func storedSub(owner string, target subscription.Target) subscription.Subscription {
	sub, _ := subscription.New(owner, target, time.Now())
	return sub
}

func TestService_Register(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("device token binds an endpoint handle first", func(t *testing.T) {
		t.Parallel()

		wantTarget := subscription.Target{
			Kind:           subscription.KindPlatform,
			DeviceToken:    "token-1",
			EndpointHandle: "arn:endpoint/1",
			BundleID:       "com.example.app",
			Platform:       "APNS",
		}

		creator := new(mockEndpointCreator)
		creator.On("CreateOrReuse", mock.Anything, "token-1", "alice").Return("arn:endpoint/1", nil)

		registrar := new(mockRegistrar)
		registrar.On("Register", mock.Anything, "alice", wantTarget).
			Return(storedSub("alice", wantTarget), nil)

		svc := relay.NewService(registrar, relay.WithEndpointCreator(creator))

		sub, err := svc.Register(ctx, relay.RegisterParams{
			UserID:      "alice",
			DeviceToken: "token-1",
			BundleID:    "com.example.app",
			Platform:    "APNS",
		})
		require.NoError(t, err)
		assert.Equal(t, "arn:endpoint/1", sub.Target.EndpointHandle)
		creator.AssertExpectations(t)
		registrar.AssertExpectations(t)
	})

	t.Run("web push subscription is stored as-is", func(t *testing.T) {
		t.Parallel()

		wantTarget := subscription.Target{
			Kind:     subscription.KindWebPush,
			Endpoint: "https://push.example.com/abc",
			P256dh:   "p256dh-key",
			Auth:     "auth-secret",
		}

		registrar := new(mockRegistrar)
		registrar.On("Register", mock.Anything, "alice", wantTarget).
			Return(storedSub("alice", wantTarget), nil)

		svc := relay.NewService(registrar)

		sub, err := svc.Register(ctx, relay.RegisterParams{
			UserID: "alice",
			WebPush: &relay.WebPushTarget{
				Endpoint: "https://push.example.com/abc",
				P256dh:   "p256dh-key",
				Auth:     "auth-secret",
			},
		})
		require.NoError(t, err)
		assert.Equal(t, subscription.KindWebPush, sub.Target.Kind)
	})

	t.Run("rejects neither target", func(t *testing.T) {
		t.Parallel()

		svc := relay.NewService(new(mockRegistrar))
		_, err := svc.Register(ctx, relay.RegisterParams{UserID: "alice"})
		assert.ErrorIs(t, err, relay.ErrExactlyOneTarget)
	})

	t.Run("rejects both targets", func(t *testing.T) {
		t.Parallel()

		svc := relay.NewService(new(mockRegistrar))
		_, err := svc.Register(ctx, relay.RegisterParams{
			UserID:      "alice",
			DeviceToken: "token-1",
			WebPush:     &relay.WebPushTarget{Endpoint: "https://push.example.com/abc"},
		})
		assert.ErrorIs(t, err, relay.ErrExactlyOneTarget)
	})

	t.Run("device token without an endpoint creator fails", func(t *testing.T) {
		t.Parallel()

		svc := relay.NewService(new(mockRegistrar))
		_, err := svc.Register(ctx, relay.RegisterParams{UserID: "alice", DeviceToken: "token-1"})
		assert.ErrorIs(t, err, relay.ErrPlatformDisabled)
	})
}

func TestService_Deregister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("subscription id removes one record", func(t *testing.T) {
		t.Parallel()

		registrar := new(mockRegistrar)
		registrar.On("DeregisterOne", mock.Anything, "sub-1").Return(nil)

		svc := relay.NewService(registrar)
		removed, err := svc.Deregister(ctx, relay.DeregisterParams{SubscriptionID: "sub-1"})
		require.NoError(t, err)
		assert.Equal(t, 1, removed)
	})

	t.Run("subscription id wins over user id", func(t *testing.T) {
		t.Parallel()

		registrar := new(mockRegistrar)
		registrar.On("DeregisterOne", mock.Anything, "sub-1").Return(nil)

		svc := relay.NewService(registrar)
		_, err := svc.Deregister(ctx, relay.DeregisterParams{UserID: "alice", SubscriptionID: "sub-1"})
		require.NoError(t, err)
		registrar.AssertNotCalled(t, "DeregisterAll", mock.Anything, mock.Anything)
	})

	t.Run("user id removes the whole set", func(t *testing.T) {
		t.Parallel()

		registrar := new(mockRegistrar)
		registrar.On("DeregisterAll", mock.Anything, "alice").Return(3, nil)

		svc := relay.NewService(registrar)
		removed, err := svc.Deregister(ctx, relay.DeregisterParams{UserID: "alice"})
		require.NoError(t, err)
		assert.Equal(t, 3, removed)
	})

	t.Run("missing selector is a validation error", func(t *testing.T) {
		t.Parallel()

		svc := relay.NewService(new(mockRegistrar))
		_, err := svc.Deregister(ctx, relay.DeregisterParams{})
		assert.ErrorIs(t, err, relay.ErrMissingSelector)
	})

	t.Run("unknown subscription propagates not found", func(t *testing.T) {
		t.Parallel()

		registrar := new(mockRegistrar)
		registrar.On("DeregisterOne", mock.Anything, "missing").
			Return(subscription.ErrSubscriptionNotFound)

		svc := relay.NewService(registrar)
		_, err := svc.Deregister(ctx, relay.DeregisterParams{SubscriptionID: "missing"})
		assert.ErrorIs(t, err, subscription.ErrSubscriptionNotFound)
	})
}

func TestService_Send(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("dispatches with the selector", func(t *testing.T) {
		t.Parallel()

		dispatcher := new(mockDispatcher)
		dispatcher.On("Dispatch", mock.Anything, dispatch.Request{
			Title: "hello",
			Body:  "world",
			To:    dispatch.Selector{OwnerID: "alice"},
		}).Return(dispatch.Result{Total: 2, Sent: 2}, nil)

		svc := relay.NewService(new(mockRegistrar), relay.WithDispatcher(dispatcher))
		result, err := svc.Send(ctx, relay.SendParams{Title: "hello", Body: "world", UserID: "alice"})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Sent)
	})

	t.Run("requires a title and a body", func(t *testing.T) {
		t.Parallel()

		svc := relay.NewService(new(mockRegistrar), relay.WithDispatcher(new(mockDispatcher)))

		_, err := svc.Send(ctx, relay.SendParams{Body: "world"})
		assert.ErrorIs(t, err, relay.ErrTitleRequired)

		_, err = svc.Send(ctx, relay.SendParams{Title: "hello"})
		assert.ErrorIs(t, err, relay.ErrBodyRequired)
	})

	t.Run("zero resolved targets becomes ErrNoTargets", func(t *testing.T) {
		t.Parallel()

		dispatcher := new(mockDispatcher)
		dispatcher.On("Dispatch", mock.Anything, mock.Anything).Return(dispatch.Result{}, nil)

		svc := relay.NewService(new(mockRegistrar), relay.WithDispatcher(dispatcher))
		_, err := svc.Send(ctx, relay.SendParams{Title: "t", Body: "b", UserID: "nobody"})
		assert.ErrorIs(t, err, relay.ErrNoTargets)
	})

	t.Run("unknown subscription selector becomes ErrNoTargets", func(t *testing.T) {
		t.Parallel()

		dispatcher := new(mockDispatcher)
		dispatcher.On("Dispatch", mock.Anything, mock.Anything).
			Return(dispatch.Result{}, subscription.ErrSubscriptionNotFound)

		svc := relay.NewService(new(mockRegistrar), relay.WithDispatcher(dispatcher))
		_, err := svc.Send(ctx, relay.SendParams{Title: "t", Body: "b", SubscriptionID: "missing"})
		assert.ErrorIs(t, err, relay.ErrNoTargets)
	})

	t.Run("without a dispatcher send is disabled", func(t *testing.T) {
		t.Parallel()

		svc := relay.NewService(new(mockRegistrar))
		_, err := svc.Send(ctx, relay.SendParams{Title: "t", Body: "b"})
		assert.ErrorIs(t, err, relay.ErrDispatchDisabled)
	})
}
