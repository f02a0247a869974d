package relay

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/relaykit/pkg/dispatch"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/subscription"
)

// Registrar is the subscription lifecycle surface the service drives.
// Satisfied by *subscription.Registry.
type Registrar interface {
	Register(ctx context.Context, ownerID string, target subscription.Target) (subscription.Subscription, error)
	DeregisterAll(ctx context.Context, ownerID string) (int, error)
	DeregisterOne(ctx context.Context, subID string) error
	List(ctx context.Context, ownerID string) ([]subscription.Subscription, error)
}

// EndpointCreator binds raw device tokens to transport endpoint handles
// during registration. Satisfied by *endpoint.Manager.
type EndpointCreator interface {
	CreateOrReuse(ctx context.Context, token, ownerTag string) (string, error)
}

// Dispatcher fans one notification out to the resolved targets.
// Satisfied by *dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
}

// Service is the relay module facade: device registration, deregistration,
// listing, and notification send.
type Service struct {
	registry   Registrar
	endpoints  EndpointCreator
	dispatcher Dispatcher
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEndpointCreator enables the platform (device token) registration path.
func WithEndpointCreator(ec EndpointCreator) ServiceOption {
	return func(s *Service) {
		s.endpoints = ec
	}
}

// WithDispatcher enables the notification send path.
func WithDispatcher(d Dispatcher) ServiceOption {
	return func(s *Service) {
		s.dispatcher = d
	}
}

// NewService creates the relay service.
// Panics if registry is nil to fail fast during initialization.
func NewService(registry Registrar, opts ...ServiceOption) *Service {
	if registry == nil {
		panic("relay: Registrar is required")
	}

	s := &Service{
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// WebPushTarget is the browser push subscription as delivered by the
// PushManager API.
type WebPushTarget struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// RegisterParams describes one device registration. Exactly one of
// DeviceToken or WebPush must be set.
type RegisterParams struct {
	UserID      string
	DeviceToken string
	BundleID    string
	Platform    string
	WebPush     *WebPushTarget
}

// Register stores a push subscription for the user. A device token is first
// bound to a transport endpoint handle; a web push subscription is stored
// as-is. Registering the same physical endpoint again converges to the same
// record.
func (s *Service) Register(ctx context.Context, params RegisterParams) (subscription.Subscription, error) {
	hasToken := params.DeviceToken != ""
	hasWebPush := params.WebPush != nil
	if hasToken == hasWebPush {
		return subscription.Subscription{}, ErrExactlyOneTarget
	}

	var target subscription.Target
	if hasWebPush {
		target = subscription.Target{
			Kind:     subscription.KindWebPush,
			Endpoint: params.WebPush.Endpoint,
			P256dh:   params.WebPush.P256dh,
			Auth:     params.WebPush.Auth,
		}
	} else {
		if s.endpoints == nil {
			return subscription.Subscription{}, ErrPlatformDisabled
		}
		handle, err := s.endpoints.CreateOrReuse(ctx, params.DeviceToken, params.UserID)
		if err != nil {
			return subscription.Subscription{}, err
		}
		target = subscription.Target{
			Kind:           subscription.KindPlatform,
			DeviceToken:    params.DeviceToken,
			EndpointHandle: handle,
			BundleID:       params.BundleID,
			Platform:       params.Platform,
		}
	}

	return s.registry.Register(ctx, params.UserID, target)
}

// DeregisterParams selects what to remove: a single subscription by ID, or
// every subscription of a user.
type DeregisterParams struct {
	UserID         string
	SubscriptionID string
}

// Deregister removes subscriptions and returns the number removed. The
// subscription ID wins when both selectors are present.
func (s *Service) Deregister(ctx context.Context, params DeregisterParams) (int, error) {
	switch {
	case params.SubscriptionID != "":
		if err := s.registry.DeregisterOne(ctx, params.SubscriptionID); err != nil {
			return 0, err
		}
		return 1, nil
	case params.UserID != "":
		return s.registry.DeregisterAll(ctx, params.UserID)
	default:
		return 0, ErrMissingSelector
	}
}

// ListDevices returns the user's subscriptions including retired ones, or
// every subscription when userID is empty.
func (s *Service) ListDevices(ctx context.Context, userID string) ([]subscription.Subscription, error) {
	return s.registry.List(ctx, userID)
}

// SendParams describes one notification send. The selector fields narrow the
// audience; all empty means broadcast.
type SendParams struct {
	Title          string
	Body           string
	Data           map[string]any
	UserID         string
	SubscriptionID string
	DeviceToken    string
}

// Send validates and dispatches one notification. Resolving zero targets is
// reported as ErrNoTargets; individual delivery failures are data in the
// returned result.
func (s *Service) Send(ctx context.Context, params SendParams) (dispatch.Result, error) {
	if s.dispatcher == nil {
		return dispatch.Result{}, ErrDispatchDisabled
	}
	if params.Title == "" {
		return dispatch.Result{}, ErrTitleRequired
	}
	if params.Body == "" {
		return dispatch.Result{}, ErrBodyRequired
	}

	result, err := s.dispatcher.Dispatch(ctx, dispatch.Request{
		Title: params.Title,
		Body:  params.Body,
		Data:  params.Data,
		To: dispatch.Selector{
			OwnerID:        params.UserID,
			SubscriptionID: params.SubscriptionID,
			RawToken:       params.DeviceToken,
		},
	})
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound) {
			return dispatch.Result{}, ErrNoTargets
		}
		return dispatch.Result{}, err
	}
	if result.Total == 0 {
		return dispatch.Result{}, ErrNoTargets
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "Notification sent",
		logger.OwnerID(params.UserID),
		slog.Int("total", result.Total),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}
