package dispatch

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/relaykit/pkg/async"
	"github.com/dmitrymomot/relaykit/pkg/endpoint"
	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/subscription"
	"github.com/dmitrymomot/relaykit/pkg/transport"
	"github.com/dmitrymomot/relaykit/pkg/vapid"
)

// Registry resolves selectors into dispatch targets. Satisfied by
// *subscription.Registry.
type Registry interface {
	ListActive(ctx context.Context, ownerID string) ([]subscription.Subscription, error)
	ListAllActive(ctx context.Context) ([]subscription.Subscription, error)
	FindActiveByID(ctx context.Context, subID string) (*subscription.Subscription, error)
}

// EndpointManager provisions throwaway endpoints for raw-token sends.
// Satisfied by *endpoint.Manager.
type EndpointManager interface {
	CreateEphemeral(ctx context.Context, token string) (*endpoint.Ephemeral, error)
	Teardown(ctx context.Context, eph *endpoint.Ephemeral)
}

// WebPushSender delivers one payload to a browser push subscription.
// Satisfied by *transport.WebPushSender.
type WebPushSender interface {
	Send(ctx context.Context, target transport.WebPushTarget, keys vapid.Keys, p transport.Payload) (transport.Result, error)
}

// PlatformSender delivers one payload to a platform endpoint handle.
// Satisfied by *transport.PlatformSender.
type PlatformSender interface {
	Send(ctx context.Context, handle string, p transport.Payload) (transport.Result, error)
}

// Dispatcher resolves a request's selector into targets and fans the payload
// out to all of them concurrently. Per-target failures become Outcomes, never
// errors: only structural failures (selector resolution, signing key fetch)
// fail the dispatch itself.
type Dispatcher struct {
	registry  Registry
	endpoints EndpointManager
	webPush   WebPushSender
	platform  PlatformSender
	keys      vapid.Source
	tracker   *Tracker
	logger    *slog.Logger
	maxInFly  int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger for the Dispatcher.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithEndpointManager enables the raw-token dispatch path.
func WithEndpointManager(m EndpointManager) DispatcherOption {
	return func(d *Dispatcher) {
		d.endpoints = m
	}
}

// WithWebPushSender enables delivery to web push targets.
func WithWebPushSender(s WebPushSender, keys vapid.Source) DispatcherOption {
	return func(d *Dispatcher) {
		d.webPush = s
		d.keys = keys
	}
}

// WithPlatformSender enables delivery to platform endpoint targets.
func WithPlatformSender(s PlatformSender) DispatcherOption {
	return func(d *Dispatcher) {
		d.platform = s
	}
}

// WithMaxInFlight caps concurrent sends. Zero or negative means unbounded.
func WithMaxInFlight(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.maxInFly = n
	}
}

// NewDispatcher creates a dispatcher. Senders are opt-in: a dispatch that
// resolves a target kind with no sender configured records a failed outcome
// for it. Panics if registry or tracker is nil to fail fast during
// initialization.
func NewDispatcher(registry Registry, tracker *Tracker, opts ...DispatcherOption) *Dispatcher {
	if registry == nil {
		panic("dispatch: Registry is required")
	}
	if tracker == nil {
		panic("dispatch: Tracker is required")
	}

	d := &Dispatcher{
		registry: registry,
		tracker:  tracker,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Dispatch resolves the request's selector, fans the payload out to every
// resolved target, persists per-target outcomes through the tracker, and
// returns the aggregate. An empty resolved set is not an error; callers decide
// whether zero targets matters.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if req.To.RawToken != "" {
		return d.dispatchRawToken(ctx, req)
	}

	targets, err := d.resolve(ctx, req.To)
	if err != nil {
		return Result{}, err
	}
	if len(targets) == 0 {
		return Result{}, nil
	}

	keys, err := d.signingKeys(ctx, targets)
	if err != nil {
		return Result{}, err
	}

	payload := transport.Payload{Title: req.Title, Body: req.Body, Data: req.Data}

	var sem chan struct{}
	if d.maxInFly > 0 {
		sem = make(chan struct{}, d.maxInFly)
	}

	futures := make([]*async.Future[Outcome], len(targets))
	for i, sub := range targets {
		futures[i] = async.Async(ctx, sub, func(ctx context.Context, sub subscription.Subscription) (Outcome, error) {
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			// Failures are data, not errors; the error slot stays nil so one
			// bad target never hides the other outcomes.
			return d.sendOne(ctx, sub, keys, payload), nil
		})
	}

	// Await each future individually: a future errs only when the context
	// was canceled before its send started, and the outcome must still carry
	// the target identity for the tracker.
	outcomes := make([]Outcome, len(futures))
	for i, future := range futures {
		outcome, err := future.Await()
		if err != nil {
			sub := targets[i]
			outcome = Outcome{
				OwnerID:        sub.OwnerID,
				SubscriptionID: sub.ID,
				Endpoint:       sub.Target.Identity(),
				Err:            err,
			}
		}
		outcomes[i] = outcome
	}
	d.tracker.Record(ctx, outcomes)

	return d.aggregate(ctx, outcomes), nil
}

// newBatchID tags one fan-out so its log lines can be correlated.
func newBatchID() string {
	return uuid.NewString()
}

// dispatchRawToken delivers to a device token with no registry entry through
// a throwaway endpoint. Nothing is written back to the store.
func (d *Dispatcher) dispatchRawToken(ctx context.Context, req Request) (Result, error) {
	if d.endpoints == nil {
		return Result{}, ErrNoEndpointManager
	}

	payload := transport.Payload{Title: req.Title, Body: req.Body, Data: req.Data}

	outcome := Outcome{Ephemeral: true}
	if d.platform == nil {
		outcome.Err = ErrNoPlatformSender
	} else if eph, err := d.endpoints.CreateEphemeral(ctx, req.To.RawToken); err != nil {
		outcome.Err = err
	} else {
		defer d.endpoints.Teardown(ctx, eph)
		outcome.Endpoint = eph.Handle

		res, err := d.platform.Send(ctx, eph.Handle, payload)
		if err != nil {
			outcome.Err = err
		} else {
			outcome.OK = true
			outcome.StatusCode = res.StatusCode
			outcome.MessageID = res.MessageID
		}
	}

	outcomes := []Outcome{outcome}
	d.tracker.Record(ctx, outcomes)

	return d.aggregate(ctx, outcomes), nil
}

// resolve expands a selector into the stored targets to deliver to, most
// specific selector first.
func (d *Dispatcher) resolve(ctx context.Context, sel Selector) ([]subscription.Subscription, error) {
	switch {
	case sel.SubscriptionID != "":
		sub, err := d.registry.FindActiveByID(ctx, sel.SubscriptionID)
		if err != nil {
			return nil, err
		}
		return []subscription.Subscription{*sub}, nil
	case sel.OwnerID != "":
		return d.registry.ListActive(ctx, sel.OwnerID)
	default:
		return d.registry.ListAllActive(ctx)
	}
}

// signingKeys fetches VAPID keys once per batch, and only when the batch
// actually contains web push targets.
func (d *Dispatcher) signingKeys(ctx context.Context, targets []subscription.Subscription) (vapid.Keys, error) {
	needed := false
	for _, sub := range targets {
		if sub.Target.Kind == subscription.KindWebPush {
			needed = true
			break
		}
	}
	if !needed {
		return vapid.Keys{}, nil
	}
	if d.keys == nil {
		return vapid.Keys{}, ErrNoKeySource
	}
	return d.keys.Keys(ctx)
}

func (d *Dispatcher) sendOne(ctx context.Context, sub subscription.Subscription, keys vapid.Keys, p transport.Payload) Outcome {
	outcome := Outcome{
		OwnerID:        sub.OwnerID,
		SubscriptionID: sub.ID,
		Endpoint:       sub.Target.Identity(),
	}

	switch sub.Target.Kind {
	case subscription.KindWebPush:
		if d.webPush == nil {
			outcome.Err = ErrNoWebPushSender
			return outcome
		}
		res, err := d.webPush.Send(ctx, transport.WebPushTarget{
			Endpoint: sub.Target.Endpoint,
			P256dh:   sub.Target.P256dh,
			Auth:     sub.Target.Auth,
		}, keys, p)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.OK = true
		outcome.StatusCode = res.StatusCode

	case subscription.KindPlatform:
		if d.platform == nil {
			outcome.Err = ErrNoPlatformSender
			return outcome
		}
		if sub.Target.EndpointHandle == "" {
			outcome.Err = ErrMissingHandle
			return outcome
		}
		res, err := d.platform.Send(ctx, sub.Target.EndpointHandle, p)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.OK = true
		outcome.MessageID = res.MessageID

	default:
		outcome.Err = subscription.ErrInvalidTarget
	}

	return outcome
}

func (d *Dispatcher) aggregate(ctx context.Context, outcomes []Outcome) Result {
	result := Result{BatchID: newBatchID(), Total: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		if o.OK {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	d.logger.LogAttrs(ctx, slog.LevelInfo, "Dispatch completed",
		slog.String("batch_id", result.BatchID),
		slog.Int("total", result.Total),
		slog.Int("sent", result.Sent),
		slog.Int("failed", result.Failed),
	)
	if result.Failed > 0 {
		for _, o := range outcomes {
			if o.Err != nil {
				d.logger.LogAttrs(ctx, slog.LevelWarn, "Delivery failed",
					slog.String("batch_id", result.BatchID),
					logger.OwnerID(o.OwnerID),
					logger.SubscriptionID(o.SubscriptionID),
					logger.Endpoint(o.Endpoint),
					logger.Error(o.Err),
				)
			}
		}
	}

	return result
}
