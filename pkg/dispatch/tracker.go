package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/relaykit/pkg/logger"
	"github.com/dmitrymomot/relaykit/pkg/transport"
)

// Recorder is the write-through surface the tracker persists outcomes to.
// Satisfied by *subscription.Registry.
type Recorder interface {
	RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error
	RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error
}

// Tracker folds delivery outcomes back into subscription state: successes
// reset the failure counter, failures increment it, and terminal failures
// retire the subscription in the same write. Persistence errors are logged
// and swallowed so bookkeeping never fails a dispatch that already happened.
type Tracker struct {
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTrackerLogger sets the logger for the Tracker.
func WithTrackerLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithTrackerClock overrides the time source, used by tests for deterministic
// timestamps.
func WithTrackerClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker creates a new outcome tracker.
// Panics if recorder is nil to fail fast during initialization.
func NewTracker(recorder Recorder, opts ...TrackerOption) *Tracker {
	if recorder == nil {
		panic("dispatch: Recorder is required")
	}

	t := &Tracker{
		recorder: recorder,
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Record persists every non-ephemeral outcome. Ephemeral targets have no
// subscription record, so there is nothing to update for them.
func (t *Tracker) Record(ctx context.Context, outcomes []Outcome) {
	at := t.now()

	for _, o := range outcomes {
		if o.Ephemeral {
			continue
		}

		var err error
		if o.OK {
			err = t.recorder.RecordSuccess(ctx, o.OwnerID, o.SubscriptionID, at)
		} else {
			terminal := transport.IsTerminal(o.Err)
			err = t.recorder.RecordFailure(ctx, o.OwnerID, o.SubscriptionID, terminal, at)
			if terminal && err == nil {
				t.logger.LogAttrs(ctx, slog.LevelInfo, "Subscription retired after terminal failure",
					logger.OwnerID(o.OwnerID),
					logger.SubscriptionID(o.SubscriptionID),
					logger.Endpoint(o.Endpoint),
				)
			}
		}
		if err != nil {
			t.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to record delivery outcome",
				logger.OwnerID(o.OwnerID),
				logger.SubscriptionID(o.SubscriptionID),
				logger.Error(err),
			)
		}
	}
}
