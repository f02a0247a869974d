package endpoint

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/relaykit/pkg/logger"
)

// ephemeralOwnerTag marks endpoints created for one-off sends to raw tokens.
const ephemeralOwnerTag = "ephemeral"

// Ephemeral is a transport endpoint created solely for a single ad-hoc send.
// Reused is set when the token was already bound to a durable endpoint, in
// which case teardown leaves the endpoint alone.
type Ephemeral struct {
	Handle string
	Reused bool
}

// Manager applies the endpoint lifecycle policy on top of a Provisioner:
// duplicate-token conflicts resolve to reuse, and ephemeral endpoints are
// torn down after exactly one send.
type Manager struct {
	provisioner Provisioner
	logger      *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for the Manager.
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new endpoint lifecycle manager.
// Panics if provisioner is nil to fail fast during initialization.
func NewManager(provisioner Provisioner, opts ...ManagerOption) *Manager {
	if provisioner == nil {
		panic("endpoint: Provisioner is required")
	}

	m := &Manager{
		provisioner: provisioner,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// CreateOrReuse returns a sendable endpoint handle for the token, resolving
// duplicate-token conflicts to the existing handle. Re-registration of the
// same physical device is expected and must not fail the registration.
func (m *Manager) CreateOrReuse(ctx context.Context, token, ownerTag string) (string, error) {
	handle, err := m.provisioner.CreateEndpoint(ctx, token, ownerTag)
	if err == nil {
		return handle, nil
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "Token already bound, reusing existing endpoint",
			logger.OwnerID(ownerTag),
			logger.Endpoint(conflict.ExistingHandle),
		)
		return conflict.ExistingHandle, nil
	}

	return "", err
}

// CreateEphemeral provisions an endpoint for a single ad-hoc send to a token
// with no registry entry. When the token is already bound to an endpoint the
// existing handle is used and flagged so Teardown does not destroy a durably
// registered endpoint.
func (m *Manager) CreateEphemeral(ctx context.Context, token string) (*Ephemeral, error) {
	handle, err := m.provisioner.CreateEndpoint(ctx, token, ephemeralOwnerTag)
	if err == nil {
		return &Ephemeral{Handle: handle}, nil
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return &Ephemeral{Handle: conflict.ExistingHandle, Reused: true}, nil
	}

	return nil, err
}

// Teardown removes an ephemeral endpoint after its single send. Cleanup is
// best-effort: failures are logged, never propagated, and reused endpoints
// are left in place.
func (m *Manager) Teardown(ctx context.Context, eph *Ephemeral) {
	if eph == nil || eph.Reused {
		return
	}

	if err := m.provisioner.DeleteEndpoint(ctx, eph.Handle); err != nil {
		m.logger.LogAttrs(ctx, slog.LevelWarn, "Failed to tear down ephemeral endpoint",
			logger.Endpoint(eph.Handle),
			logger.Error(err),
		)
	}
}
