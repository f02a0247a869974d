// Package endpoint manages transport-level endpoint handles for raw device
// tokens: creating or reusing durable endpoints during registration, and
// short-lived ephemeral endpoints for one-off test sends.
//
// The provisioner is backed by SNS platform endpoints. SNS rejects a second
// CreatePlatformEndpoint call for an already-bound token with an
// InvalidParameter error that carries the existing endpoint ARN in its
// message; the provisioner parses that shape in exactly one place and
// surfaces it as *ConflictError. The Manager resolves conflicts to reuse,
// because re-registration of the same physical device is routine. When the
// existing handle cannot be recovered the error is ErrConflictUnresolved —
// a hard failure, never a fabricated placeholder.
//
// Web push targets never pass through this package: their stored target is
// already the sendable descriptor.
//
// # Usage
//
//	provisioner := endpoint.NewSNSProvisioner(snsClient, cfg)
//	manager := endpoint.NewManager(provisioner)
//
//	handle, err := manager.CreateOrReuse(ctx, deviceToken, ownerID)
//
// Ad-hoc sends to unregistered tokens use ephemeral endpoints, torn down
// right after the send regardless of its outcome:
//
//	eph, err := manager.CreateEphemeral(ctx, deviceToken)
//	if err != nil { ... }
//	defer manager.Teardown(ctx, eph)
package endpoint
