package subscription

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// AnonymousOwner is the owner recorded when a registration arrives without an
// explicit owner identifier. It is a legal literal value, not a null marker.
const AnonymousOwner = "anonymous"

// Status represents the lifecycle state of a subscription.
type Status string

const (
	// StatusActive marks a subscription as a live dispatch target.
	StatusActive Status = "active"
	// StatusInactive marks a subscription retired by a terminal transport
	// failure. Retired records are kept for audit, never dispatched to.
	StatusInactive Status = "inactive"
)

// TargetKind discriminates the two target variants.
type TargetKind string

const (
	// KindWebPush targets a browser push service endpoint.
	KindWebPush TargetKind = "webpush"
	// KindPlatform targets a native platform endpoint (APNS/FCM) through the
	// push platform's endpoint handle.
	KindPlatform TargetKind = "platform"
)

// Target describes one push destination. Exactly one variant is populated,
// selected by Kind.
type Target struct {
	Kind TargetKind `json:"kind" dynamodbav:"kind" bson:"kind"`

	// Web push variant: the stored target is the sendable descriptor.
	Endpoint string `json:"endpoint,omitempty" dynamodbav:"endpoint,omitempty" bson:"endpoint,omitempty"`
	P256dh   string `json:"p256dh,omitempty" dynamodbav:"p256dh,omitempty" bson:"p256dh,omitempty"`
	Auth     string `json:"auth,omitempty" dynamodbav:"auth,omitempty" bson:"auth,omitempty"`

	// Platform variant: the transport endpoint handle plus device metadata.
	EndpointHandle string `json:"endpoint_handle,omitempty" dynamodbav:"endpoint_handle,omitempty" bson:"endpoint_handle,omitempty"`
	DeviceToken    string `json:"device_token,omitempty" dynamodbav:"device_token,omitempty" bson:"device_token,omitempty"`
	BundleID       string `json:"bundle_id,omitempty" dynamodbav:"bundle_id,omitempty" bson:"bundle_id,omitempty"`
	Platform       string `json:"platform,omitempty" dynamodbav:"platform,omitempty" bson:"platform,omitempty"`
}

// Validate checks that the populated variant carries everything the dispatch
// path needs to produce a sendable descriptor.
func (t Target) Validate() error {
	switch t.Kind {
	case KindWebPush:
		if t.Endpoint == "" || t.P256dh == "" || t.Auth == "" {
			return ErrInvalidTarget
		}
	case KindPlatform:
		if t.DeviceToken == "" && t.EndpointHandle == "" {
			return ErrInvalidTarget
		}
	default:
		return ErrInvalidTarget
	}
	return nil
}

// Identity returns the canonical endpoint identity the subscription ID is
// derived from: the push service URL for web push targets, the raw device
// token (falling back to the endpoint handle) for platform targets.
func (t Target) Identity() string {
	if t.Kind == KindWebPush {
		return t.Endpoint
	}
	if t.DeviceToken != "" {
		return t.DeviceToken
	}
	return t.EndpointHandle
}

// DeriveID computes the deterministic subscription ID for a target.
// Registering the same physical endpoint twice therefore converges to the
// same record instead of accumulating duplicates.
func DeriveID(t Target) string {
	sum := sha256.Sum256([]byte(t.Identity()))
	return hex.EncodeToString(sum[:])
}

// Subscription binds an owner to one registered push destination.
type Subscription struct {
	OwnerID      string     `json:"owner_id" dynamodbav:"owner_id" bson:"owner_id"`
	ID           string     `json:"subscription_id" dynamodbav:"subscription_id" bson:"subscription_id"`
	Target       Target     `json:"target" dynamodbav:"target" bson:"target"`
	Status       Status     `json:"status" dynamodbav:"status" bson:"status"`
	FailureCount int        `json:"failure_count" dynamodbav:"failure_count" bson:"failure_count"`
	CreatedAt    time.Time  `json:"created_at" dynamodbav:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" dynamodbav:"updated_at" bson:"updated_at"`
	LastSentAt   *time.Time `json:"last_notification_sent,omitempty" dynamodbav:"last_notification_sent,omitempty" bson:"last_notification_sent,omitempty"`
}

// New builds an active subscription for the given owner and target with the
// deterministic ID and zeroed failure counter. An empty owner defaults to
// AnonymousOwner.
func New(ownerID string, target Target, now time.Time) (Subscription, error) {
	if err := target.Validate(); err != nil {
		return Subscription{}, err
	}
	if ownerID == "" {
		ownerID = AnonymousOwner
	}
	return Subscription{
		OwnerID:      ownerID,
		ID:           DeriveID(target),
		Target:       target,
		Status:       StatusActive,
		FailureCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsActive reports whether the subscription is a live dispatch target.
func (s Subscription) IsActive() bool {
	return s.Status == StatusActive
}
