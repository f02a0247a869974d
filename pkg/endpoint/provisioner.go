package endpoint

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
)

// Provisioner creates and removes transport-level endpoint handles for raw
// device tokens.
type Provisioner interface {
	// CreateEndpoint binds a device token to a platform endpoint and returns
	// its handle. A duplicate-token outcome is surfaced as *ConflictError
	// carrying the existing handle.
	CreateEndpoint(ctx context.Context, token, ownerTag string) (string, error)

	// DeleteEndpoint removes a platform endpoint.
	DeleteEndpoint(ctx context.Context, handle string) error
}

// ConflictError reports that the push platform already holds an endpoint for
// the token. The existing handle is carried so callers can reuse it instead
// of failing the registration.
type ConflictError struct {
	ExistingHandle string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("platform endpoint already exists for token: %s", e.ExistingHandle)
}

// SNSClient is the subset of the SNS API the provisioner relies on.
// Satisfied by *sns.Client.
type SNSClient interface {
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	DeleteEndpoint(ctx context.Context, params *sns.DeleteEndpointInput, optFns ...func(*sns.Options)) (*sns.DeleteEndpointOutput, error)
}

// SNSProvisioner provisions platform endpoints under a single SNS platform
// application (APNS or FCM).
type SNSProvisioner struct {
	client         SNSClient
	applicationARN string
}

// NewSNSProvisioner creates an SNS-backed endpoint provisioner.
// Panics if client is nil or the application ARN is empty to fail fast during
// initialization.
func NewSNSProvisioner(client SNSClient, cfg Config) *SNSProvisioner {
	if client == nil {
		panic("endpoint: SNS client is required")
	}
	if cfg.PlatformApplicationARN == "" {
		panic("endpoint: SNS platform application ARN is required")
	}
	return &SNSProvisioner{
		client:         client,
		applicationARN: cfg.PlatformApplicationARN,
	}
}

func (p *SNSProvisioner) CreateEndpoint(ctx context.Context, token, ownerTag string) (string, error) {
	if token == "" {
		return "", ErrTokenRequired
	}

	out, err := p.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(p.applicationARN),
		Token:                  aws.String(token),
		CustomUserData:         aws.String(ownerTag),
	})
	if err != nil {
		if conflictErr := parseConflict(err); conflictErr != nil {
			return "", conflictErr
		}
		return "", errors.Join(ErrCreateEndpointFailed, err)
	}

	return aws.ToString(out.EndpointArn), nil
}

func (p *SNSProvisioner) DeleteEndpoint(ctx context.Context, handle string) error {
	if _, err := p.client.DeleteEndpoint(ctx, &sns.DeleteEndpointInput{
		EndpointArn: aws.String(handle),
	}); err != nil {
		return errors.Join(ErrDeleteEndpointFailed, err)
	}
	return nil
}

// conflictARNPattern extracts the existing endpoint ARN out of the
// InvalidParameter message SNS returns for duplicate tokens:
//
//	Invalid parameter: Token Reason: Endpoint arn:aws:sns:... already exists
//	with the same Token, but different attributes.
var conflictARNPattern = regexp.MustCompile(`Endpoint (arn:aws:sns:\S+) already exists`)

// parseConflict is the single place the duplicate-token error shape is
// interpreted. SNS carries the conflicting handle only inside the error
// message, so the string matching is isolated here. Returns nil when the
// error is not a duplicate-token conflict.
func parseConflict(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "InvalidParameter" {
		return nil
	}

	msg := apiErr.ErrorMessage()
	if !strings.Contains(msg, "already exists") {
		return nil
	}

	match := conflictARNPattern.FindStringSubmatch(msg)
	if match == nil {
		// The platform asserts a conflict but withholds the handle. Surfacing
		// a hard error beats fabricating a placeholder that can never send.
		return errors.Join(ErrConflictUnresolved, err)
	}

	return &ConflictError{ExistingHandle: match[1]}
}
