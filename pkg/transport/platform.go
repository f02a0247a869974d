package transport

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// SNSPublisher is the subset of the SNS API the platform sender relies on.
// Satisfied by *sns.Client.
type SNSPublisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PlatformSender delivers payloads to native platform endpoints (APNS/FCM)
// through SNS publish. It performs no retries; timeout semantics come from
// the SDK client.
type PlatformSender struct {
	client SNSPublisher
}

// NewPlatformSender creates a platform send primitive.
// Panics if client is nil to fail fast during initialization.
func NewPlatformSender(client SNSPublisher) *PlatformSender {
	if client == nil {
		panic("transport: SNS client is required")
	}
	return &PlatformSender{client: client}
}

// Send publishes the payload to a platform endpoint handle. EndpointDisabled
// and InvalidParameter responses are classified as terminal: both are how
// the platform says the endpoint can never succeed again.
func (s *PlatformSender) Send(ctx context.Context, handle string, p Payload) (Result, error) {
	envelope, err := apnsEnvelope(p)
	if err != nil {
		return Result{}, &SendError{Err: err}
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(handle),
		Message:          aws.String(envelope),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return Result{}, &SendError{
			Terminal: isDeadEndpoint(err),
			Err:      err,
		}
	}

	return Result{MessageID: aws.ToString(out.MessageId)}, nil
}

// apnsPayload is the APNS message shape inside the SNS json envelope.
type apnsPayload struct {
	APS  apsBody        `json:"aps"`
	Data map[string]any `json:"data,omitempty"`
}

type apsBody struct {
	Alert apsAlert `json:"alert"`
	Sound string   `json:"sound"`
	Badge int      `json:"badge"`
}

type apsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// apnsEnvelope builds the SNS MessageStructure=json envelope: a default text
// fallback plus the APNS payload as a nested JSON string.
func apnsEnvelope(p Payload) (string, error) {
	inner, err := json.Marshal(apnsPayload{
		APS: apsBody{
			Alert: apsAlert{Title: p.Title, Body: p.Body},
			Sound: "default",
			Badge: 1,
		},
		Data: p.Data,
	})
	if err != nil {
		return "", err
	}

	envelope, err := json.Marshal(map[string]string{
		"default": p.Body,
		"APNS":    string(inner),
	})
	if err != nil {
		return "", err
	}
	return string(envelope), nil
}

// isDeadEndpoint reports whether the publish failure means the endpoint is
// permanently unusable.
func isDeadEndpoint(err error) bool {
	var disabled *snstypes.EndpointDisabledException
	if errors.As(err, &disabled) {
		return true
	}
	var invalid *snstypes.InvalidParameterException
	return errors.As(err, &invalid)
}
