package endpoint_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/endpoint"
)

type mockSNSClient struct {
	mock.Mock
}

func (m *mockSNSClient) CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.CreatePlatformEndpointOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSNSClient) DeleteEndpoint(ctx context.Context, params *sns.DeleteEndpointInput, optFns ...func(*sns.Options)) (*sns.DeleteEndpointOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.DeleteEndpointOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

const (
	testAppARN      = "arn:aws:sns:us-east-1:123456789012:app/APNS/relay"
	testEndpointARN = "arn:aws:sns:us-east-1:123456789012:endpoint/APNS/relay/abc-123"
)

func newProvisioner(client *mockSNSClient) *endpoint.SNSProvisioner {
	return endpoint.NewSNSProvisioner(client, endpoint.Config{PlatformApplicationARN: testAppARN})
}

func TestSNSProvisioner_CreateEndpoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := new(mockSNSClient)
	client.On("CreatePlatformEndpoint", mock.Anything, mock.MatchedBy(func(in *sns.CreatePlatformEndpointInput) bool {
		return aws.ToString(in.PlatformApplicationArn) == testAppARN &&
			aws.ToString(in.Token) == "token-1" &&
			aws.ToString(in.CustomUserData) == "u1"
	})).Return(&sns.CreatePlatformEndpointOutput{EndpointArn: aws.String(testEndpointARN)}, nil)

	handle, err := newProvisioner(client).CreateEndpoint(ctx, "token-1", "u1")
	require.NoError(t, err)
	assert.Equal(t, testEndpointARN, handle)
	client.AssertExpectations(t)
}

func TestSNSProvisioner_EmptyToken(t *testing.T) {
	t.Parallel()

	_, err := newProvisioner(new(mockSNSClient)).CreateEndpoint(context.Background(), "", "u1")
	assert.ErrorIs(t, err, endpoint.ErrTokenRequired)
}

func TestSNSProvisioner_DuplicateTokenConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	apiErr := &smithy.GenericAPIError{
		Code: "InvalidParameter",
		Message: "Invalid parameter: Token Reason: Endpoint " + testEndpointARN +
			" already exists with the same Token, but different attributes.",
	}

	client := new(mockSNSClient)
	client.On("CreatePlatformEndpoint", mock.Anything, mock.Anything).Return(nil, apiErr)

	_, err := newProvisioner(client).CreateEndpoint(ctx, "token-1", "u1")

	var conflict *endpoint.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, testEndpointARN, conflict.ExistingHandle)
}

func TestSNSProvisioner_UnresolvableConflictIsHardError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// Conflict asserted but the message carries no recoverable ARN
	apiErr := &smithy.GenericAPIError{
		Code:    "InvalidParameter",
		Message: "Invalid parameter: Token Reason: endpoint already exists with the same Token",
	}

	client := new(mockSNSClient)
	client.On("CreatePlatformEndpoint", mock.Anything, mock.Anything).Return(nil, apiErr)

	_, err := newProvisioner(client).CreateEndpoint(ctx, "token-1", "u1")
	assert.ErrorIs(t, err, endpoint.ErrConflictUnresolved)

	var conflict *endpoint.ConflictError
	assert.False(t, errors.As(err, &conflict))
}

func TestSNSProvisioner_OtherErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
	}{
		{
			name: "unrelated invalid parameter",
			err:  &smithy.GenericAPIError{Code: "InvalidParameter", Message: "Invalid parameter: Token length"},
		},
		{
			name: "authorization failure",
			err:  &smithy.GenericAPIError{Code: "AuthorizationError", Message: "not authorized"},
		},
		{
			name: "network failure",
			err:  errors.New("dial tcp: connection refused"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := new(mockSNSClient)
			client.On("CreatePlatformEndpoint", mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := newProvisioner(client).CreateEndpoint(ctx, "token-1", "u1")
			assert.ErrorIs(t, err, endpoint.ErrCreateEndpointFailed)
		})
	}
}

func TestSNSProvisioner_DeleteEndpoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	client := new(mockSNSClient)
	client.On("DeleteEndpoint", mock.Anything, mock.MatchedBy(func(in *sns.DeleteEndpointInput) bool {
		return aws.ToString(in.EndpointArn) == testEndpointARN
	})).Return(&sns.DeleteEndpointOutput{}, nil)

	require.NoError(t, newProvisioner(client).DeleteEndpoint(ctx, testEndpointARN))
	client.AssertExpectations(t)
}
