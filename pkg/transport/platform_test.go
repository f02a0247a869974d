package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/transport"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.PublishOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

const testHandle = "arn:aws:sns:us-east-1:123456789012:endpoint/APNS/relay/abc-123"

func TestPlatformSender_Send(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("success returns the message id", func(t *testing.T) {
		t.Parallel()

		var captured *sns.PublishInput
		publisher := new(mockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { captured = args.Get(1).(*sns.PublishInput) }).
			Return(&sns.PublishOutput{MessageId: aws.String("msg-1")}, nil)

		result, err := transport.NewPlatformSender(publisher).Send(ctx, testHandle, transport.Payload{
			Title: "hello",
			Body:  "world",
			Data:  map[string]any{"url": "/inbox"},
		})
		require.NoError(t, err)
		assert.Equal(t, "msg-1", result.MessageID)

		require.NotNil(t, captured)
		assert.Equal(t, testHandle, aws.ToString(captured.TargetArn))
		assert.Equal(t, "json", aws.ToString(captured.MessageStructure))

		// The envelope carries a default fallback plus a nested APNS payload
		var envelope map[string]string
		require.NoError(t, json.Unmarshal([]byte(aws.ToString(captured.Message)), &envelope))
		assert.Equal(t, "world", envelope["default"])

		var apns struct {
			APS struct {
				Alert struct {
					Title string `json:"title"`
					Body  string `json:"body"`
				} `json:"alert"`
				Sound string `json:"sound"`
				Badge int    `json:"badge"`
			} `json:"aps"`
			Data map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal([]byte(envelope["APNS"]), &apns))
		assert.Equal(t, "hello", apns.APS.Alert.Title)
		assert.Equal(t, "world", apns.APS.Alert.Body)
		assert.Equal(t, "default", apns.APS.Sound)
		assert.Equal(t, 1, apns.APS.Badge)
		assert.Equal(t, map[string]any{"url": "/inbox"}, apns.Data)
	})

	t.Run("disabled endpoint is terminal", func(t *testing.T) {
		t.Parallel()

		publisher := new(mockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).
			Return(nil, &snstypes.EndpointDisabledException{Message: aws.String("Endpoint is disabled")})

		_, err := transport.NewPlatformSender(publisher).Send(ctx, testHandle, transport.Payload{Title: "t", Body: "b"})
		assert.True(t, transport.IsTerminal(err))
	})

	t.Run("invalid parameter is terminal", func(t *testing.T) {
		t.Parallel()

		publisher := new(mockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).
			Return(nil, &snstypes.InvalidParameterException{Message: aws.String("Invalid parameter: TargetArn")})

		_, err := transport.NewPlatformSender(publisher).Send(ctx, testHandle, transport.Payload{Title: "t", Body: "b"})
		assert.True(t, transport.IsTerminal(err))
	})

	t.Run("other failures are non-terminal", func(t *testing.T) {
		t.Parallel()

		publisher := new(mockPublisher)
		publisher.On("Publish", mock.Anything, mock.Anything).
			Return(nil, errors.New("throttled"))

		_, err := transport.NewPlatformSender(publisher).Send(ctx, testHandle, transport.Payload{Title: "t", Body: "b"})

		var sendErr *transport.SendError
		require.ErrorAs(t, err, &sendErr)
		assert.False(t, sendErr.Terminal)
	})
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, transport.IsTerminal(nil))
	assert.False(t, transport.IsTerminal(errors.New("plain")))
	assert.False(t, transport.IsTerminal(&transport.SendError{}))
	assert.True(t, transport.IsTerminal(&transport.SendError{Terminal: true}))
}
