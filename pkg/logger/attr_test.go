package logger_test

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/relaykit/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("req", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "req", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	empty := logger.Errors(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestOwnerID(t *testing.T) {
	attr := logger.OwnerID("u1")
	require.Equal(t, "owner_id", attr.Key)
	assert.Equal(t, "u1", attr.Value.Any())

	empty := logger.OwnerID(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestSubscriptionID(t *testing.T) {
	attr := logger.SubscriptionID("sub-1")
	require.Equal(t, "subscription_id", attr.Key)
	assert.Equal(t, "sub-1", attr.Value.Any())
}

func TestEndpoint(t *testing.T) {
	attr := logger.Endpoint("https://push.example.com/send/abc")
	require.Equal(t, "endpoint", attr.Key)
	assert.Equal(t, "https://push.example.com/send/abc", attr.Value.Any())

	long := strings.Repeat("x", 200)
	truncated := logger.Endpoint(long)
	assert.Len(t, truncated.Value.String(), 103)
	assert.True(t, strings.HasSuffix(truncated.Value.String(), "..."))
}

func TestPlatform(t *testing.T) {
	attr := logger.Platform("ios")
	require.Equal(t, "platform", attr.Key)
	assert.Equal(t, "ios", attr.Value.Any())
}

func TestRequestID(t *testing.T) {
	attr := logger.RequestID("abc")
	require.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "abc", attr.Value.Any())
}

func TestMessageID(t *testing.T) {
	attr := logger.MessageID("msg-1")
	require.Equal(t, "message_id", attr.Key)
	assert.Equal(t, "msg-1", attr.Value.Any())
}

func TestFailureCount(t *testing.T) {
	attr := logger.FailureCount(3)
	require.Equal(t, "failure_count", attr.Key)
	assert.Equal(t, int64(3), attr.Value.Any())
}
