package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/dmitrymomot/relaykit/pkg/vapid"
)

// WebPushTarget is the sendable descriptor for a browser push subscription.
type WebPushTarget struct {
	Endpoint string
	P256dh   string
	Auth     string
}

// WebPushSender delivers payloads to browser push services via the Web Push
// protocol. It performs no retries and layers no timeout of its own: timeout
// semantics come from the HTTP client.
type WebPushSender struct {
	client  *http.Client
	ttl     int
	urgency webpush.Urgency
	topic   string
}

// WebPushOption configures a WebPushSender.
type WebPushOption func(*WebPushSender)

// WithTTL sets how long (in seconds) the push service should retain an
// undelivered message.
func WithTTL(seconds int) WebPushOption {
	return func(s *WebPushSender) {
		if seconds > 0 {
			s.ttl = seconds
		}
	}
}

// WithUrgency sets the delivery urgency hint.
func WithUrgency(u webpush.Urgency) WebPushOption {
	return func(s *WebPushSender) {
		s.urgency = u
	}
}

// WithTopic sets the topic header so newer pushes replace older undelivered
// ones with the same topic.
func WithTopic(topic string) WebPushOption {
	return func(s *WebPushSender) {
		s.topic = topic
	}
}

// WithHTTPClient sets a custom HTTP client, used for tests and custom
// transports.
func WithHTTPClient(client *http.Client) WebPushOption {
	return func(s *WebPushSender) {
		if client != nil {
			s.client = client
		}
	}
}

// NewWebPushSender creates a web push send primitive.
func NewWebPushSender(opts ...WebPushOption) *WebPushSender {
	s := &WebPushSender{
		// A concrete default client: a nil *http.Client stored in the
		// library's HTTPClient interface field would dodge its own fallback
		// and dereference nil on the first send.
		client:  &http.Client{},
		ttl:     86400, // push services hold undelivered messages for a day
		urgency: webpush.UrgencyNormal,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send encrypts and posts the payload to the target's push service. The
// response status is classified into success, terminal failure (the push
// service reports the subscription gone) or non-terminal failure.
func (s *WebPushSender) Send(ctx context.Context, target WebPushTarget, keys vapid.Keys, p Payload) (Result, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Result{}, &SendError{Err: err}
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: target.Endpoint,
		Keys: webpush.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}, &webpush.Options{
		HTTPClient:      s.client,
		Subscriber:      keys.Subscriber,
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             s.ttl,
		Urgency:         s.urgency,
		Topic:           s.topic,
	})
	if err != nil {
		return Result{}, &SendError{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Result{StatusCode: resp.StatusCode}, nil
	}

	return Result{}, &SendError{
		StatusCode: resp.StatusCode,
		Terminal:   isGone(resp.StatusCode),
		Err:        fmt.Errorf("push service returned status %d", resp.StatusCode),
	}
}

// isGone reports whether the push service says the subscription no longer
// exists. 404 and 410 are the protocol's "never coming back" answers;
// everything else (429, 5xx) may recover.
func isGone(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode == http.StatusGone
}
