// Package transport implements the push send primitives: Web Push to browser
// push services and SNS publish to native platform endpoints.
//
// Both senders share a single failure shape, SendError, whose Terminal flag
// is the sole signal downstream retirement decisions key on. A web push 404
// or 410 and an SNS EndpointDisabled/InvalidParameter response mean the
// destination is gone for good; rate limits, 5xx responses and network
// failures are non-terminal and may recover.
//
// The senders never retry and never impose their own timeout layer; timeout
// semantics are inherited from the injected HTTP/SDK client.
package transport
