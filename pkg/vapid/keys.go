package vapid

import "context"

// Keys holds the VAPID key pair used to authenticate outbound web pushes,
// plus the subscriber contact the push service may use to reach the operator.
type Keys struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
	Subscriber string `json:"subscriber"`
}

// Validate checks that all three fields are present. Key format validation is
// left to the web push library, which rejects malformed keys on first use.
func (k Keys) Validate() error {
	if k.PublicKey == "" || k.PrivateKey == "" || k.Subscriber == "" {
		return ErrIncompleteKeys
	}
	return nil
}

// Source supplies signing keys to the dispatcher. The dispatcher consults the
// source once per dispatch batch, so implementations are free to cache.
type Source interface {
	Keys(ctx context.Context) (Keys, error)
}
