package vapid

import (
	"context"
	"errors"

	"github.com/dmitrymomot/relaykit/pkg/config"
)

// StaticSource serves a fixed set of keys, validated at construction.
type StaticSource struct {
	keys Keys
}

// NewStaticSource creates a Source over explicit key material.
func NewStaticSource(keys Keys) (*StaticSource, error) {
	if err := keys.Validate(); err != nil {
		return nil, err
	}
	return &StaticSource{keys: keys}, nil
}

func (s *StaticSource) Keys(ctx context.Context) (Keys, error) {
	return s.keys, nil
}

// Config describes VAPID key material supplied through the environment.
type Config struct {
	PublicKey  string `env:"VAPID_PUBLIC_KEY,required"`                     // PublicKey is the base64url-encoded VAPID public key.
	PrivateKey string `env:"VAPID_PRIVATE_KEY,required"`                    // PrivateKey is the base64url-encoded VAPID private key.
	Subscriber string `env:"VAPID_SUBSCRIBER" envDefault:"admin@localhost"` // Subscriber is the contact address announced to push services.
}

// NewEnvSource creates a Source backed by environment configuration.
func NewEnvSource() (*StaticSource, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, errors.Join(ErrFailedToLoadConfig, err)
	}
	return NewStaticSource(Keys{
		PublicKey:  cfg.PublicKey,
		PrivateKey: cfg.PrivateKey,
		Subscriber: cfg.Subscriber,
	})
}
