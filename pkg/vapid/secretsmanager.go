package vapid

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerClient is the subset of the Secrets Manager API the source
// relies on. Satisfied by *secretsmanager.Client.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerSource loads key material from an AWS Secrets Manager secret
// holding a JSON document with public_key, private_key and subscriber fields.
// The secret is fetched once and cached for the lifetime of the source; a
// fetch failure is not cached so the next dispatch retries.
type SecretsManagerSource struct {
	client   SecretsManagerClient
	secretID string

	mu     sync.Mutex
	cached *Keys
}

// NewSecretsManagerSource creates a Secrets Manager backed key source.
// Panics if client is nil or secretID is empty to fail fast during
// initialization.
func NewSecretsManagerSource(client SecretsManagerClient, secretID string) *SecretsManagerSource {
	if client == nil {
		panic("vapid: Secrets Manager client is required")
	}
	if secretID == "" {
		panic("vapid: secret ID is required")
	}
	return &SecretsManagerSource{client: client, secretID: secretID}
}

func (s *SecretsManagerSource) Keys(ctx context.Context) (Keys, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached, nil
	}

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.secretID),
	})
	if err != nil {
		return Keys{}, errors.Join(ErrSecretFetchFailed, err)
	}

	var keys Keys
	if err := json.Unmarshal([]byte(aws.ToString(out.SecretString)), &keys); err != nil {
		return Keys{}, errors.Join(ErrSecretMalformed, err)
	}
	if err := keys.Validate(); err != nil {
		return Keys{}, errors.Join(ErrSecretMalformed, err)
	}

	s.cached = &keys
	return keys, nil
}
