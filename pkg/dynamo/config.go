package dynamo

import "time"

// Config represents the configuration for the DynamoDB connection.
type Config struct {
	Region          string        `env:"AWS_REGION" envDefault:"us-east-1"`      // Region is the AWS region the table lives in.
	EndpointURL     string        `env:"DYNAMODB_ENDPOINT"`                      // EndpointURL overrides the service endpoint, used for DynamoDB Local in development.
	AccessKeyID     string        `env:"AWS_ACCESS_KEY_ID"`                      // AccessKeyID enables static credentials when set together with SecretAccessKey.
	SecretAccessKey string        `env:"AWS_SECRET_ACCESS_KEY"`                  // SecretAccessKey is the secret part of the static credential pair.
	SessionToken    string        `env:"AWS_SESSION_TOKEN"`                      // SessionToken is the optional session token for temporary credentials.
	RetryAttempts   int           `env:"DYNAMODB_RETRY_ATTEMPTS" envDefault:"3"` // RetryAttempts is the number of retry attempts to reach the service.
	RetryInterval   time.Duration `env:"DYNAMODB_RETRY_INTERVAL" envDefault:"5s"` // RetryInterval is the interval between retry attempts.
	ConnectTimeout  time.Duration `env:"DYNAMODB_CONNECT_TIMEOUT" envDefault:"30s"` // ConnectTimeout is the timeout for the initial reachability check.
}
