package dynamo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Connect builds a DynamoDB client from the provided configuration and verifies
// the service is reachable. It attempts the reachability check multiple times
// based on the RetryAttempts config value, with a delay between attempts
// specified by RetryInterval.
//
// Static credentials are only wired in when both AccessKeyID and
// SecretAccessKey are set; otherwise the default AWS credential chain is used.
// EndpointURL overrides the service endpoint, which is how DynamoDB Local is
// targeted in development.
func Connect(ctx context.Context, cfg Config) (*dynamodb.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadAWSConfig, err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})

	// Retry the reachability check before handing the client out
	for range cfg.RetryAttempts {
		if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err == nil {
			return client, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrDynamoNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrDynamoNotReady
}
