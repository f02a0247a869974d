// Package dynamo provides convenient helpers for connecting to DynamoDB
// inside relay based applications.
//
// The package wraps the AWS SDK v2 DynamoDB client and adds:
//
//   - Robust `Connect` which verifies reachability with retries using the
//     supplied configuration.
//   - Health-check helpers to integrate DynamoDB into HTTP or GRPC liveness /
//     readiness probes.
//
// Configuration is described by the `Config` struct whose fields can be
// populated from environment variables via github.com/caarlos0/env.
//
// # Usage
//
// Import the package:
//
//	import "github.com/dmitrymomot/relaykit/pkg/dynamo"
//
// Create configuration (most projects rely on env parsing):
//
//	cfg := dynamo.Config{
//	    Region:         "us-east-1",
//	    RetryAttempts:  3,
//	    RetryInterval:  5 * time.Second,
//	    ConnectTimeout: 30 * time.Second,
//	}
//
// Connect with auto-retry:
//
//	ctx := context.Background()
//	client, err := dynamo.Connect(ctx, cfg)
//	if err != nil {
//	    // handle error, probably terminate the application
//	}
//
// Register a health-check in your observability stack:
//
//	checker := dynamo.Healthcheck(client)
//	if err := checker(ctx); err != nil {
//	    // dynamodb is not healthy
//	}
//
// For local development point EndpointURL at DynamoDB Local and supply the
// usual dummy static credentials.
package dynamo
