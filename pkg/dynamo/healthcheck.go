package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// Healthcheck is a function that checks the health of the DynamoDB connection.
// It returns an error if the service is not reachable.
func Healthcheck(client *dynamodb.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)}); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
