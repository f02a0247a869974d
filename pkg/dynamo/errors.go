package dynamo

import "errors"

var (
	ErrFailedToLoadAWSConfig = errors.New("failed to load aws configuration")
	ErrDynamoNotReady        = errors.New("dynamodb is not ready")
	ErrHealthcheckFailed     = errors.New("dynamodb healthcheck failed")
)
