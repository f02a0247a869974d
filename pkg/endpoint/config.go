package endpoint

// Config represents the configuration for the platform endpoint provisioner.
type Config struct {
	PlatformApplicationARN string `env:"SNS_PLATFORM_APPLICATION_ARN,required"` // PlatformApplicationARN identifies the SNS platform application (APNS/FCM) endpoints are created under.
}
