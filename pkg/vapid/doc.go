// Package vapid supplies the signing key material used to authenticate
// outbound web pushes.
//
// The dispatcher consults a Source exactly once per dispatch batch, so all
// sources are cheap to call repeatedly. Three implementations ship with the
// package: StaticSource over explicit values, an environment-backed source
// via NewEnvSource, and SecretsManagerSource which caches an AWS Secrets
// Manager JSON secret after the first successful fetch.
//
// Key generation is out of scope; keys are provisioned by the operator.
package vapid
