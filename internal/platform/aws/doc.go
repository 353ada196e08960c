// Package aws implements the AWS bridge of the authentication orchestrator.
//
// Profile names come from `aws configure list-profiles` and their metadata
// from the shared config files. Identities are resolved with STS
// GetCallerIdentity, permissions probed with IAM SimulatePrincipalPolicy
// against the caller, and SSO logins started with `aws sso login`.
package aws
