// Package azure is the Azure side of the provider bridges.
//
// Session operations go through the `az` CLI. Service principal operations
// and the permission probe call Azure Resource Manager directly with an
// OAuth2 client-credentials token, so they work without a CLI session.
package azure
