// Package naming provides consistent names derived from a workspace name.
//
// Databricks CLI profiles created by wsdeploy follow the pattern
// wsdeploy-{account8} for OAuth logins and {workspace}-sp for service
// principals. Hand-off artifacts live under {output}/{workspace}/.
package naming
