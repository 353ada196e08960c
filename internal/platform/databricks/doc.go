// Package databricks is the Databricks side of the provider bridges.
//
// Profiles live in the Databricks CLI configuration file (~/.databrickscfg
// unless DATABRICKS_CONFIG_FILE says otherwise). The bridge reads it
// directly and appends service principal profiles to it; OAuth logins are
// delegated to `databricks auth login`.
package databricks
