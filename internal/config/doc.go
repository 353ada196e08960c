// Package config loads the wsdeploy settings file.
//
// Settings live in ~/.wsdeploy/config.yaml unless --config names another
// file. They cover the login polling policy, permission strictness, where
// templates are read from and where deployments are written. Command-line
// flags override file values.
package config
