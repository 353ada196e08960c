// Package main is the entry point for the wsdeploy CLI.
//
// wsdeploy walks through deploying a Databricks workspace on AWS or Azure:
// it signs in to the cloud and to the Databricks account console, collects
// the variables of a Terraform template and writes the deployment for
// Terraform to apply.
//
// Commands: init, validate, profiles, doctor.
//
// For detailed usage information, run:
//
//	wsdeploy --help
package main

import (
	"fmt"
	"os"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
