// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/handlers"
)

// Root returns the root command for the wsdeploy CLI.
//
// Global flags:
//
//	--config: Path to the settings file (default ~/.wsdeploy/config.yaml)
//	--verbose, -v: Log verbosity, repeatable
//	--metrics-file: Write metrics in prometheus text format on exit
func Root() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:           "wsdeploy",
		Short:         "Deploy Databricks workspaces on AWS and Azure",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "Path to settings file (default: ~/.wsdeploy/config.yaml)")
	flags.CountVarP(&opts.Verbosity, "verbose", "v", "Increase log verbosity (-v bridge calls, -vv poll attempts)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write metrics in prometheus text format to this file on exit")

	cmd.AddCommand(Init(&opts))
	cmd.AddCommand(Validate(&opts))
	cmd.AddCommand(Profiles(&opts))
	cmd.AddCommand(Doctor(&opts))
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
