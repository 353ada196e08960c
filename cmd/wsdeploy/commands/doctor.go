package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/handlers"
)

// Doctor returns the command for diagnosing the local setup.
//
// Optional flags:
//
//	--cloud: Require the tools needed for aws or azure
func Doctor(opts *handlers.Options) *cobra.Command {
	var cloud string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check installed tools and settings",
		Long: `Check the local setup of wsdeploy.

Shows whether the settings file loads, how many templates are available
and which of aws, az, databricks and terraform are installed.

Examples:
  # Show everything
  wsdeploy doctor

  # Fail when a tool needed for Azure is missing
  wsdeploy doctor --cloud azure`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), *opts, cloud)
		},
	}

	cmd.Flags().StringVar(&cloud, "cloud", "", "Require the tools of this cloud (aws or azure)")

	return cmd
}
