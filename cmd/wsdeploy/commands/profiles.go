package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/handlers"
)

// Profiles returns the command listing the configured CLI credentials.
func Profiles(opts *handlers.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List AWS and Databricks profiles and the Azure session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Profiles(cmd.Context(), *opts)
		},
	}
}
