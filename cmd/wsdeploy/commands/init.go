package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/handlers"
)

// Init returns the command for interactively creating a workspace deployment.
//
// Flags:
//
//	--output, -o: Directory or s3:// URI the deployment is written to
//	              (default: output_dir from the settings)
func Init(opts *handlers.Options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a workspace deployment",
		Long: `Interactively create a Databricks workspace deployment.

The wizard guides you through:

  - Choosing the cloud (AWS or Azure)
  - Checking the required CLI tools
  - Signing in to the cloud (profile, SSO, access keys, az login
    or a service principal)
  - Signing in to the Databricks account console (CLI profile,
    browser login or service principal)
  - Choosing a template and filling in its variables
  - Tagging the created resources

The result is written as deployment.yaml, with secrets redacted, and
terraform.tfvars.json below <output>/<workspace>. An s3:// output
uploads both files with the AWS credentials chosen in the wizard.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), *opts, output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory or s3:// URI (default: output_dir setting)")

	return cmd
}
