package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/handlers"
)

// Validate returns the command for checking a values file against a template.
//
// Required flags:
//
//	--template, -t: Template name
//	--values, -f: YAML file of variable values
func Validate(opts *handlers.Options) *cobra.Command {
	var templateName, valuesPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate template values without prompting",
		Long: `Validate a values file against the variables of a template.

Values override the template defaults. Network toggles such as
create_new_vpc decide which network fields are required. Missing and
malformed fields are listed and the command exits non-zero.

Examples:
  # Check values for the built-in Azure template
  wsdeploy validate --template azure-standard --values values.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Validate(cmd.Context(), *opts, templateName, valuesPath)
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "", "Template name")
	cmd.Flags().StringVarP(&valuesPath, "values", "f", "", "Path to values YAML file")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("values")

	return cmd
}
