package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/ui/tui"
	"github.com/imamik/wsdeploy/internal/util/prerequisites"
)

// checkTools looks up the CLI tools - can be replaced in tests.
var checkTools = prerequisites.Check

// Doctor reports which CLI tools are installed and whether the settings
// load. With a cloud, the tools that cloud needs are required and a
// missing one fails the command.
func Doctor(ctx context.Context, opts Options, cloud string) error {
	tools := prerequisites.AllTools()
	if cloud != "" {
		switch template.Cloud(cloud) {
		case template.CloudAWS, template.CloudAzure:
		default:
			return fmt.Errorf("unknown cloud %q, expected %s or %s", cloud, template.CloudAWS, template.CloudAzure)
		}
		tools = prerequisites.ToolsFor(cloud)
	}

	fmt.Println("wsdeploy doctor")
	fmt.Println("===============")

	s, err := openSession(opts)
	if err != nil {
		fmt.Printf("\n  Settings: %v\n", err)
	} else {
		defer s.close()
		fmt.Printf("\n  Settings: ok (poll every %s, %d attempts, strict permissions: %t)\n",
			s.cfg.Poll.Interval, s.cfg.Poll.MaxAttempts, s.cfg.Permissions.Strict)
		if catalog, err := s.catalog(); err != nil {
			fmt.Printf("  Templates: %v\n", err)
		} else {
			fmt.Printf("  Templates: %d available\n", len(catalog.All()))
		}
	}

	results := checkTools(ctx, tools, true)
	fmt.Print(tui.RenderTools(results))

	return results.Error()
}
