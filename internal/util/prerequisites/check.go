// Package prerequisites detects the provider command-line tools wsdeploy
// delegates to. Installing them is left to the operator.
package prerequisites

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Tool represents a client tool that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string

	// InstallURL provides a URL for installation instructions.
	InstallURL string

	// VersionArgs are the arguments printing the tool version.
	VersionArgs []string
}

var (
	awsCLI = Tool{
		Name:        "aws",
		Description: "Lists AWS profiles and runs SSO logins",
		InstallURL:  "https://docs.aws.amazon.com/cli/latest/userguide/getting-started-install.html",
		VersionArgs: []string{"--version"},
	}
	azureCLI = Tool{
		Name:        "az",
		Description: "Azure session, subscriptions and resource groups",
		InstallURL:  "https://learn.microsoft.com/cli/azure/install-azure-cli",
		VersionArgs: []string{"version", "--output", "tsv"},
	}
	databricksCLI = Tool{
		Name:        "databricks",
		Description: "Databricks account OAuth login",
		InstallURL:  "https://docs.databricks.com/dev-tools/cli/install.html",
		VersionArgs: []string{"--version"},
	}
	terraform = Tool{
		Name:        "terraform",
		Description: "Provisions the workspace from the written deployment",
		InstallURL:  "https://developer.hashicorp.com/terraform/install",
		VersionArgs: []string{"version"},
	}
)

// versionTimeout bounds a single version probe; `az version` alone can take seconds.
const versionTimeout = 10 * time.Second

// ToolsFor returns the tools needed to deploy a workspace on the given cloud
// ("aws" or "azure"). The Databricks CLI and terraform are always listed;
// an unknown cloud yields only those.
func ToolsFor(cloud string) []Tool {
	var tools []Tool
	switch cloud {
	case "aws":
		tools = append(tools, required(awsCLI))
	case "azure":
		tools = append(tools, required(azureCLI))
	}
	return append(tools, required(databricksCLI), optional(terraform))
}

// AllTools returns every tool wsdeploy can use, all marked optional.
func AllTools() []Tool {
	return []Tool{optional(awsCLI), optional(azureCLI), optional(databricksCLI), optional(terraform)}
}

func required(t Tool) Tool {
	t.Required = true
	return t
}

func optional(t Tool) Tool {
	t.Required = false
	return t
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.InstallURL))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Found reports whether the named tool was found.
func (r *CheckResults) Found(name string) bool {
	for _, res := range r.Results {
		if res.Tool.Name == name {
			return res.Found
		}
	}
	return false
}

// LookPath is the PATH lookup used by Check. Replaceable in tests.
var LookPath = exec.LookPath

// Check verifies that the specified tools are available.
// Versions are probed only when withVersion is set.
func Check(ctx context.Context, tools []Tool, withVersion bool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
			if withVersion {
				result.Version = toolVersion(ctx, path, tool.VersionArgs)
			}
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// toolVersion returns the first output line of the version command, or ""
// when the tool cannot report one.
func toolVersion(ctx context.Context, path string, args []string) string {
	if len(args) == 0 {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	// #nosec G204 - path and args come from the fixed tool table, not user input
	output, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(output), "\n")
	return strings.TrimSpace(line)
}
