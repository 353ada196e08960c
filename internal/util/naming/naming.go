package naming

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Hand-off file names.
const (
	DeploymentFile = "deployment.yaml"
	TfvarsFile     = "terraform.tfvars.json"
)

// OAuthProfile is the Databricks CLI profile an OAuth login for accountID is stored under.
func OAuthProfile(accountID string) string {
	id := strings.ToLower(strings.ReplaceAll(accountID, "-", ""))
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		return "wsdeploy"
	}
	return fmt.Sprintf("wsdeploy-%s", id)
}

// ServicePrincipalProfile is the suggested profile name for a service principal of workspace.
func ServicePrincipalProfile(workspace string) string {
	return fmt.Sprintf("%s-sp", workspace)
}

// DeploymentDir is the local directory the hand-off of workspace is written to.
func DeploymentDir(outputDir, workspace string) string {
	return filepath.Join(outputDir, workspace)
}

// ObjectKey is the S3 key of a hand-off file of workspace below prefix.
func ObjectKey(prefix, workspace, file string) string {
	return path.Join(strings.Trim(prefix, "/"), workspace, file)
}
