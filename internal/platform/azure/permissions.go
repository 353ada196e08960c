package azure

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/imamik/wsdeploy/internal/auth"
)

// RequiredActions are the Resource Manager actions a workspace deployment performs.
var RequiredActions = []string{
	"Microsoft.Resources/subscriptions/resourceGroups/write",
	"Microsoft.Network/virtualNetworks/write",
	"Microsoft.Network/networkSecurityGroups/write",
	"Microsoft.Storage/storageAccounts/write",
	"Microsoft.Databricks/workspaces/write",
	"Microsoft.Authorization/roleAssignments/write",
}

// Permission is one entry of the effective permissions of a caller.
type Permission struct {
	Actions    []string `json:"actions"`
	NotActions []string `json:"notActions"`
}

// Allows reports whether the entry grants action.
func (p Permission) Allows(action string) bool {
	granted := false
	for _, a := range p.Actions {
		if matchAction(a, action) {
			granted = true
			break
		}
	}
	if !granted {
		return false
	}
	for _, na := range p.NotActions {
		if matchAction(na, action) {
			return false
		}
	}
	return true
}

// matchAction matches an action against a pattern where * spans any
// characters, slashes included. Comparison ignores case.
func matchAction(pattern, action string) bool {
	if pattern == "*" {
		return true
	}
	expr := "(?i)^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(action)
}

// CheckPermissions reads the caller's effective permissions on the
// subscription in creds and reports the required actions they lack.
func (b *Bridge) CheckPermissions(ctx context.Context, creds auth.Credentials) (auth.PermissionCheck, error) {
	checked := append([]string(nil), b.requiredActions...)
	res := auth.PermissionCheck{Checked: checked}

	subscriptionID := creds.Get(auth.FieldAzureSubscriptionID)
	if subscriptionID == "" {
		return res, auth.Incomplete("select a subscription before checking permissions")
	}
	client, err := b.armClient(ctx, creds)
	if err != nil {
		return res, auth.NewProviderError(auth.Azure, "authenticate", err)
	}

	var page struct {
		Value    []Permission `json:"value"`
		NextLink string       `json:"nextLink"`
	}
	var perms []Permission
	next := fmt.Sprintf("%s/subscriptions/%s/providers/Microsoft.Authorization/permissions?api-version=%s",
		strings.TrimSuffix(b.managementEndpoint, "/"), url.PathEscape(subscriptionID), permissionsAPIVersion)
	for i := 0; next != "" && i < maxPages; i++ {
		page.Value, page.NextLink = nil, ""
		if err := b.getJSON(ctx, client, "permissions", next, &page); err != nil {
			return res, auth.NewProviderError(auth.Azure, "list permissions", err)
		}
		perms = append(perms, page.Value...)
		next = page.NextLink
	}

	for _, action := range checked {
		if !allowedBy(perms, action) {
			res.Missing = append(res.Missing, action)
		}
	}
	sort.Strings(res.Missing)
	res.HasAllPermissions = len(res.Missing) == 0
	if !res.HasAllPermissions {
		res.Message = fmt.Sprintf("Missing %d of %d required actions on subscription %s.", len(res.Missing), len(checked), subscriptionID)
	}
	return res, nil
}

func allowedBy(perms []Permission, action string) bool {
	for _, p := range perms {
		if p.Allows(action) {
			return true
		}
	}
	return false
}
