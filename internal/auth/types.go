package auth

import (
	"strings"
	"time"
)

// Provider identifies an authentication target.
type Provider string

// Providers.
const (
	AWS        Provider = "aws"
	Azure      Provider = "azure"
	Databricks Provider = "databricks"
)

// Profile is a named credential reference configured in a provider's own tooling.
// It is a snapshot and goes stale as soon as the tool's config changes.
type Profile struct {
	Name     string   `json:"name"`
	Provider Provider `json:"provider"`

	AccountID string `json:"account_id,omitempty"`
	TenantID  string `json:"tenant_id,omitempty"`
	Region    string `json:"region,omitempty"`
	Host      string `json:"host,omitempty"`

	// SSO marks an AWS profile backed by IAM Identity Center.
	SSO bool `json:"sso,omitempty"`
	// HasToken marks a long-lived token or an OAuth login.
	HasToken bool `json:"has_token,omitempty"`
	// HasClientCredentials marks client id + secret authentication.
	HasClientCredentials bool `json:"has_client_credentials,omitempty"`

	// UpdatedAt is when the tooling last wrote the profile's auth material,
	// zero when unknown.
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Authenticated reports whether the profile carries usable auth material.
func (p Profile) Authenticated() bool {
	return p.HasToken || p.HasClientCredentials
}

// FindProfile returns the profile named name.
func FindProfile(profiles []Profile, name string) (Profile, bool) {
	for _, p := range profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// ProfileNames returns the names of profiles in order.
func ProfileNames(profiles []Profile) []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}

// Identity is the principal a credential resolved to.
type Identity struct {
	Provider  Provider `json:"provider"`
	Principal string   `json:"principal"`
	AccountID string   `json:"account_id,omitempty"`
	TenantID  string   `json:"tenant_id,omitempty"`
	ARN       string   `json:"arn,omitempty"`
}

// PermissionCheck is the result of probing the actions provisioning needs.
type PermissionCheck struct {
	HasAllPermissions bool     `json:"has_all_permissions"`
	Checked           []string `json:"checked,omitempty"`
	Missing           []string `json:"missing,omitempty"`
	Message           string   `json:"message,omitempty"`
	// IsWarning marks a check that could not be verified and passed by policy.
	IsWarning bool `json:"is_warning,omitempty"`
}

// Summary renders the check for terminal output.
func (c PermissionCheck) Summary() string {
	switch {
	case c.IsWarning:
		return "warning: " + c.Message
	case c.HasAllPermissions:
		return "all required permissions granted"
	case len(c.Missing) > 0:
		return "missing permissions: " + strings.Join(c.Missing, ", ")
	default:
		return c.Message
	}
}
