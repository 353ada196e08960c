package auth

import (
	"maps"
	"slices"
	"strings"
)

// Field names a credentials entry. Values double as the terraform variable
// names the templates declare, so collected fields can be left out of the
// configuration form.
type Field string

// AWS fields.
const (
	FieldAWSAuthMode        Field = "aws_auth_mode"
	FieldAWSProfile         Field = "aws_profile"
	FieldAWSAccessKeyID     Field = "aws_access_key_id"
	FieldAWSSecretAccessKey Field = "aws_secret_access_key"
	FieldAWSSessionToken    Field = "aws_session_token"
	FieldAWSAccountID       Field = "aws_account_id"
)

// Azure fields.
const (
	FieldAzureAuthMode       Field = "azure_auth_mode"
	FieldAzureTenantID       Field = "tenant_id"
	FieldAzureSubscriptionID Field = "subscription_id"
	FieldAzureClientID       Field = "azure_client_id"
	FieldAzureClientSecret   Field = "azure_client_secret"
)

// Databricks fields.
const (
	FieldDatabricksAuthMode     Field = "databricks_auth_mode"
	FieldDatabricksAccountID    Field = "databricks_account_id"
	FieldDatabricksProfile      Field = "databricks_profile"
	FieldDatabricksClientID     Field = "databricks_client_id"
	FieldDatabricksClientSecret Field = "databricks_client_secret"
)

// CollectedFields are the template inputs the auth screens collect. Forms
// built from a template leave them out.
var CollectedFields = []Field{
	FieldAWSProfile, FieldAWSAccessKeyID, FieldAWSSecretAccessKey, FieldAWSSessionToken, FieldAWSAccountID,
	FieldAzureTenantID, FieldAzureSubscriptionID, FieldAzureClientID, FieldAzureClientSecret,
	FieldDatabricksAccountID, FieldDatabricksProfile, FieldDatabricksClientID, FieldDatabricksClientSecret,
}

// FieldsOf returns every field of provider p, the auth mode included.
func FieldsOf(p Provider) []Field {
	switch p {
	case AWS:
		return []Field{FieldAWSAuthMode, FieldAWSProfile, FieldAWSAccessKeyID, FieldAWSSecretAccessKey, FieldAWSSessionToken, FieldAWSAccountID}
	case Azure:
		return []Field{FieldAzureAuthMode, FieldAzureTenantID, FieldAzureSubscriptionID, FieldAzureClientID, FieldAzureClientSecret}
	case Databricks:
		return []Field{FieldDatabricksAuthMode, FieldDatabricksAccountID, FieldDatabricksProfile, FieldDatabricksClientID, FieldDatabricksClientSecret}
	}
	return nil
}

// Sensitive reports whether the field holds a secret.
func (f Field) Sensitive() bool {
	switch f {
	case FieldAWSSecretAccessKey, FieldAWSSessionToken, FieldAzureClientSecret, FieldDatabricksClientSecret:
		return true
	}
	return false
}

// Internal reports whether the field is wizard bookkeeping rather than a template input.
func (f Field) Internal() bool {
	return strings.HasSuffix(string(f), "_auth_mode")
}

// Credentials maps fields to values. Only fields of the active provider and
// mode are present; absent fields are never defaulted.
type Credentials map[Field]string

// Get returns the value of f, or "".
func (c Credentials) Get(f Field) string {
	return c[f]
}

// Has reports whether f is present with a non-empty value.
func (c Credentials) Has(f Field) bool {
	return c[f] != ""
}

// Set stores v under f. An empty v removes the field.
func (c Credentials) Set(f Field, v string) {
	if v == "" {
		delete(c, f)
		return
	}
	c[f] = v
}

// Delete removes fields.
func (c Credentials) Delete(fields ...Field) {
	for _, f := range fields {
		delete(c, f)
	}
}

// Clone returns an independent copy.
func (c Credentials) Clone() Credentials {
	if c == nil {
		return Credentials{}
	}
	return maps.Clone(c)
}

// Only returns a copy holding just the present fields of provider p.
func (c Credentials) Only(p Provider) Credentials {
	out := Credentials{}
	for _, f := range FieldsOf(p) {
		if v, ok := c[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Fields returns the present fields in sorted order.
func (c Credentials) Fields() []Field {
	return slices.Sorted(maps.Keys(c))
}

// Variables returns the template inputs collected so far: every present,
// non-internal field keyed by its variable name.
func (c Credentials) Variables() map[string]string {
	out := make(map[string]string, len(c))
	for f, v := range c {
		if !f.Internal() {
			out[string(f)] = v
		}
	}
	return out
}

// Setter writes one credentials field. Orchestrators receive a Setter from
// the owner of the record instead of the record itself.
type Setter func(Field, string)
