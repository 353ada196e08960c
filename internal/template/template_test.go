package template

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVariables = `
variable "name" {
  type        = string
  description = "Workspace name"
}

variable "enabled" {
  type    = bool
  default = true
}

variable "count" {
  type    = number
  default = 3
}

variable "ratio" {
  default = 0.5
}

variable "zones" {
  type    = list(string)
  default = ["a", "b"]
}

variable "tags" {
  type    = map(string)
  default = { team = "data" }
}

variable "secret" {
  type      = string
  sensitive = true
  default   = null
}

variable "settings" {
  type = object({
    size = string
  })

  validation {
    condition     = length(var.settings.size) > 0
    error_message = "size must be set"
  }
}
`

func TestParseVariables(t *testing.T) {
	t.Parallel()
	vars, err := ParseVariables("variables.tf", []byte(sampleVariables))
	require.NoError(t, err)
	require.Len(t, vars, 8)

	byName := map[string]Variable{}
	for _, v := range vars {
		byName[v.Name] = v
	}
	assert.Equal(t, "name", vars[0].Name, "declaration order is kept")

	assert.Equal(t, Variable{Name: "name", Kind: KindString, Description: "Workspace name"}, byName["name"])
	assert.True(t, byName["name"].Required())

	assert.Equal(t, KindBool, byName["enabled"].Kind)
	assert.Equal(t, true, byName["enabled"].Default)
	assert.False(t, byName["enabled"].Required())

	assert.Equal(t, int64(3), byName["count"].Default)
	assert.Equal(t, KindNumber, byName["ratio"].Kind, "kind is inferred from the default")
	assert.Equal(t, 0.5, byName["ratio"].Default)

	assert.Equal(t, KindList, byName["zones"].Kind)
	assert.Equal(t, []any{"a", "b"}, byName["zones"].Default)
	assert.Equal(t, KindMap, byName["tags"].Kind)
	assert.Equal(t, map[string]any{"team": "data"}, byName["tags"].Default)

	assert.True(t, byName["secret"].Sensitive)
	assert.True(t, byName["secret"].Required(), "a null default counts as none")

	assert.Equal(t, KindMap, byName["settings"].Kind)
	assert.True(t, byName["settings"].Required())
}

func TestParseVariables_SyntaxError(t *testing.T) {
	t.Parallel()
	_, err := ParseVariables("broken.tf", []byte(`variable "x" {`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"custom/variables.tf": {Data: []byte(`variable "workspace_name" { type = string }`)},
		"custom/versions.tf": {Data: []byte(`terraform {
  required_providers {
    azurerm = { source = "hashicorp/azurerm" }
  }
}`)},
		"custom/README.md": {Data: []byte("not terraform")},
	}

	tmpl, err := Load(fsys, "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", tmpl.Name)
	assert.Equal(t, CloudAzure, tmpl.Cloud)
	assert.True(t, tmpl.Declares("workspace_name"))
	assert.False(t, tmpl.Declares("prefix"))

	files, err := tmpl.Files()
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files, "versions.tf")
}

func TestLoad_CloudErrors(t *testing.T) {
	t.Parallel()
	noCloud := fstest.MapFS{
		"x/variables.tf": {Data: []byte(`variable "a" {}`)},
	}
	_, err := Load(noCloud, "x")
	assert.ErrorIs(t, err, ErrUnknownCloud)

	twoClouds := fstest.MapFS{
		"y/main.tf": {Data: []byte(`terraform {
  required_providers {
    aws     = { source = "hashicorp/aws" }
    azurerm = { source = "hashicorp/azurerm" }
  }
}`)},
	}
	_, err = Load(twoClouds, "y")
	assert.ErrorIs(t, err, ErrUnknownCloud)
}

func TestLoadCatalog_Builtin(t *testing.T) {
	t.Parallel()
	c, err := LoadCatalog("")
	require.NoError(t, err)

	aws, err := c.Get("aws-standard")
	require.NoError(t, err)
	assert.Equal(t, CloudAWS, aws.Cloud)
	assert.True(t, aws.Builtin)
	assert.Equal(t, "builtin:aws-standard", aws.Source())
	assert.True(t, aws.Declares("create_new_vpc"))

	azure, err := c.Get("azure-standard")
	require.NoError(t, err)
	assert.Equal(t, CloudAzure, azure.Cloud)
	admin, ok := azure.Lookup("admin_user")
	require.True(t, ok)
	assert.True(t, admin.Required())

	assert.Len(t, c.ForCloud(CloudAzure), 1)
	_, err = c.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	files, err := azure.Files()
	require.NoError(t, err)
	assert.Contains(t, files, "variables.tf")
}

func TestLoadCatalog_Directory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	providers := `terraform {
  required_providers {
    aws = { source = "hashicorp/aws" }
  }
}
`
	write("aws-minimal/variables.tf", providers+`variable "workspace_name" { type = string }`)
	write("aws-standard/variables.tf", providers+`variable "override" { type = string }`)
	write("notes/README.md", "skipped: no variables.tf")

	c, err := LoadCatalog(dir)
	require.NoError(t, err)

	var names []string
	for _, tmpl := range c.All() {
		names = append(names, tmpl.Name)
	}
	assert.Equal(t, []string{"aws-minimal", "aws-standard", "azure-standard"}, names)

	overridden, err := c.Get("aws-standard")
	require.NoError(t, err)
	assert.False(t, overridden.Builtin)
	assert.True(t, overridden.Declares("override"))
	assert.Equal(t, filepath.Join(dir, "aws-standard"), overridden.Source())
	assert.Len(t, c.ForCloud(CloudAWS), 2)
}

func TestLoadCatalog_MissingDirectory(t *testing.T) {
	t.Parallel()
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
