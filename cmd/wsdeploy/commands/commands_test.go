package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/wsdeploy/cmd/wsdeploy/handlers"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "wsdeploy", cmd.Use)
	assert.Equal(t, "Deploy Databricks workspaces on AWS and Azure", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	expectedSubcommands := []string{
		"init",
		"validate",
		"profiles",
		"doctor",
		"version",
		"completion",
	}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
	assert.Len(t, cmd.Commands(), len(expectedSubcommands))
}

func TestRoot_GlobalFlags(t *testing.T) {
	cmd := Root()
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--config", "/tmp/c.yaml", "-vv", "--metrics-file", "/tmp/m.prom"}))

	verbosity, err := cmd.PersistentFlags().GetCount("verbose")
	require.NoError(t, err)
	assert.Equal(t, 2, verbosity)

	config := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, config)
	assert.Equal(t, "/tmp/c.yaml", config.Value.String())
	assert.Equal(t, "/tmp/m.prom", cmd.PersistentFlags().Lookup("metrics-file").Value.String())
}

func TestInit_OutputFlag(t *testing.T) {
	cmd := Init(&handlers.Options{})

	assert.Equal(t, "init", cmd.Use)
	flag := cmd.Flags().Lookup("output")
	require.NotNil(t, flag, "output flag should exist")
	assert.Equal(t, "o", flag.Shorthand)
	assert.Equal(t, "", flag.DefValue)
	assert.NotNil(t, cmd.RunE)
}

func TestValidate_RequiredFlags(t *testing.T) {
	root := Root()
	root.SetArgs([]string{"validate", "--template", "aws-standard"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "values" not set`)
}

func TestValidate_Flags(t *testing.T) {
	cmd := Validate(&handlers.Options{})

	for name, short := range map[string]string{"template": "t", "values": "f"} {
		flag := cmd.Flags().Lookup(name)
		require.NotNil(t, flag, "%s flag should exist", name)
		assert.Equal(t, short, flag.Shorthand)
	}
}

func TestDoctor_CloudFlag(t *testing.T) {
	cmd := Doctor(&handlers.Options{})

	flag := cmd.Flags().Lookup("cloud")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestProfiles(t *testing.T) {
	cmd := Profiles(&handlers.Options{})
	assert.Equal(t, "profiles", cmd.Use)
	assert.NotNil(t, cmd.RunE)
}

func TestVersion_Output(t *testing.T) {
	origVersion, origCommit, origDate := version, commit, date
	t.Cleanup(func() {
		SetVersionInfo(origVersion, origCommit, origDate)
	})
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")

	var out bytes.Buffer
	cmd := Version()
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "wsdeploy 1.2.3")
	assert.Contains(t, out.String(), "commit: abc123")
	assert.Contains(t, out.String(), "built:  2026-01-01")
}

func TestCompletion(t *testing.T) {
	cmd := Completion()

	assert.Equal(t, []string{"bash", "zsh", "fish", "powershell"}, cmd.ValidArgs)
	assert.True(t, cmd.DisableFlagsInUseLine)
}

func TestCompletion_Shells(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			var out bytes.Buffer
			root := Root()
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})

			require.NoError(t, root.Execute())
			assert.Contains(t, out.String(), "wsdeploy")
		})
	}
}

func TestCompletion_InvalidShell(t *testing.T) {
	root := Root()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})

	assert.Error(t, root.Execute())
}
