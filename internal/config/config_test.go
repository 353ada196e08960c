package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/wsdeploy/internal/auth"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, 60, cfg.Poll.MaxAttempts)
	assert.False(t, cfg.Permissions.Strict)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, DefaultManagementEndpoint, cfg.Azure.ManagementEndpoint)
	assert.Empty(t, cfg.TemplatesDir)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, auth.FailOpen, cfg.PermissionPolicy())
}

func TestLoadFile(t *testing.T) {
	templates := t.TempDir()
	path := writeConfig(t, `
poll:
  interval: 2s
  max_attempts: 30
permissions:
  strict: true
templates_dir: `+templates+`
output_dir: s3://deployments/prod
aws:
  region: eu-west-1
databricks:
  config_file: /tmp/databrickscfg
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.Equal(t, 30, cfg.Poll.MaxAttempts)
	assert.True(t, cfg.Permissions.Strict)
	assert.Equal(t, auth.FailClosed, cfg.PermissionPolicy())
	assert.Equal(t, templates, cfg.TemplatesDir)
	assert.Equal(t, "s3://deployments/prod", cfg.OutputDir)
	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "/tmp/databrickscfg", cfg.Databricks.ConfigFile)
	assert.Equal(t, DefaultAuthorityHost, cfg.Azure.AuthorityHost, "unset keys get defaults")
	assert.Len(t, cfg.PollOptions(), 2)
	assert.Len(t, cfg.AuthOptions(logr.Discard()), 3)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			content: "poll: [",
			wantErr: "failed to unmarshal yaml",
		},
		{
			name:    "unknown key",
			content: "poll:\n  intervall: 2s\n",
			wantErr: "intervall",
		},
		{
			name:    "bad duration",
			content: "poll:\n  interval: soon\n",
			wantErr: "failed to decode config",
		},
		{
			name:    "negative interval",
			content: "poll:\n  interval: -1s\n",
			wantErr: "poll.interval must be positive",
		},
		{
			name:    "negative attempts",
			content: "poll:\n  max_attempts: -3\n",
			wantErr: "poll.max_attempts must be at least 1",
		},
		{
			name:    "missing templates dir",
			content: "templates_dir: /nonexistent/wsdeploy-templates\n",
			wantErr: "templates_dir",
		},
		{
			name:    "plain http endpoint",
			content: "azure:\n  management_endpoint: http://management.azure.com\n",
			wantErr: "azure.management_endpoint must be an https URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile_Empty(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	t.Run("named file must exist", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("absent default file yields defaults", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("default file is read", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".wsdeploy"), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(home, ".wsdeploy", "config.yaml"), []byte("output_dir: out\n"), 0o600))

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "out", cfg.OutputDir)
	})
}
