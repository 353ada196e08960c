package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/util/poll"
)

// Defaults.
const (
	DefaultOutputDir          = "."
	DefaultAWSRegion          = "us-east-1"
	DefaultManagementEndpoint = "https://management.azure.com"
	DefaultAuthorityHost      = "https://login.microsoftonline.com"
)

// Config holds the application settings.
type Config struct {
	Poll        PollConfig        `mapstructure:"poll" yaml:"poll"`
	Permissions PermissionsConfig `mapstructure:"permissions" yaml:"permissions"`

	// TemplatesDir adds the templates below it to the built-in ones.
	TemplatesDir string `mapstructure:"templates_dir" yaml:"templates_dir"`
	// OutputDir is a directory or an s3:// URL.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	AWS        AWSConfig        `mapstructure:"aws" yaml:"aws"`
	Azure      AzureConfig      `mapstructure:"azure" yaml:"azure"`
	Databricks DatabricksConfig `mapstructure:"databricks" yaml:"databricks"`
}

// PollConfig is the polling policy of browser and device-code logins.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval" yaml:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// PermissionsConfig controls permission probes.
type PermissionsConfig struct {
	// Strict fails a probe that could not run instead of passing it with a warning.
	Strict bool `mapstructure:"strict" yaml:"strict"`
}

// AWSConfig holds AWS settings.
type AWSConfig struct {
	// Region is used for STS and IAM calls when the profile names none.
	Region string `mapstructure:"region" yaml:"region"`
}

// AzureConfig holds Azure settings. The endpoints differ in sovereign clouds.
type AzureConfig struct {
	ManagementEndpoint string `mapstructure:"management_endpoint" yaml:"management_endpoint"`
	AuthorityHost      string `mapstructure:"authority_host" yaml:"authority_host"`
}

// DatabricksConfig holds Databricks settings.
type DatabricksConfig struct {
	// ConfigFile is the CLI profile file. Empty means DATABRICKS_CONFIG_FILE
	// or ~/.databrickscfg.
	ConfigFile string `mapstructure:"config_file" yaml:"config_file"`
	// AccountsHost overrides the accounts console of the selected cloud.
	AccountsHost string `mapstructure:"accounts_host" yaml:"accounts_host"`
}

// Default returns the settings used without a settings file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Poll.Interval == 0 {
		c.Poll.Interval = poll.DefaultInterval
	}
	if c.Poll.MaxAttempts == 0 {
		c.Poll.MaxAttempts = poll.DefaultMaxAttempts
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.AWS.Region == "" {
		c.AWS.Region = DefaultAWSRegion
	}
	if c.Azure.ManagementEndpoint == "" {
		c.Azure.ManagementEndpoint = DefaultManagementEndpoint
	}
	if c.Azure.AuthorityHost == "" {
		c.Azure.AuthorityHost = DefaultAuthorityHost
	}
}

// Validate checks the settings and reports every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.Poll.Interval <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval))
	}
	if c.Poll.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("poll.max_attempts must be at least 1, got %d", c.Poll.MaxAttempts))
	}
	if c.TemplatesDir != "" {
		info, err := os.Stat(c.TemplatesDir)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("templates_dir: %w", err))
		case !info.IsDir():
			errs = append(errs, fmt.Errorf("templates_dir %s is not a directory", c.TemplatesDir))
		}
	}
	if err := validateEndpoint("azure.management_endpoint", c.Azure.ManagementEndpoint); err != nil {
		errs = append(errs, err)
	}
	if err := validateEndpoint("azure.authority_host", c.Azure.AuthorityHost); err != nil {
		errs = append(errs, err)
	}
	if c.Databricks.AccountsHost != "" {
		if err := validateEndpoint("databricks.accounts_host", c.Databricks.AccountsHost); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func validateEndpoint(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%s must be an https URL, got %q", key, raw)
	}
	return nil
}

// PollOptions returns the login polling policy.
func (c *Config) PollOptions() []poll.Option {
	return []poll.Option{
		poll.WithInterval(c.Poll.Interval),
		poll.WithMaxAttempts(c.Poll.MaxAttempts),
	}
}

// PermissionPolicy maps permissions.strict to a policy.
func (c *Config) PermissionPolicy() auth.PermissionPolicy {
	return auth.PolicyFor(c.Permissions.Strict)
}

// AuthOptions returns the orchestrator options the settings imply.
func (c *Config) AuthOptions(logger logr.Logger) []auth.Option {
	return []auth.Option{
		auth.WithLogger(logger),
		auth.WithPolicy(c.PermissionPolicy()),
		auth.WithPollOptions(c.PollOptions()...),
	}
}

// DefaultPath returns ~/.wsdeploy/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".wsdeploy", "config.yaml"), nil
}
