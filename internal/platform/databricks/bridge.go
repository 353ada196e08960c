package databricks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/auth"
	dbauth "github.com/imamik/wsdeploy/internal/auth/databricks"
	"github.com/imamik/wsdeploy/internal/platform/exec"
)

// Accounts console hosts.
const (
	AWSAccountsHost   = "https://accounts.cloud.databricks.com"
	AzureAccountsHost = "https://accounts.azuredatabricks.net"
)

// authTypeCLI marks a profile whose tokens the CLI obtained by OAuth.
const authTypeCLI = "databricks-cli"

// ErrProfileExists is returned when adding a profile whose name is taken.
var ErrProfileExists = errors.New("profile already exists")

// Bridge reads and writes Databricks CLI profiles.
type Bridge struct {
	runner       exec.Runner
	logger       logr.Logger
	configFile   string
	tokenCache   string
	accountsHost string

	mu sync.Mutex
}

var _ dbauth.Bridge = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithConfigFile sets the configuration file location.
func WithConfigFile(path string) Option {
	return func(b *Bridge) {
		if path != "" {
			b.configFile = path
		}
	}
}

// WithTokenCache sets the file the CLI caches OAuth tokens in.
func WithTokenCache(path string) Option {
	return func(b *Bridge) {
		if path != "" {
			b.tokenCache = path
		}
	}
}

// WithAccountsHost sets the accounts console host used for logins and new profiles.
func WithAccountsHost(host string) Option {
	return func(b *Bridge) {
		if host != "" {
			b.accountsHost = strings.TrimSuffix(host, "/")
		}
	}
}

// NewBridge creates a Bridge running CLI commands through runner.
func NewBridge(runner exec.Runner, opts ...Option) *Bridge {
	b := &Bridge{
		runner:       runner,
		logger:       logr.Discard(),
		configFile:   DefaultConfigFile(),
		tokenCache:   DefaultTokenCache(),
		accountsHost: AWSAccountsHost,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// DefaultConfigFile returns the configuration file the Databricks CLI uses.
func DefaultConfigFile() string {
	if path := os.Getenv("DATABRICKS_CONFIG_FILE"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".databrickscfg"
	}
	return filepath.Join(home, ".databrickscfg")
}

// DefaultTokenCache returns the file the Databricks CLI caches OAuth tokens in.
func DefaultTokenCache() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".databricks", "token-cache.json")
	}
	return filepath.Join(home, ".databricks", "token-cache.json")
}

// ConfigFile returns the configuration file location.
func (b *Bridge) ConfigFile() string {
	return b.configFile
}

// ListProfiles returns the account-level profiles, those carrying an
// account_id, in file order. UpdatedAt is the modification time of the
// config file, or of the token cache for OAuth profiles when that is later.
func (b *Bridge) ListProfiles(_ context.Context) ([]auth.Profile, error) {
	b.mu.Lock()
	sections, err := readConfig(b.configFile)
	b.mu.Unlock()
	if err != nil {
		return nil, auth.NewProviderError(auth.Databricks, "list profiles", err)
	}
	configTime := modTime(b.configFile)
	tokenTime := modTime(b.tokenCache)

	profiles := []auth.Profile{}
	for _, s := range sections {
		accountID := s.keys["account_id"]
		if accountID == "" {
			continue
		}
		updated := configTime
		if s.keys["auth_type"] == authTypeCLI && tokenTime.After(updated) {
			updated = tokenTime
		}
		profiles = append(profiles, auth.Profile{
			Name:                 s.name,
			Provider:             auth.Databricks,
			AccountID:            accountID,
			Host:                 s.keys["host"],
			HasToken:             s.keys["token"] != "" || s.keys["auth_type"] == authTypeCLI,
			HasClientCredentials: s.keys["client_id"] != "" && s.keys["client_secret"] != "",
			UpdatedAt:            updated,
		})
	}
	return profiles, nil
}

// modTime returns the modification time of path, zero when it cannot be read.
func modTime(path string) time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// OAuthLogin starts `databricks auth login` for the account. It returns once
// the CLI is running; the login completes in the browser and the CLI then
// writes the profile.
func (b *Bridge) OAuthLogin(ctx context.Context, accountID, profile string) error {
	if accountID == "" {
		return auth.Incomplete("Databricks account ID is required")
	}
	err := b.runner.Start(ctx, "databricks", "auth", "login",
		"--host", b.accountsHost,
		"--account-id", accountID,
		"--profile", profile)
	return auth.NewProviderError(auth.Databricks, "auth login", err)
}

// AddServicePrincipalProfile appends a client-credentials profile for sp.
func (b *Bridge) AddServicePrincipalProfile(_ context.Context, profile string, sp dbauth.ServicePrincipal) error {
	if sp.AccountID == "" || sp.ClientID == "" || sp.ClientSecret == "" {
		return auth.Incomplete("account ID, client ID and client secret are required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sections, err := readConfig(b.configFile)
	if err != nil {
		return auth.NewProviderError(auth.Databricks, "add profile", err)
	}
	for _, s := range sections {
		if strings.EqualFold(s.name, profile) {
			return auth.NewProviderError(auth.Databricks, "add profile", fmt.Errorf("%w: %s", ErrProfileExists, profile))
		}
	}

	err = appendSection(b.configFile, profile, [][2]string{
		{"host", b.accountsHost},
		{"account_id", sp.AccountID},
		{"client_id", sp.ClientID},
		{"client_secret", sp.ClientSecret},
	})
	if err != nil {
		return auth.NewProviderError(auth.Databricks, "add profile", err)
	}
	b.logger.Info("added databricks profile", "profile", profile, "file", b.configFile)
	return nil
}
