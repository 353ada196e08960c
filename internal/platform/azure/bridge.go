package azure

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/imamik/wsdeploy/internal/auth"
	azauth "github.com/imamik/wsdeploy/internal/auth/azure"
	"github.com/imamik/wsdeploy/internal/platform/exec"
)

const (
	// DefaultManagementEndpoint is the public-cloud Resource Manager endpoint.
	DefaultManagementEndpoint = "https://management.azure.com"
	// DefaultAuthorityHost is the public-cloud Entra ID authority.
	DefaultAuthorityHost = "https://login.microsoftonline.com"

	resourceGroupsAPIVersion = "2021-04-01"
	permissionsAPIVersion    = "2022-04-01"
)

// Bridge talks to the az CLI and Azure Resource Manager.
type Bridge struct {
	runner     exec.Runner
	logger     logr.Logger
	httpClient *http.Client

	managementEndpoint string
	authorityHost      string
	requiredActions    []string
}

var _ azauth.Bridge = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithHTTPClient replaces the HTTP client used for token and ARM requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bridge) {
		b.httpClient = c
	}
}

// WithEndpoints overrides the Resource Manager and authority endpoints.
func WithEndpoints(management, authority string) Option {
	return func(b *Bridge) {
		if management != "" {
			b.managementEndpoint = management
		}
		if authority != "" {
			b.authorityHost = authority
		}
	}
}

// WithRequiredActions replaces the actions probed by CheckPermissions.
func WithRequiredActions(actions ...string) Option {
	return func(b *Bridge) {
		b.requiredActions = actions
	}
}

// NewBridge creates a Bridge running CLI commands through runner.
func NewBridge(runner exec.Runner, opts ...Option) *Bridge {
	b := &Bridge{
		runner:             runner,
		logger:             logr.Discard(),
		httpClient:         newHTTPClient(),
		managementEndpoint: DefaultManagementEndpoint,
		authorityHost:      DefaultAuthorityHost,
		requiredActions:    RequiredActions,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// newHTTPClient retries 429 and 5xx responses and honors Retry-After.
func newHTTPClient() *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.Logger = nil
	c := rc.StandardClient()
	c.Timeout = 30 * time.Second
	return c
}

type cliAccount struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TenantID string `json:"tenantId"`
	User     struct {
		Name string `json:"name"`
	} `json:"user"`
	IsDefault bool `json:"isDefault"`
}

// Account returns the active `az` session.
func (b *Bridge) Account(ctx context.Context) (*azauth.Account, error) {
	var acct cliAccount
	if err := exec.RunJSON(ctx, b.runner, &acct, "az", "account", "show", "--output", "json"); err != nil {
		return nil, auth.NewProviderError(auth.Azure, "account show", errors.Join(auth.ErrNotLoggedIn, err))
	}
	return &azauth.Account{
		SubscriptionID: acct.ID,
		Name:           acct.Name,
		TenantID:       acct.TenantID,
		User:           acct.User.Name,
	}, nil
}

// Subscriptions lists the subscriptions of the session.
func (b *Bridge) Subscriptions(ctx context.Context) ([]azauth.Subscription, error) {
	var accts []cliAccount
	if err := exec.RunJSON(ctx, b.runner, &accts, "az", "account", "list", "--output", "json"); err != nil {
		return nil, auth.NewProviderError(auth.Azure, "account list", err)
	}
	subs := make([]azauth.Subscription, 0, len(accts))
	for _, a := range accts {
		subs = append(subs, azauth.Subscription{
			ID:        a.ID,
			Name:      a.Name,
			TenantID:  a.TenantID,
			IsDefault: a.IsDefault,
		})
	}
	return subs, nil
}

// ResourceGroups lists the groups of subscriptionID with the session.
func (b *Bridge) ResourceGroups(ctx context.Context, subscriptionID string) ([]azauth.ResourceGroup, error) {
	var groups []azauth.ResourceGroup
	err := exec.RunJSON(ctx, b.runner, &groups, "az", "group", "list",
		"--subscription", subscriptionID, "--output", "json")
	if err != nil {
		return nil, auth.NewProviderError(auth.Azure, "group list", err)
	}
	return groups, nil
}

// Login runs the interactive `az login` and waits for it.
func (b *Bridge) Login(ctx context.Context) error {
	if _, err := b.runner.Run(ctx, "az", "login", "--output", "none"); err != nil {
		return auth.NewProviderError(auth.Azure, "login", err)
	}
	return nil
}
