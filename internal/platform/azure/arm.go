package azure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/imamik/wsdeploy/internal/auth"
	azauth "github.com/imamik/wsdeploy/internal/auth/azure"
	"github.com/imamik/wsdeploy/internal/metrics"
)

// maxPages bounds nextLink traversal.
const maxPages = 50

// ARMError is a non-2xx Resource Manager response.
type ARMError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ARMError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("resource manager returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("resource manager returned HTTP %d: %s: %s", e.StatusCode, e.Code, e.Message)
}

// ResourceGroupsAsServicePrincipal lists the groups of the subscription in
// creds, authenticating as the service principal in creds.
func (b *Bridge) ResourceGroupsAsServicePrincipal(ctx context.Context, creds auth.Credentials) ([]azauth.ResourceGroup, error) {
	client, err := b.servicePrincipalClient(ctx, creds)
	if err != nil {
		return nil, auth.NewProviderError(auth.Azure, "service principal token", err)
	}
	groups, err := b.listResourceGroups(ctx, client, creds.Get(auth.FieldAzureSubscriptionID))
	if err != nil {
		return nil, auth.NewProviderError(auth.Azure, "list resource groups", err)
	}
	return groups, nil
}

// armClient returns an ARM client for creds: the service principal when
// its secret is present, the CLI session otherwise.
func (b *Bridge) armClient(ctx context.Context, creds auth.Credentials) (*http.Client, error) {
	if creds.Has(auth.FieldAzureClientID) && creds.Has(auth.FieldAzureClientSecret) {
		return b.servicePrincipalClient(ctx, creds)
	}
	return b.sessionClient(ctx)
}

func (b *Bridge) servicePrincipalClient(ctx context.Context, creds auth.Credentials) (*http.Client, error) {
	tenant := creds.Get(auth.FieldAzureTenantID)
	if tenant == "" {
		return nil, auth.Incomplete("tenant ID is required for service principal authentication")
	}
	cfg := clientcredentials.Config{
		ClientID:     creds.Get(auth.FieldAzureClientID),
		ClientSecret: creds.Get(auth.FieldAzureClientSecret),
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimSuffix(b.authorityHost, "/"), url.PathEscape(tenant)),
		Scopes:       []string{b.managementScope()},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	ts := cfg.TokenSource(ctx)
	// Fetch eagerly so that bad secrets surface as token errors.
	if _, err := ts.Token(); err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

type cliToken struct {
	AccessToken string `json:"accessToken"`
	ExpiresOn   int64  `json:"expires_on"`
}

func (b *Bridge) sessionClient(ctx context.Context) (*http.Client, error) {
	var tok cliToken
	out, err := b.runner.Run(ctx, "az", "account", "get-access-token",
		"--resource", b.managementEndpoint+"/", "--output", "json")
	if err != nil {
		return nil, auth.NewProviderError(auth.Azure, "get access token", err)
	}
	if err := json.Unmarshal(out, &tok); err != nil {
		return nil, fmt.Errorf("decode az access token: %w", err)
	}
	t := &oauth2.Token{AccessToken: tok.AccessToken, TokenType: "Bearer"}
	if tok.ExpiresOn > 0 {
		t.Expiry = time.Unix(tok.ExpiresOn, 0)
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(t)), nil
}

func (b *Bridge) managementScope() string {
	return strings.TrimSuffix(b.managementEndpoint, "/") + "/.default"
}

type resourceGroupPage struct {
	Value    []azauth.ResourceGroup `json:"value"`
	NextLink string                 `json:"nextLink"`
}

func (b *Bridge) listResourceGroups(ctx context.Context, client *http.Client, subscriptionID string) ([]azauth.ResourceGroup, error) {
	if subscriptionID == "" {
		return nil, auth.Incomplete("subscription ID is required")
	}
	next := fmt.Sprintf("%s/subscriptions/%s/resourcegroups?api-version=%s",
		strings.TrimSuffix(b.managementEndpoint, "/"), url.PathEscape(subscriptionID), resourceGroupsAPIVersion)

	groups := []azauth.ResourceGroup{}
	for page := 0; next != "" && page < maxPages; page++ {
		var p resourceGroupPage
		if err := b.getJSON(ctx, client, "resourcegroups", next, &p); err != nil {
			return nil, err
		}
		groups = append(groups, p.Value...)
		next = p.NextLink
	}
	return groups, nil
}

// getJSON issues a GET against Resource Manager and decodes the body into v.
func (b *Bridge) getJSON(ctx context.Context, client *http.Client, operation, rawURL string, v any) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordBridgeCall(string(auth.Azure), "arm "+operation, err, time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		armErr := &ARMError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &envelope) == nil {
			armErr.Code = envelope.Error.Code
			armErr.Message = envelope.Error.Message
		}
		return armErr
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}
