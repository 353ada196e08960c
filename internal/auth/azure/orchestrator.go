// Package azure orchestrates authentication against Azure: an `az` CLI
// session or a service principal, plus subscription and resource group
// selection.
package azure

import (
	"context"
	"sync"

	"github.com/imamik/wsdeploy/internal/auth"
)

// States.
const (
	StateAnonymous            auth.State = "anonymous"
	StateAuthenticated        auth.State = "authenticated"
	StateListingSubscriptions auth.State = "listing-subscriptions"
	StateResourceGroupsLoaded auth.State = "resource-groups-loaded"
)

// AuthMode selects how the deployment authenticates.
type AuthMode string

// Auth modes.
const (
	ModeCLI              AuthMode = "cli"
	ModeServicePrincipal AuthMode = "service_principal"
)

// Account is the signed-in `az` session.
type Account struct {
	SubscriptionID string `json:"id"`
	Name           string `json:"name"`
	TenantID       string `json:"tenantId"`
	User           string `json:"user"`
}

// Subscription is a subscription visible to the session.
type Subscription struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TenantID  string `json:"tenantId"`
	IsDefault bool   `json:"isDefault"`
}

// Bridge is the Azure tooling the orchestrator talks to.
type Bridge interface {
	Account(ctx context.Context) (*Account, error)
	Subscriptions(ctx context.Context) ([]Subscription, error)
	ResourceGroups(ctx context.Context, subscriptionID string) ([]ResourceGroup, error)
	ResourceGroupsAsServicePrincipal(ctx context.Context, creds auth.Credentials) ([]ResourceGroup, error)
	Login(ctx context.Context) error
	CheckPermissions(ctx context.Context, creds auth.Credentials) (auth.PermissionCheck, error)
}

// Orchestrator manages the Azure session, subscription and resource groups.
type Orchestrator struct {
	*auth.Base
	bridge Bridge
	set    auth.Setter
	cache  ResourceGroupCache

	permissions auth.PermissionCache

	mu            sync.Mutex
	mode          AuthMode
	account       *Account
	subscriptions []Subscription
	groups        []ResourceGroup
}

var _ auth.Orchestrator = (*Orchestrator)(nil)

// New creates an orchestrator writing credentials through set.
func New(bridge Bridge, set auth.Setter, opts ...auth.Option) *Orchestrator {
	return &Orchestrator{
		Base:   auth.NewBase(auth.Azure, StateAnonymous, opts...),
		bridge: bridge,
		set:    set,
		mode:   ModeCLI,
	}
}

// Mode returns the auth mode.
func (o *Orchestrator) Mode() AuthMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetMode switches the auth mode. Leaving service principal mode drops the client secret.
func (o *Orchestrator) SetMode(mode AuthMode) {
	o.mu.Lock()
	o.mode = mode
	o.permissions.Reset()
	o.mu.Unlock()

	o.set(auth.FieldAzureAuthMode, string(mode))
	if mode == ModeCLI {
		o.set(auth.FieldAzureClientID, "")
		o.set(auth.FieldAzureClientSecret, "")
	}
}

// LoadAccount resolves the signed-in session, nil when there is none.
func (o *Orchestrator) LoadAccount(ctx context.Context) *Account {
	acct, err := o.bridge.Account(ctx)
	if err != nil {
		o.Logger().V(1).Info("no azure session", "error", err.Error())
		acct = nil
	}

	o.mu.Lock()
	o.account = acct
	o.mu.Unlock()

	if acct == nil {
		o.SetState(StateAnonymous)
	} else {
		o.SetState(StateAuthenticated)
	}
	return acct
}

// Account returns the session of the last load.
func (o *Orchestrator) Account() *Account {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.account
}

// LoadSubscriptions lists the subscriptions of the session. A failure yields
// an empty list.
func (o *Orchestrator) LoadSubscriptions(ctx context.Context) []Subscription {
	prev := o.State()
	o.SetState(StateListingSubscriptions)

	subs, err := o.bridge.Subscriptions(ctx)
	if err != nil {
		o.Logger().V(1).Info("listing subscriptions failed", "error", err.Error())
		subs = []Subscription{}
	}

	o.mu.Lock()
	o.subscriptions = subs
	o.mu.Unlock()

	if prev == StateListingSubscriptions || prev == StateAnonymous {
		prev = StateAuthenticated
	}
	o.SetState(prev)
	return subs
}

// Subscriptions returns the subscriptions of the last load.
func (o *Orchestrator) Subscriptions() []Subscription {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.subscriptions
}

// LoadResourceGroups returns the resource groups of subscriptionID.
//
// A cached, non-empty result for the same subscription is returned without
// a query. Otherwise the groups are listed as the service principal in creds
// when service principal mode is active and both its client id and secret
// are present, else with the session. The result replaces the cache entry
// either way; a failed query stores an empty entry and returns nil.
func (o *Orchestrator) LoadResourceGroups(ctx context.Context, subscriptionID string, creds auth.Credentials) []ResourceGroup {
	if groups, ok := o.cache.Get(subscriptionID); ok {
		o.setGroups(groups)
		return groups
	}

	var (
		groups []ResourceGroup
		err    error
	)
	if o.Mode() == ModeServicePrincipal &&
		creds.Has(auth.FieldAzureClientID) && creds.Has(auth.FieldAzureClientSecret) {
		spCreds := creds.Clone()
		spCreds.Set(auth.FieldAzureSubscriptionID, subscriptionID)
		groups, err = o.bridge.ResourceGroupsAsServicePrincipal(ctx, spCreds)
	} else {
		groups, err = o.bridge.ResourceGroups(ctx, subscriptionID)
	}
	if err != nil {
		o.Logger().V(1).Info("listing resource groups failed", "subscription", subscriptionID, "error", err.Error())
		groups = nil
	}

	o.cache.Put(subscriptionID, groups)
	o.setGroups(groups)
	return groups
}

func (o *Orchestrator) setGroups(groups []ResourceGroup) {
	o.mu.Lock()
	o.groups = groups
	o.mu.Unlock()
	if len(groups) > 0 {
		o.SetState(StateResourceGroupsLoaded)
	}
}

// ResourceGroups returns the groups of the last load.
func (o *Orchestrator) ResourceGroups() []ResourceGroup {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.groups
}

// HandleLogin runs the interactive `az login`, which blocks until done, then
// loads the session and its subscriptions. The session's default
// subscription is selected.
func (o *Orchestrator) HandleLogin(ctx context.Context, creds auth.Credentials) error {
	o.ClearError()
	if err := o.bridge.Login(ctx); err != nil {
		o.FailErr(err)
		return err
	}

	acct := o.LoadAccount(ctx)
	if acct == nil {
		o.Fail("Azure login finished but no active session was found. Run 'az login' and retry.")
		return auth.ErrNotLoggedIn
	}
	subs := o.LoadSubscriptions(ctx)
	o.HandleSubscriptionChange(ctx, acct.SubscriptionID, subs, creds)
	return nil
}

// HandleSubscriptionChange selects subscription id from subs. It writes the
// subscription and its tenant to the credentials record and reloads the
// resource groups. It reports false when id is not in subs.
func (o *Orchestrator) HandleSubscriptionChange(ctx context.Context, id string, subs []Subscription, creds auth.Credentials) bool {
	var sub *Subscription
	for i := range subs {
		if subs[i].ID == id {
			sub = &subs[i]
			break
		}
	}
	if sub == nil {
		return false
	}

	o.set(auth.FieldAzureSubscriptionID, sub.ID)
	o.set(auth.FieldAzureTenantID, sub.TenantID)
	o.permissions.Reset()

	selected := creds.Clone()
	selected.Set(auth.FieldAzureSubscriptionID, sub.ID)
	selected.Set(auth.FieldAzureTenantID, sub.TenantID)
	o.LoadResourceGroups(ctx, sub.ID, selected)
	return true
}

// CheckPermissions probes the actions the deployment needs on the selected subscription.
func (o *Orchestrator) CheckPermissions(ctx context.Context, creds auth.Credentials) auth.PermissionCheck {
	res := o.Base.CheckPermissions(ctx, func(ctx context.Context) (auth.PermissionCheck, error) {
		return o.bridge.CheckPermissions(ctx, creds)
	})
	o.permissions.Store(auth.Azure, creds, res)
	return res
}

// Permissions returns the last permission check, nil before the first.
func (o *Orchestrator) Permissions() *auth.PermissionCheck {
	return o.permissions.Last()
}

// PermissionsFor returns the last check when it passed for the same
// credentials, nil when creds must be checked again.
func (o *Orchestrator) PermissionsFor(creds auth.Credentials) *auth.PermissionCheck {
	return o.permissions.Reusable(auth.Azure, creds)
}

// Ready reports whether creds are complete for the current mode.
func (o *Orchestrator) Ready(creds auth.Credentials) error {
	o.mu.Lock()
	mode, acct := o.mode, o.account
	o.mu.Unlock()

	if mode == ModeServicePrincipal {
		if !creds.Has(auth.FieldAzureClientID) || !creds.Has(auth.FieldAzureClientSecret) {
			return auth.Incomplete("service principal client ID and secret are required")
		}
		if !creds.Has(auth.FieldAzureTenantID) {
			return auth.Incomplete("tenant ID is required")
		}
	} else if acct == nil {
		return auth.Incomplete("sign in with 'az login'")
	}
	if !creds.Has(auth.FieldAzureSubscriptionID) {
		return auth.Incomplete("select a subscription")
	}
	return nil
}
