// Package databricks orchestrates authentication against the Databricks
// account console: an existing CLI profile, an OAuth login that creates
// one, or service principal client credentials.
package databricks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/util/naming"
)

// States.
const (
	StateCredentialsMode auth.State = "credentials-mode"
	StateProfileMode     auth.State = "profile-mode"
	StateOAuthPending    auth.State = "oauth-pending"
	StateProfileAdded    auth.State = "profile-added"
)

// AuthMode selects how the deployment authenticates.
type AuthMode string

// Auth modes.
const (
	ModeCredentials AuthMode = "credentials"
	ModeProfile     AuthMode = "profile"
)

// OAuthTimeoutMessage is reported when an OAuth login does not complete in time.
const OAuthTimeoutMessage = "Databricks login timed out. Finish the login in your browser, then try again."

// ServicePrincipal holds the client credentials of an account service principal.
type ServicePrincipal struct {
	AccountID    string
	ClientID     string
	ClientSecret string
}

// Bridge is the Databricks tooling the orchestrator talks to.
type Bridge interface {
	ListProfiles(ctx context.Context) ([]auth.Profile, error)
	OAuthLogin(ctx context.Context, accountID, profile string) error
	AddServicePrincipalProfile(ctx context.Context, profile string, sp ServicePrincipal) error
}

// Orchestrator manages Databricks account credentials.
type Orchestrator struct {
	*auth.Base
	bridge Bridge
	set    auth.Setter

	mu           sync.Mutex
	profiles     []auth.Profile
	mode         AuthMode
	selected     string
	loginFormOn  bool
	addProfileOn bool
}

var _ auth.Orchestrator = (*Orchestrator)(nil)

// New creates an orchestrator writing credentials through set.
func New(bridge Bridge, set auth.Setter, opts ...auth.Option) *Orchestrator {
	return &Orchestrator{
		Base:   auth.NewBase(auth.Databricks, StateCredentialsMode, opts...),
		bridge: bridge,
		set:    set,
		mode:   ModeCredentials,
	}
}

// LoadProfiles lists the account profiles. A failure yields an empty list.
func (o *Orchestrator) LoadProfiles(ctx context.Context) []auth.Profile {
	profiles, err := o.bridge.ListProfiles(ctx)
	if err != nil {
		o.Logger().V(1).Info("listing profiles failed", "error", err.Error())
		profiles = []auth.Profile{}
	}
	o.mu.Lock()
	o.profiles = profiles
	o.mu.Unlock()
	return profiles
}

// Profiles returns the profiles of the last load.
func (o *Orchestrator) Profiles() []auth.Profile {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profiles
}

// Mode returns the auth mode.
func (o *Orchestrator) Mode() AuthMode {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mode
}

// SetMode switches the auth mode and drops the fields of the other mode.
func (o *Orchestrator) SetMode(mode AuthMode) {
	o.mu.Lock()
	o.mode = mode
	if mode == ModeCredentials {
		o.selected = ""
	}
	o.mu.Unlock()

	o.set(auth.FieldDatabricksAuthMode, string(mode))
	switch mode {
	case ModeCredentials:
		o.set(auth.FieldDatabricksProfile, "")
		o.SetState(StateCredentialsMode)
	case ModeProfile:
		o.set(auth.FieldDatabricksClientID, "")
		o.set(auth.FieldDatabricksClientSecret, "")
		o.SetState(StateProfileMode)
	}
}

// Selected returns the selected profile name.
func (o *Orchestrator) Selected() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selected
}

// HandleProfileChange selects an existing profile: its account id is copied
// and the mode becomes profile based. It reports false for an unknown name.
func (o *Orchestrator) HandleProfileChange(name string) bool {
	o.mu.Lock()
	p, ok := auth.FindProfile(o.profiles, name)
	o.mu.Unlock()
	if !ok {
		return false
	}
	o.selectProfile(p)
	return true
}

func (o *Orchestrator) selectProfile(p auth.Profile) {
	o.SetMode(ModeProfile)
	o.mu.Lock()
	o.selected = p.Name
	o.mu.Unlock()

	o.set(auth.FieldDatabricksProfile, p.Name)
	if p.AccountID != "" {
		o.set(auth.FieldDatabricksAccountID, p.AccountID)
	}
}

// OpenLoginForm shows the OAuth login form.
func (o *Orchestrator) OpenLoginForm() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loginFormOn = true
}

// LoginFormOpen reports whether the OAuth login form is shown.
func (o *Orchestrator) LoginFormOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.loginFormOn
}

// OpenAddProfileForm shows the add-service-principal form.
func (o *Orchestrator) OpenAddProfileForm() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.addProfileOn = true
}

// AddProfileFormOpen reports whether the add-service-principal form is shown.
func (o *Orchestrator) AddProfileFormOpen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.addProfileOn
}

// HandleOAuthLogin starts `databricks auth login` for accountID and polls
// for a newly authenticated profile of that account. A profile counts only
// if it was absent, or present without auth, before the login started. The
// profile the login writes to also counts when its auth material was
// rewritten after the login started, so that an expired login can be renewed.
//
// On success the profile is selected, the login form is closed and
// onSuccess runs. See [auth.Base.PollLogin] for the channel.
func (o *Orchestrator) HandleOAuthLogin(ctx context.Context, accountID string, onSuccess func(auth.Profile)) <-chan error {
	target := naming.OAuthProfile(accountID)
	// File times may have second granularity.
	started := time.Now().Truncate(time.Second)

	before := make(map[string]auth.Profile)
	profiles, err := o.bridge.ListProfiles(ctx)
	if err != nil {
		o.Logger().V(1).Info("listing profiles before login failed", "error", err.Error())
	}
	for _, p := range profiles {
		before[p.Name] = p
	}

	fresh := func(p auth.Profile) bool {
		if p.AccountID != accountID || !p.Authenticated() {
			return false
		}
		prev, seen := before[p.Name]
		if !seen || !prev.Authenticated() {
			return true
		}
		return p.Name == target && renewed(prev, p, started)
	}

	var found auth.Profile
	return o.PollLogin(ctx, auth.Login{
		Flow:    "databricks-oauth",
		Pending: StateOAuthPending,
		Trigger: func(ctx context.Context) error {
			return o.bridge.OAuthLogin(ctx, accountID, target)
		},
		Check: func(ctx context.Context) (bool, error) {
			current, err := o.bridge.ListProfiles(ctx)
			if err != nil {
				return false, err
			}
			for _, p := range current {
				if !fresh(p) {
					continue
				}
				found = p
				o.mu.Lock()
				o.profiles = current
				o.mu.Unlock()
				return true, nil
			}
			return false, nil
		},
		OnSuccess: func() {
			o.selectProfile(found)
			o.mu.Lock()
			o.loginFormOn = false
			o.mu.Unlock()
			if onSuccess != nil {
				onSuccess(found)
			}
		},
		TimeoutMessage: OAuthTimeoutMessage,
	})
}

// renewed reports whether cur was written after the login started and after
// the snapshot prev was taken.
func renewed(prev, cur auth.Profile, started time.Time) bool {
	if cur.UpdatedAt.IsZero() || cur.UpdatedAt.Before(started) {
		return false
	}
	return cur.UpdatedAt.After(prev.UpdatedAt)
}

// HandleAddSPProfile writes a service principal profile, reloads the
// profiles and selects the new one. The add form is reset on success.
func (o *Orchestrator) HandleAddSPProfile(ctx context.Context, name string, sp ServicePrincipal) error {
	o.ClearError()
	if name == "" {
		err := auth.Incomplete("profile name is required")
		o.FailErr(err)
		return err
	}
	if err := o.bridge.AddServicePrincipalProfile(ctx, name, sp); err != nil {
		o.FailErr(err)
		return err
	}

	profiles := o.LoadProfiles(ctx)
	p, ok := auth.FindProfile(profiles, name)
	if !ok {
		err := fmt.Errorf("profile %q not found after adding it", name)
		o.FailErr(err)
		return err
	}
	o.selectProfile(p)
	o.mu.Lock()
	o.addProfileOn = false
	o.mu.Unlock()
	o.SetState(StateProfileAdded)
	return nil
}

// Ready reports whether creds are complete for the current mode.
func (o *Orchestrator) Ready(creds auth.Credentials) error {
	if !creds.Has(auth.FieldDatabricksAccountID) {
		return auth.Incomplete("Databricks account ID is required")
	}
	if o.Mode() == ModeProfile {
		if !creds.Has(auth.FieldDatabricksProfile) {
			return auth.Incomplete("select a Databricks profile")
		}
		return nil
	}
	if !creds.Has(auth.FieldDatabricksClientID) || !creds.Has(auth.FieldDatabricksClientSecret) {
		return auth.Incomplete("service principal client ID and secret are required")
	}
	return nil
}
