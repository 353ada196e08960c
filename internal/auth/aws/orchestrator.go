// Package aws orchestrates authentication against AWS: CLI profiles with
// optional IAM Identity Center (SSO) login, or static access keys.
package aws

import (
	"context"
	"sync"

	"github.com/imamik/wsdeploy/internal/auth"
)

// States.
const (
	StateNoProfiles        auth.State = "no-profiles"
	StateProfileSelected   auth.State = "profile-selected"
	StateVerifyingIdentity auth.State = "verifying-identity"
	StateIdentityConfirmed auth.State = "identity-confirmed"
	StateSSOPending        auth.State = "sso-pending"
	StateSSOConfirmed      auth.State = "sso-confirmed"
)

// AuthMode selects how credentials are provided.
type AuthMode string

// Auth modes.
const (
	ModeProfile AuthMode = "profile"
	ModeKeys    AuthMode = "keys"
)

// SSOTimeoutMessage is reported when an SSO login does not complete in time.
const SSOTimeoutMessage = "SSO login timed out. Complete the login in your browser, then try again."

// Bridge is the AWS tooling the orchestrator talks to.
type Bridge interface {
	ListProfiles(ctx context.Context) ([]auth.Profile, error)
	Identity(ctx context.Context, profile string) (*auth.Identity, error)
	SSOLogin(ctx context.Context, profile string) error
	CheckPermissions(ctx context.Context, creds auth.Credentials) (auth.PermissionCheck, error)
}

// Orchestrator manages AWS credential selection.
type Orchestrator struct {
	*auth.Base
	bridge Bridge
	set    auth.Setter

	permissions auth.PermissionCache

	mu       sync.Mutex
	profiles []auth.Profile
	mode     AuthMode
	profile  string
	identity *auth.Identity
}

var _ auth.Orchestrator = (*Orchestrator)(nil)

// New creates an orchestrator writing credentials through set.
func New(bridge Bridge, set auth.Setter, opts ...auth.Option) *Orchestrator {
	return &Orchestrator{
		Base:   auth.NewBase(auth.AWS, StateNoProfiles, opts...),
		bridge: bridge,
		set:    set,
		mode:   ModeProfile,
	}
}

// LoadProfiles queries the configured profiles. With none, or when the
// query fails, profile mode is unusable and the mode is forced to keys.
func (o *Orchestrator) LoadProfiles(ctx context.Context) []auth.Profile {
	profiles, err := o.bridge.ListProfiles(ctx)
	if err != nil {
		o.Logger().V(1).Info("listing profiles failed", "error", err.Error())
	}

	o.mu.Lock()
	if err != nil || len(profiles) == 0 {
		o.profiles = nil
		o.mu.Unlock()
		o.SetMode(ModeKeys)
		o.SetState(StateNoProfiles)
		return nil
	}
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

// SetMode switches the auth mode and drops the credentials of the other mode.
func (o *Orchestrator) SetMode(mode AuthMode) {
	o.mu.Lock()
	o.mode = mode
	o.permissions.Reset()
	o.mu.Unlock()

	o.set(auth.FieldAWSAuthMode, string(mode))
	switch mode {
	case ModeKeys:
		o.set(auth.FieldAWSProfile, "")
	case ModeProfile:
		o.set(auth.FieldAWSAccessKeyID, "")
		o.set(auth.FieldAWSSecretAccessKey, "")
		o.set(auth.FieldAWSSessionToken, "")
	}
}

// SelectProfile records name as the chosen profile. The identity must be
// checked again.
func (o *Orchestrator) SelectProfile(name string) {
	o.mu.Lock()
	o.profile = name
	o.identity = nil
	o.permissions.Reset()
	o.mu.Unlock()

	o.set(auth.FieldAWSProfile, name)
	o.set(auth.FieldAWSAccountID, "")
	o.ClearError()
	o.SetState(StateProfileSelected)
}

// Profile returns the selected profile name.
func (o *Orchestrator) Profile() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.profile
}

// Identity returns the confirmed identity, nil until one is confirmed.
func (o *Orchestrator) Identity() *auth.Identity {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.identity
}

// CheckIdentity resolves profile to an identity. On failure the error
// string is set and the identity stays unset.
func (o *Orchestrator) CheckIdentity(ctx context.Context, profile string) *auth.Identity {
	o.ClearError()
	o.SetState(StateVerifyingIdentity)

	id, err := o.bridge.Identity(ctx, profile)
	if err != nil {
		o.mu.Lock()
		o.identity = nil
		o.mu.Unlock()
		o.FailErr(err)
		return nil
	}
	o.confirm(profile, id)
	o.SetState(StateIdentityConfirmed)
	return id
}

func (o *Orchestrator) confirm(profile string, id *auth.Identity) {
	o.mu.Lock()
	o.profile = profile
	o.identity = id
	o.mu.Unlock()

	o.set(auth.FieldAWSProfile, profile)
	o.set(auth.FieldAWSAccountID, id.AccountID)
}

// HandleSSOLogin starts `aws sso login` for profile and polls until the
// profile resolves to an identity. See [auth.Base.PollLogin] for the channel.
func (o *Orchestrator) HandleSSOLogin(ctx context.Context, profile string) <-chan error {
	var id *auth.Identity
	return o.PollLogin(ctx, auth.Login{
		Flow:    "aws-sso",
		Pending: StateSSOPending,
		Trigger: func(ctx context.Context) error {
			return o.bridge.SSOLogin(ctx, profile)
		},
		Check: func(ctx context.Context) (bool, error) {
			got, err := o.bridge.Identity(ctx, profile)
			if err != nil {
				return false, err
			}
			id = got
			return true, nil
		},
		OnSuccess: func() {
			o.confirm(profile, id)
			o.SetState(StateSSOConfirmed)
		},
		TimeoutMessage: SSOTimeoutMessage,
	})
}

// CheckPermissions probes the actions the deployment needs.
func (o *Orchestrator) CheckPermissions(ctx context.Context, creds auth.Credentials) auth.PermissionCheck {
	res := o.Base.CheckPermissions(ctx, func(ctx context.Context) (auth.PermissionCheck, error) {
		return o.bridge.CheckPermissions(ctx, creds)
	})
	o.permissions.Store(auth.AWS, creds, res)
	return res
}

// Permissions returns the last permission check, nil before the first.
func (o *Orchestrator) Permissions() *auth.PermissionCheck {
	return o.permissions.Last()
}

// PermissionsFor returns the last check when it passed for the same
// credentials, nil when creds must be checked again.
func (o *Orchestrator) PermissionsFor(creds auth.Credentials) *auth.PermissionCheck {
	return o.permissions.Reusable(auth.AWS, creds)
}

// Ready reports whether creds are complete for the current mode.
func (o *Orchestrator) Ready(creds auth.Credentials) error {
	o.mu.Lock()
	mode, identity, profile := o.mode, o.identity, o.profile
	o.mu.Unlock()

	switch mode {
	case ModeKeys:
		if !creds.Has(auth.FieldAWSAccessKeyID) || !creds.Has(auth.FieldAWSSecretAccessKey) {
			return auth.Incomplete("access key ID and secret access key are required")
		}
	default:
		if !creds.Has(auth.FieldAWSProfile) {
			return auth.Incomplete("select an AWS profile")
		}
		if identity == nil || profile != creds.Get(auth.FieldAWSProfile) {
			return auth.Incomplete("verify the identity of profile %q", creds.Get(auth.FieldAWSProfile))
		}
	}
	return nil
}
