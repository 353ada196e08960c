package wizard

import (
	"context"
	"sync"

	"github.com/imamik/wsdeploy/internal/auth"
	azureauth "github.com/imamik/wsdeploy/internal/auth/azure"
	dbauth "github.com/imamik/wsdeploy/internal/auth/databricks"
	"github.com/imamik/wsdeploy/internal/handoff"
	"github.com/imamik/wsdeploy/internal/template"
	"github.com/imamik/wsdeploy/internal/util/prerequisites"
)

// fakeAWS is an in-memory AWS bridge.
type fakeAWS struct {
	mu          sync.Mutex
	profiles    []auth.Profile
	identity    *auth.Identity
	identityErr error
	check       auth.PermissionCheck
	checkErr    error
	checks      int
}

func (f *fakeAWS) ListProfiles(context.Context) ([]auth.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles, nil
}

func (f *fakeAWS) Identity(context.Context, string) (*auth.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, f.identityErr
}

func (f *fakeAWS) SSOLogin(context.Context, string) error { return nil }

func (f *fakeAWS) CheckPermissions(context.Context, auth.Credentials) (auth.PermissionCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	return f.check, f.checkErr
}

func (f *fakeAWS) permissionChecks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checks
}

// fakeAzure is an in-memory Azure bridge.
type fakeAzure struct {
	mu       sync.Mutex
	account  *azureauth.Account
	subs     []azureauth.Subscription
	groups   []azureauth.ResourceGroup
	check    auth.PermissionCheck
	checkErr error
}

func (f *fakeAzure) Account(context.Context) (*azureauth.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.account == nil {
		return nil, auth.ErrNotLoggedIn
	}
	return f.account, nil
}

func (f *fakeAzure) Subscriptions(context.Context) ([]azureauth.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs, nil
}

func (f *fakeAzure) ResourceGroups(context.Context, string) ([]azureauth.ResourceGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.groups, nil
}

func (f *fakeAzure) ResourceGroupsAsServicePrincipal(context.Context, auth.Credentials) ([]azureauth.ResourceGroup, error) {
	return f.ResourceGroups(context.Background(), "")
}

func (f *fakeAzure) Login(context.Context) error { return nil }

func (f *fakeAzure) CheckPermissions(context.Context, auth.Credentials) (auth.PermissionCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.check, f.checkErr
}

// fakeDatabricks is an in-memory Databricks bridge.
type fakeDatabricks struct {
	mu       sync.Mutex
	profiles []auth.Profile
}

func (f *fakeDatabricks) ListProfiles(context.Context) ([]auth.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles, nil
}

func (f *fakeDatabricks) OAuthLogin(context.Context, string, string) error { return nil }

func (f *fakeDatabricks) AddServicePrincipalProfile(_ context.Context, name string, sp dbauth.ServicePrincipal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles = append(f.profiles, auth.Profile{
		Name:                 name,
		Provider:             auth.Databricks,
		AccountID:            sp.AccountID,
		HasClientCredentials: true,
	})
	return nil
}

// fakePublisher records the published deployment.
type fakePublisher struct {
	mu     sync.Mutex
	got    *handoff.Deployment
	target string
	err    error
}

func (p *fakePublisher) Write(_ context.Context, d *handoff.Deployment, target string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.got = d
	p.target = target
	return []string{target + "/" + d.Workspace + "/deployment.yaml"}, nil
}

func (p *fakePublisher) deployment() *handoff.Deployment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.got
}

// toolsFound reports every tool as present.
func toolsFound(context.Context, template.Cloud) *prerequisites.CheckResults {
	return &prerequisites.CheckResults{}
}

// toolsMissing reports the Databricks CLI as missing.
func toolsMissing(context.Context, template.Cloud) *prerequisites.CheckResults {
	return &prerequisites.CheckResults{
		Missing: []prerequisites.Tool{{Name: "databricks", Required: true, InstallURL: "https://docs.databricks.com/dev-tools/cli/install.html"}},
	}
}

type fixture struct {
	aws        *fakeAWS
	azure      *fakeAzure
	databricks *fakeDatabricks
	publisher  *fakePublisher
}

func newFixture() *fixture {
	return &fixture{
		aws: &fakeAWS{
			profiles: []auth.Profile{{Name: "dev", Provider: auth.AWS, AccountID: "123456789012"}},
			identity: &auth.Identity{Provider: auth.AWS, Principal: "arn:aws:iam::123456789012:user/alice", AccountID: "123456789012"},
			check:    auth.PermissionCheck{HasAllPermissions: true, Checked: []string{"ec2:CreateVpc"}},
		},
		azure: &fakeAzure{
			account: &azureauth.Account{SubscriptionID: "sub-1", Name: "Dev", TenantID: "tenant-1", User: "alice@example.com"},
			subs: []azureauth.Subscription{
				{ID: "sub-1", Name: "Dev", TenantID: "tenant-1", IsDefault: true},
				{ID: "sub-2", Name: "Prod", TenantID: "tenant-2"},
			},
			groups: []azureauth.ResourceGroup{{Name: "rg-dev", Location: "westeurope"}},
			check:  auth.PermissionCheck{HasAllPermissions: true},
		},
		databricks: &fakeDatabricks{
			profiles: []auth.Profile{{Name: "acct", Provider: auth.Databricks, AccountID: "acc-1", HasToken: true}},
		},
		publisher: &fakePublisher{},
	}
}

func (f *fixture) machine(catalog *template.Catalog, opts ...Option) *Machine {
	opts = append([]Option{
		WithPrerequisites(toolsFound),
		WithPublisher(f.publisher, "out"),
	}, opts...)
	return New(catalog, Bridges{AWS: f.aws, Azure: f.azure, Databricks: f.databricks}, opts...)
}
