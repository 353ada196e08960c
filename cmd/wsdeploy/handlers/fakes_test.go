package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/go-logr/logr"

	"github.com/imamik/wsdeploy/internal/auth"
	azureauth "github.com/imamik/wsdeploy/internal/auth/azure"
	dbauth "github.com/imamik/wsdeploy/internal/auth/databricks"
	"github.com/imamik/wsdeploy/internal/config"
	"github.com/imamik/wsdeploy/internal/wizard"
)

type fakeAWS struct {
	profiles []auth.Profile
	err      error
}

func (f *fakeAWS) ListProfiles(context.Context) ([]auth.Profile, error) { return f.profiles, f.err }

func (f *fakeAWS) Identity(_ context.Context, profile string) (*auth.Identity, error) {
	for _, p := range f.profiles {
		if p.Name == profile {
			return &auth.Identity{Provider: auth.AWS, Principal: "arn:aws:iam::" + p.AccountID + ":user/alice", AccountID: p.AccountID}, nil
		}
	}
	return nil, errors.New("profile not found")
}

func (f *fakeAWS) SSOLogin(context.Context, string) error { return nil }

func (f *fakeAWS) CheckPermissions(context.Context, auth.Credentials) (auth.PermissionCheck, error) {
	return auth.PermissionCheck{HasAllPermissions: true}, nil
}

type fakeAzure struct {
	account *azureauth.Account
	subs    []azureauth.Subscription
}

func (f *fakeAzure) Account(context.Context) (*azureauth.Account, error) {
	if f.account == nil {
		return nil, auth.ErrNotLoggedIn
	}
	return f.account, nil
}

func (f *fakeAzure) Subscriptions(context.Context) ([]azureauth.Subscription, error) { return f.subs, nil }

func (f *fakeAzure) ResourceGroups(context.Context, string) ([]azureauth.ResourceGroup, error) {
	return []azureauth.ResourceGroup{{Name: "rg-dev", Location: "westeurope"}}, nil
}

func (f *fakeAzure) ResourceGroupsAsServicePrincipal(ctx context.Context, _ auth.Credentials) ([]azureauth.ResourceGroup, error) {
	return f.ResourceGroups(ctx, "")
}

func (f *fakeAzure) Login(context.Context) error { return nil }

func (f *fakeAzure) CheckPermissions(context.Context, auth.Credentials) (auth.PermissionCheck, error) {
	return auth.PermissionCheck{HasAllPermissions: true}, nil
}

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
	f.profiles = append(f.profiles, auth.Profile{Name: name, Provider: auth.Databricks, AccountID: sp.AccountID, HasClientCredentials: true})
	return nil
}

func fakeBridges() wizard.Bridges {
	return wizard.Bridges{
		AWS: &fakeAWS{profiles: []auth.Profile{
			{Name: "dev", Provider: auth.AWS, AccountID: "123456789012", Region: "eu-west-1"},
			{Name: "prod-sso", Provider: auth.AWS, AccountID: "210987654321", SSO: true},
		}},
		Azure: &fakeAzure{
			account: &azureauth.Account{SubscriptionID: "sub-1", Name: "Dev", TenantID: "tenant-1", User: "alice@example.com"},
			subs:    []azureauth.Subscription{{ID: "sub-1", Name: "Dev", TenantID: "tenant-1", IsDefault: true}},
		},
		Databricks: &fakeDatabricks{profiles: []auth.Profile{
			{Name: "acct", Provider: auth.Databricks, AccountID: "acc-1", HasToken: true},
		}},
	}
}

// saveAndRestoreFactories restores every factory variable after the test.
func saveAndRestoreFactories(t *testing.T) {
	origLogOutput := logOutput
	origLoadSettings := loadSettings
	origLoadCatalog := loadCatalog
	origNewBridges := newBridges
	origWriteMetrics := writeMetrics
	origIsInteractive := isInteractive
	origNewMachine := newMachine
	origRunScreen := runScreen
	origRunWait := runWait
	origReadFile := readFile
	origCheckTools := checkTools

	t.Cleanup(func() {
		logOutput = origLogOutput
		loadSettings = origLoadSettings
		loadCatalog = origLoadCatalog
		newBridges = origNewBridges
		writeMetrics = origWriteMetrics
		isInteractive = origIsInteractive
		newMachine = origNewMachine
		runScreen = origRunScreen
		runWait = origRunWait
		readFile = origReadFile
		checkTools = origCheckTools
	})

	logOutput = io.Discard
	loadSettings = func(string) (*config.Config, error) { return config.Default(), nil }
	newBridges = func(*config.Config, logr.Logger) wizard.Bridges { return fakeBridges() }
}

// captureOutput captures stdout during function execution.
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		done <- buf.String()
	}()

	f()

	w.Close()
	os.Stdout = old
	return <-done
}
