package databricks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/wsdeploy/internal/auth"
	"github.com/imamik/wsdeploy/internal/util/poll"
)

type mockBridge struct {
	mock.Mock
}

func (m *mockBridge) ListProfiles(ctx context.Context) ([]auth.Profile, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]auth.Profile), args.Error(1)
}

func (m *mockBridge) OAuthLogin(ctx context.Context, accountID, profile string) error {
	return m.Called(ctx, accountID, profile).Error(0)
}

func (m *mockBridge) AddServicePrincipalProfile(ctx context.Context, profile string, sp ServicePrincipal) error {
	return m.Called(ctx, profile, sp).Error(0)
}

type credStore struct {
	mu    sync.Mutex
	creds auth.Credentials
}

func (s *credStore) set(f auth.Field, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds.Set(f, v)
}

func (s *credStore) snapshot() auth.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Clone()
}

func newTestOrchestrator(attempts int) (*Orchestrator, *mockBridge, *credStore) {
	b := &mockBridge{}
	store := &credStore{creds: auth.Credentials{}}
	o := New(b, store.set, auth.WithPollOptions(poll.WithInterval(2*time.Millisecond), poll.WithMaxAttempts(attempts)))
	return o, b, store
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("login did not finish")
		return nil
	}
}

const accountID = "0d26daa6-5e44-4c97-a497-ef015f91254a"

var (
	staleProfile = auth.Profile{Name: "old", Provider: auth.Databricks, AccountID: accountID, HasToken: true}
	freshProfile = auth.Profile{Name: "wsdeploy-0d26daa6", Provider: auth.Databricks, AccountID: accountID, HasToken: true}
	otherAccount = auth.Profile{Name: "other", Provider: auth.Databricks, AccountID: "another", HasToken: true}
)

func TestHandleProfileChange(t *testing.T) {
	t.Parallel()
	o, b, store := newTestOrchestrator(5)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile, otherAccount}, nil)
	o.LoadProfiles(context.Background())

	assert.False(t, o.HandleProfileChange("missing"))
	require.True(t, o.HandleProfileChange("old"))

	creds := store.snapshot()
	assert.Equal(t, accountID, creds.Get(auth.FieldDatabricksAccountID))
	assert.Equal(t, "old", creds.Get(auth.FieldDatabricksProfile))
	assert.Equal(t, "profile", creds.Get(auth.FieldDatabricksAuthMode))
	assert.Equal(t, ModeProfile, o.Mode())
	assert.Equal(t, StateProfileMode, o.State())
	assert.NoError(t, o.Ready(creds))
}

func TestLoadProfiles_FailureYieldsEmpty(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(5)
	b.On("ListProfiles", mock.Anything).Return(nil, errors.New("permission denied"))

	got := o.LoadProfiles(context.Background())
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestHandleOAuthLogin_DetectsNewProfile(t *testing.T) {
	t.Parallel()
	o, b, store := newTestOrchestrator(10)
	o.OpenLoginForm()

	// snapshot, then two polls without the new profile, then it appears
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile, otherAccount}, nil).Times(3)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile, otherAccount, freshProfile}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, "wsdeploy-0d26daa6").Return(nil)

	var got auth.Profile
	done := o.HandleOAuthLogin(context.Background(), accountID, func(p auth.Profile) { got = p })
	require.NoError(t, wait(t, done))

	assert.Equal(t, freshProfile, got)
	assert.Equal(t, "wsdeploy-0d26daa6", o.Selected())
	assert.Equal(t, ModeProfile, o.Mode())
	assert.False(t, o.LoginFormOpen())
	assert.Equal(t, "wsdeploy-0d26daa6", store.snapshot().Get(auth.FieldDatabricksProfile))
}

func TestHandleOAuthLogin_IgnoresPreexistingAuthenticatedProfile(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(5)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, mock.Anything).Return(nil)

	called := false
	err := wait(t, o.HandleOAuthLogin(context.Background(), accountID, func(auth.Profile) { called = true }))

	require.Error(t, err)
	assert.ErrorIs(t, err, poll.ErrTimeout)
	assert.False(t, called)
	assert.Equal(t, OAuthTimeoutMessage, o.Err())
}

func TestHandleOAuthLogin_RenewsExistingLoginProfile(t *testing.T) {
	t.Parallel()
	o, b, store := newTestOrchestrator(10)

	expired := freshProfile
	expired.UpdatedAt = time.Now().Add(-24 * time.Hour)
	renewedProfile := freshProfile
	renewedProfile.UpdatedAt = time.Now().Add(time.Second)

	// snapshot and one poll see the old login, then the CLI rewrites it
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile, expired}, nil).Times(2)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile, renewedProfile}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, "wsdeploy-0d26daa6").Return(nil)

	require.NoError(t, wait(t, o.HandleOAuthLogin(context.Background(), accountID, nil)))
	assert.Equal(t, "wsdeploy-0d26daa6", o.Selected())
	assert.Equal(t, "wsdeploy-0d26daa6", store.snapshot().Get(auth.FieldDatabricksProfile))
	assert.Empty(t, o.Err())
}

func TestHandleOAuthLogin_UnchangedLoginProfileTimesOut(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(5)

	existing := freshProfile
	existing.UpdatedAt = time.Now().Add(-time.Hour)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{existing}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, mock.Anything).Return(nil)

	err := wait(t, o.HandleOAuthLogin(context.Background(), accountID, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, poll.ErrTimeout)
	assert.Empty(t, o.Selected())
}

func TestHandleOAuthLogin_OtherRewrittenProfileIgnored(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(5)

	old := staleProfile
	old.UpdatedAt = time.Now().Add(-time.Hour)
	touched := staleProfile
	touched.UpdatedAt = time.Now().Add(time.Second)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{old}, nil).Once()
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{touched}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, mock.Anything).Return(nil)

	err := wait(t, o.HandleOAuthLogin(context.Background(), accountID, nil))
	assert.ErrorIs(t, err, poll.ErrTimeout)
}

func TestHandleOAuthLogin_ProfileGainingAuthIsFresh(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(10)
	unauthenticated := freshProfile
	unauthenticated.HasToken = false
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{unauthenticated}, nil).Once()
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{freshProfile}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, mock.Anything).Return(nil)

	require.NoError(t, wait(t, o.HandleOAuthLogin(context.Background(), accountID, nil)))
	assert.Equal(t, freshProfile.Name, o.Selected())
}

func TestHandleOAuthLogin_TriggerFailure(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(5)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, mock.Anything).Return(errors.New("databricks: executable file not found"))

	err := wait(t, o.HandleOAuthLogin(context.Background(), accountID, nil))
	require.Error(t, err)
	assert.Equal(t, auth.StateError, o.State())
	b.AssertNumberOfCalls(t, "ListProfiles", 1)
}

func TestHandleOAuthLogin_DetachedNoCallback(t *testing.T) {
	t.Parallel()
	o, b, _ := newTestOrchestrator(1000)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{}, nil).Times(3)
	b.On("ListProfiles", mock.Anything).Return([]auth.Profile{freshProfile}, nil)
	b.On("OAuthLogin", mock.Anything, accountID, mock.Anything).Return(nil)

	o.Detach()
	called := false
	done := o.HandleOAuthLogin(context.Background(), accountID, func(auth.Profile) { called = true })

	time.Sleep(30 * time.Millisecond)
	assert.False(t, called)
	assert.Empty(t, o.Selected())
	select {
	case <-done:
		t.Fatal("detached login must not complete")
	default:
	}
}

func TestHandleAddSPProfile(t *testing.T) {
	t.Parallel()
	sp := ServicePrincipal{AccountID: accountID, ClientID: "client", ClientSecret: "secret"}
	added := auth.Profile{Name: "analytics-sp", AccountID: accountID, HasClientCredentials: true}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		o, b, store := newTestOrchestrator(5)
		o.OpenAddProfileForm()
		b.On("AddServicePrincipalProfile", mock.Anything, "analytics-sp", sp).Return(nil)
		b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile, added}, nil)

		require.NoError(t, o.HandleAddSPProfile(context.Background(), "analytics-sp", sp))
		assert.Equal(t, "analytics-sp", o.Selected())
		assert.False(t, o.AddProfileFormOpen())
		assert.Equal(t, StateProfileAdded, o.State())
		assert.NoError(t, o.Ready(store.snapshot()))
	})

	t.Run("add fails", func(t *testing.T) {
		t.Parallel()
		o, b, _ := newTestOrchestrator(5)
		o.OpenAddProfileForm()
		b.On("AddServicePrincipalProfile", mock.Anything, "analytics-sp", sp).Return(errors.New("profile already exists"))

		require.Error(t, o.HandleAddSPProfile(context.Background(), "analytics-sp", sp))
		assert.Contains(t, o.Err(), "already exists")
		assert.True(t, o.AddProfileFormOpen())
		b.AssertNotCalled(t, "ListProfiles", mock.Anything)
	})

	t.Run("profile missing after add", func(t *testing.T) {
		t.Parallel()
		o, b, _ := newTestOrchestrator(5)
		b.On("AddServicePrincipalProfile", mock.Anything, "analytics-sp", sp).Return(nil)
		b.On("ListProfiles", mock.Anything).Return([]auth.Profile{staleProfile}, nil)

		require.Error(t, o.HandleAddSPProfile(context.Background(), "analytics-sp", sp))
		assert.Empty(t, o.Selected())
	})

	t.Run("empty name", func(t *testing.T) {
		t.Parallel()
		o, b, _ := newTestOrchestrator(5)
		err := o.HandleAddSPProfile(context.Background(), "", sp)
		assert.True(t, auth.IsIncomplete(err))
		b.AssertNotCalled(t, "AddServicePrincipalProfile", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReady_CredentialsMode(t *testing.T) {
	t.Parallel()
	o, _, _ := newTestOrchestrator(5)

	creds := auth.Credentials{}
	assert.True(t, auth.IsIncomplete(o.Ready(creds)))

	creds.Set(auth.FieldDatabricksAccountID, accountID)
	assert.True(t, auth.IsIncomplete(o.Ready(creds)))

	creds.Set(auth.FieldDatabricksClientID, "client")
	creds.Set(auth.FieldDatabricksClientSecret, "secret")
	assert.NoError(t, o.Ready(creds))
}
