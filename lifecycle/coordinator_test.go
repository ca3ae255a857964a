package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trovity/go-portal-server/identity"
	"github.com/trovity/go-portal-server/identity/identityfakes"
	"github.com/trovity/go-portal-server/lifecycle"
	"github.com/trovity/go-portal-server/session"
	"github.com/trovity/go-portal-server/session/profilefakes"
)

var testProfile = &session.UserProfile{
	ID:    "user-1",
	Email: "jane.doe@example.com",
	Realm: "acme",
}

type testFixture struct {
	idp         *identityfakes.FakeClient
	fetcher     *profilefakes.FakeFetcher
	sessions    *session.Store
	coordinator *lifecycle.Coordinator
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	idp := identityfakes.NewFakeClient()
	fetcher := profilefakes.NewFakeFetcher(testProfile)
	sessions, err := session.NewStore(idp, fetcher)
	require.NoError(t, err)

	coordinator, err := lifecycle.NewCoordinator(idp, sessions,
		lifecycle.WithReconcileInterval(5*time.Millisecond))
	require.NoError(t, err)

	return &testFixture{
		idp:         idp,
		fetcher:     fetcher,
		sessions:    sessions,
		coordinator: coordinator,
	}
}

func (f *testFixture) hydrate(t *testing.T) {
	t.Helper()
	f.idp.SetLoggedIn(true)
	f.sessions.InitUserSession(context.Background())
	require.NotNil(t, f.sessions.User())
}

func TestNewCoordinatorRequiresDependencies(t *testing.T) {
	_, err := lifecycle.NewCoordinator(nil, nil)
	require.Error(t, err)
}

func TestReconcileHydratesFreshLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.idp.SetLoggedIn(true)

	f.coordinator.Reconcile(context.Background())

	require.Equal(t, testProfile, f.sessions.User())
	require.Equal(t, 1, f.fetcher.Calls())
}

func TestReconcileClearsExpiredSession(t *testing.T) {
	f := setupTestFixture(t)
	f.hydrate(t)

	f.idp.SetLoggedIn(false)
	f.coordinator.Reconcile(context.Background())

	require.Nil(t, f.sessions.User())
}

func TestReconcileNoopWhenInSync(t *testing.T) {
	f := setupTestFixture(t)

	// Logged out with no user: nothing to do
	f.coordinator.Reconcile(context.Background())
	require.Nil(t, f.sessions.User())
	require.Equal(t, 0, f.fetcher.Calls())

	// Logged in with a hydrated user: nothing to do
	f.hydrate(t)
	f.coordinator.Reconcile(context.Background())
	require.Equal(t, 1, f.fetcher.Calls())
}

func TestTickerDetectsDrift(t *testing.T) {
	f := setupTestFixture(t)
	f.coordinator.Start(context.Background())
	defer f.coordinator.Stop()

	f.idp.SetLoggedIn(true)
	require.Eventually(t, func() bool {
		return f.sessions.User() != nil
	}, time.Second, time.Millisecond)

	f.idp.SetLoggedIn(false)
	require.Eventually(t, func() bool {
		return f.sessions.User() == nil
	}, time.Second, time.Millisecond)
}

func TestDispatchLoginSucceededHydrates(t *testing.T) {
	f := setupTestFixture(t)
	f.idp.SetLoggedIn(true)

	f.idp.Emit(identity.Event{Kind: identity.EventLoginSucceeded})

	require.Eventually(t, func() bool {
		return f.sessions.User() != nil
	}, time.Second, time.Millisecond)
}

func TestDispatchExpiryAndLogoutClear(t *testing.T) {
	for _, kind := range []identity.EventKind{identity.EventTokenExpired, identity.EventLoggedOut} {
		t.Run(kind.String(), func(t *testing.T) {
			f := setupTestFixture(t)
			f.hydrate(t)

			f.idp.Emit(identity.Event{Kind: kind})
			require.Nil(t, f.sessions.User())
		})
	}
}

func TestDispatchRefreshKeepsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.hydrate(t)

	f.idp.Emit(identity.Event{Kind: identity.EventTokenRefreshed})
	require.Equal(t, testProfile, f.sessions.User())
}

func TestStopWithoutStart(t *testing.T) {
	f := setupTestFixture(t)
	f.coordinator.Stop()
}

func TestStopIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.coordinator.Start(context.Background())
	f.coordinator.Stop()
	f.coordinator.Stop()
}

func TestStopHaltsReconciliation(t *testing.T) {
	f := setupTestFixture(t)
	f.coordinator.Start(context.Background())
	f.coordinator.Stop()

	// Drift introduced after Stop must stay unreconciled: no tick runs
	f.idp.SetLoggedIn(true)
	before := f.fetcher.Calls()
	time.Sleep(30 * time.Millisecond)

	require.Equal(t, before, f.fetcher.Calls())
	require.Nil(t, f.sessions.User())
}
