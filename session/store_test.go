package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/trovity/go-portal-server/identity/identityfakes"
	"github.com/trovity/go-portal-server/session"
	"github.com/trovity/go-portal-server/session/profilefakes"
)

var testProfile = &session.UserProfile{
	ID:        "user-1",
	Email:     "jane.doe@example.com",
	FirstName: "Jane",
	LastName:  "Doe",
	Realm:     "acme",
}

// testFixture holds all test dependencies
type testFixture struct {
	idp     *identityfakes.FakeClient
	fetcher *profilefakes.FakeFetcher
	store   *session.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	idp := identityfakes.NewFakeClient()
	idp.SetLoggedIn(true)
	fetcher := profilefakes.NewFakeFetcher(testProfile)

	store, err := session.NewStore(idp, fetcher)
	require.NoError(t, err)

	return &testFixture{idp: idp, fetcher: fetcher, store: store}
}

func TestNewStoreRequiresDependencies(t *testing.T) {
	_, err := session.NewStore(nil, profilefakes.NewFakeFetcher(testProfile))
	require.Error(t, err)

	_, err = session.NewStore(identityfakes.NewFakeClient(), nil)
	require.Error(t, err)
}

func TestInitUserSessionHydratesOnce(t *testing.T) {
	f := setupTestFixture(t)

	f.store.InitUserSession(context.Background())
	require.Equal(t, testProfile, f.store.User())
	require.False(t, f.store.IsLoading())

	// Already hydrated: further triggers are no-ops
	f.store.InitUserSession(context.Background())
	f.store.InitUserSession(context.Background())
	require.Equal(t, 1, f.fetcher.Calls())
}

func TestInitUserSessionCollapsesConcurrentTriggers(t *testing.T) {
	f := setupTestFixture(t)
	f.fetcher.BlockUntilReleased()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.store.InitUserSession(context.Background())
		}()
	}

	require.Eventually(t, f.store.IsLoading, time.Second, time.Millisecond)
	f.fetcher.Release()
	wg.Wait()

	require.Equal(t, 1, f.fetcher.Calls())
	require.Equal(t, testProfile, f.store.User())
	require.False(t, f.store.IsLoading())
}

func TestInitUserSessionFailureLeavesSessionEmpty(t *testing.T) {
	f := setupTestFixture(t)
	f.fetcher.SetError(errors.New("profile endpoint down"))

	f.store.InitUserSession(context.Background())

	require.Nil(t, f.store.User())
	require.False(t, f.store.IsLoading())

	// The next trigger re-attempts the fetch
	f.fetcher.SetError(nil)
	f.store.InitUserSession(context.Background())
	require.Equal(t, 2, f.fetcher.Calls())
	require.Equal(t, testProfile, f.store.User())
}

func TestClearUserSessionRunsCallbackAfterClear(t *testing.T) {
	f := setupTestFixture(t)
	f.store.InitUserSession(context.Background())
	require.NotNil(t, f.store.User())

	var observed *session.UserProfile = testProfile
	f.store.ClearUserSession(func() {
		observed = f.store.User()
	})

	require.Nil(t, observed)
	require.Nil(t, f.store.User())
}

func TestClearUserSessionNilCallback(t *testing.T) {
	f := setupTestFixture(t)
	f.store.InitUserSession(context.Background())

	f.store.ClearUserSession(nil)
	require.Nil(t, f.store.User())
}
