package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/trovity/go-portal-server/identity/identityfakes"
	"github.com/trovity/go-portal-server/internal/config"
	"github.com/trovity/go-portal-server/portal/repofake"
	"github.com/trovity/go-portal-server/realm"
	"github.com/trovity/go-portal-server/server"
	"github.com/trovity/go-portal-server/session"
	"github.com/trovity/go-portal-server/session/profilefakes"
	"github.com/trovity/go-portal-server/storage"
)

const testUserID = "user-1"

var testProfile = &session.UserProfile{
	ID:        testUserID,
	Email:     "jane.doe@example.com",
	FirstName: "Jane",
	LastName:  "Doe",
	Realm:     "acme",
}

// fakeAuthFlow stands in for the adapter's authorization code flow.
type fakeAuthFlow struct {
	lock sync.Mutex
	idp  *identityfakes.FakeClient

	exchangeErr   error
	ExchangeCalls int
}

func (f *fakeAuthFlow) AuthCodeURL(state string) string {
	return "https://id.example.com/authorize?state=" + state
}

func (f *fakeAuthFlow) Exchange(ctx context.Context, code string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ExchangeCalls++
	if f.exchangeErr != nil {
		return f.exchangeErr
	}
	f.idp.SetLoggedIn(true)
	return nil
}

type testFixture struct {
	idp      *identityfakes.FakeClient
	authFlow *fakeAuthFlow
	fetcher  *profilefakes.FakeFetcher
	sessions *session.Store
	storage  storage.Store
	server   *server.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	idp := identityfakes.NewFakeClient()
	fetcher := profilefakes.NewFakeFetcher(testProfile)
	sessions, err := session.NewStore(idp, fetcher)
	require.NoError(t, err)

	store := storage.NewInMemoryStore()
	authFlow := &fakeAuthFlow{idp: idp}

	srv, err := server.New(config.New(), server.Deps{
		Idp:      idp,
		AuthFlow: authFlow,
		Sessions: sessions,
		Resolver: realm.NewResolver(store),
		Storage:  store,
		Portal:   repofake.NewSeededPortalRepo(testUserID),
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	return &testFixture{
		idp:      idp,
		authFlow: authFlow,
		fetcher:  fetcher,
		sessions: sessions,
		storage:  store,
		server:   srv,
	}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	f.idp.SetLoggedIn(true)
	f.sessions.InitUserSession(context.Background())
	require.NotNil(t, f.sessions.User())
}

func (f *testFixture) get(path, host string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if host != "" {
		req.Host = host
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func TestServerRunsSilentSessionCheckOnStartup(t *testing.T) {
	f := setupTestFixture(t)
	require.Equal(t, 1, f.idp.InitCalls)
}

func TestGuardedRouteRedirectsAnonymousVisitor(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteDashboard, "acme.trovity.com")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/personal/acme", rec.Header().Get("Location"))
	require.NotContains(t, rec.Body.String(), "summary")
}

func TestLoginLandingPersistsRealm(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get("/personal/acme", "acme.trovity.com")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), server.RouteAuthLogin)

	persisted, ok := f.storage.Get(storage.KeyRealm)
	require.True(t, ok)
	require.Equal(t, "acme", persisted)
}

func TestAuthLoginRedirectsToProvider(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAuthLogin, "")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "https://id.example.com/authorize?state=")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "auth_state", cookies[0].Name)
	require.NotEmpty(t, cookies[0].Value)
}

func TestCallbackRejectsMissingState(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteCallback+"?code=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.authFlow.ExchangeCalls)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteCallback+"?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: "auth_state", Value: "expected"})
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.authFlow.ExchangeCalls)
}

func TestCallbackRejectsProviderError(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteCallback+"?error=access_denied&error_description=denied", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, 0, f.authFlow.ExchangeCalls)
}

func TestCallbackCompletesLogin(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, server.RouteCallback+"?code=abc&state=xyz", nil)
	req.AddCookie(&http.Cookie{Name: "auth_state", Value: "xyz"})
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, server.RouteDashboard, rec.Header().Get("Location"))
	require.Equal(t, 1, f.authFlow.ExchangeCalls)
	require.True(t, f.idp.IsLoggedIn())

	// The explicit post-callback reconcile hydrates without waiting a tick
	require.NotNil(t, f.sessions.User())
}

func TestDashboardServesHydratedUser(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	rec := f.get(server.RouteDashboard, "acme.trovity.com")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Jane Doe")
	require.Contains(t, rec.Body.String(), "active_policies")
}

func TestPoliciesClaimsAndPurchase(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	rec := f.get(server.RoutePolicies, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Health Shield")

	rec = f.get(server.RouteClaims, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "windscreen damage")

	rec = f.get(server.RoutePurchase, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Travel Plus")
}

func TestProfileReturnsSessionUser(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	rec := f.get(server.RouteProfile, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "jane.doe@example.com")
}

func TestLogoutClearsStateBeforeRedirectingAndNotifiesProvider(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	require.NoError(t, f.storage.Set(storage.KeyRealm, "acme"))
	require.NoError(t, f.storage.Set(storage.KeyAccessToken, "token"))

	rec := f.get(server.RouteAuthLogout, "acme.trovity.com")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/personal/acme", rec.Header().Get("Location"))

	// Persisted state and session were gone before the redirect was written
	_, ok := f.storage.Get(storage.KeyAccessToken)
	require.False(t, ok)
	require.Nil(t, f.sessions.User())
	require.Equal(t, 1, f.idp.LogoutCalls)
}

func TestMeEndpointBuildsProfileFromToken(t *testing.T) {
	f := setupTestFixture(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         testUserID,
		"email":       "jane.doe@example.com",
		"given_name":  "Jane",
		"family_name": "Doe",
		"realm":       "acme",
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, server.RouteAPIMe, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"id":"user-1"`)
	require.Contains(t, rec.Body.String(), `"realm":"acme"`)
}

func TestMeEndpointRejectsMissingToken(t *testing.T) {
	f := setupTestFixture(t)

	rec := f.get(server.RouteAPIMe, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
