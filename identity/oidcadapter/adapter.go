package oidcadapter

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/identity"
	apperrors "github.com/trovity/go-portal-server/internal/errors"
	"github.com/trovity/go-portal-server/storage"
	"golang.org/x/oauth2"
)

const (
	// refreshTimeout bounds the silent refresh round trip. A refresh that
	// cannot complete within this window is treated as failed.
	refreshTimeout = 5 * time.Second
)

// Config holds the provider settings for the adapter.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// providerEndpoints captures the non-standard discovery claims go-oidc does
// not surface through its typed API.
type providerEndpoints struct {
	EndSessionEndpoint string `json:"end_session_endpoint"`
	RevocationEndpoint string `json:"revocation_endpoint"`
}

// Adapter bridges the external OIDC provider into the identity.Client
// contract. It owns the in-memory token, mirrors the raw access token into
// tab-scoped storage, and normalizes the provider's lifecycle callbacks into
// the single identity event stream.
type Adapter struct {
	mu       sync.RWMutex
	oauthCfg *oauth2.Config
	verifier *oidc.IDTokenVerifier
	token    *oauth2.Token
	sink     identity.EventSink

	endpoints providerEndpoints
	store     storage.Store
	navigate  func(url string)
	nowTime   func() time.Time

	expiryTimer *time.Timer
}

// Option modifies the Adapter instance.
type Option func(*Adapter)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(a *Adapter) {
		a.nowTime = nowFunc
	}
}

var _ identity.Client = (*Adapter)(nil)

// New discovers the provider and builds the adapter. navigate executes the
// redirect-based flows (interactive login); it is supplied by the HTTP layer
// because navigation is not owned here.
func New(ctx context.Context, cfg Config, store storage.Store, navigate func(url string), options ...Option) (*Adapter, error) {
	if store == nil {
		return nil, errors.New("[oidcadapter.New] store is required")
	}
	if navigate == nil {
		return nil, errors.New("[oidcadapter.New] navigate is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "[oidcadapter.New] provider discovery")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
	}

	a := &Adapter{
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		store:    store,
		navigate: navigate,
		nowTime:  time.Now,
	}

	if err := provider.Claims(&a.endpoints); err != nil {
		log.Warn().Err(err).Msg("Provider discovery document missing logout endpoints")
	}

	for _, opt := range options {
		opt(a)
	}

	return a, nil
}

// Init begins the silent session check: the raw token persisted by a
// previous page load is restored and its expiry inspected locally. Exactly
// one callback fires, always asynchronously.
func (a *Adapter) Init(ctx context.Context, onAuthenticated, onUnauthenticated func()) {
	go func() {
		raw, ok := a.store.Get(storage.KeyAccessToken)
		if !ok || raw == "" {
			onUnauthenticated()
			return
		}

		expiry, err := tokenExpiry(raw)
		if err != nil {
			log.Warn().Err(err).Msg("Silent session check: persisted token unreadable")
			onUnauthenticated()
			return
		}
		if !expiry.After(a.now()) {
			onUnauthenticated()
			return
		}

		a.setToken(&oauth2.Token{AccessToken: raw, Expiry: expiry, TokenType: "Bearer"})
		onAuthenticated()
	}()
}

// IsLoggedIn reports whether the in-memory token is present and unexpired.
// Purely local; never a network call.
func (a *Adapter) IsLoggedIn() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token != nil && a.token.AccessToken != "" && a.token.Expiry.After(a.nowTime())
}

// Login redirects to the provider's authorization endpoint.
func (a *Adapter) Login(ctx context.Context) {
	state := uuid.New().String()
	a.navigate(a.oauthCfg.AuthCodeURL(state))
}

// AuthCodeURL builds the provider authorization URL for a given state. Used
// by the HTTP layer, which owns the state cookie and the redirect itself.
func (a *Adapter) AuthCodeURL(state string) string {
	return a.oauthCfg.AuthCodeURL(state)
}

// Exchange completes the redirect-back leg of the login: the authorization
// code is swapped for tokens, the ID token verified, and the session marked
// logged in. Called by the HTTP callback handler.
func (a *Adapter) Exchange(ctx context.Context, code string) error {
	oauth2Token, err := a.oauthCfg.Exchange(ctx, code)
	if err != nil {
		return errors.Wrap(err, "[Adapter.Exchange] token exchange")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return errors.New("[Adapter.Exchange] no ID token in response")
	}
	if _, err := a.verifier.Verify(ctx, rawIDToken); err != nil {
		return errors.Wrap(err, "[Adapter.Exchange] ID token verification")
	}

	a.setToken(oauth2Token)
	a.emit(identity.Event{Kind: identity.EventLoginSucceeded})
	return nil
}

// Logout clears local token state, then notifies the provider. The token
// key is cleared to an empty string rather than deleted so a concurrent
// reader sees "logged out" instead of "never initialized".
func (a *Adapter) Logout(ctx context.Context) {
	a.mu.Lock()
	token := a.token
	a.token = nil
	a.stopExpiryTimerLocked()
	a.mu.Unlock()

	if err := a.store.Set(storage.KeyAccessToken, ""); err != nil {
		log.Err(err).Msg("Logout: failed to clear persisted token")
	}

	a.emit(identity.Event{Kind: identity.EventLoggedOut})

	// Provider-side logout is fire-and-forget
	go a.revokeProviderSession(token)
}

// UpdateToken attempts a silent refresh. A failure is terminal for the
// session: the error is returned and the caller maps it to forced logout.
func (a *Adapter) UpdateToken(ctx context.Context, onRefreshed func()) error {
	a.mu.RLock()
	current := a.token
	a.mu.RUnlock()

	if current == nil || current.RefreshToken == "" {
		return errors.Wrap(apperrors.ErrRefreshFailed, "[Adapter.UpdateToken] no refresh token available")
	}

	refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	refreshed, err := a.oauthCfg.TokenSource(refreshCtx, current).Token()
	if err != nil {
		return errors.Wrapf(apperrors.ErrRefreshFailed, "[Adapter.UpdateToken] silent refresh: %v", err)
	}

	a.setToken(refreshed)
	a.emit(identity.Event{Kind: identity.EventTokenRefreshed})
	if onRefreshed != nil {
		onRefreshed()
	}
	return nil
}

// AccessToken returns the current raw bearer token, or "" when logged out.
func (a *Adapter) AccessToken() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token == nil {
		return ""
	}
	return a.token.AccessToken
}

// Subscribe registers the single event dispatch function.
func (a *Adapter) Subscribe(sink identity.EventSink) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sink = sink
}

// Close cancels the internal expiry timer.
func (a *Adapter) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopExpiryTimerLocked()
}

// setToken installs a token, mirrors it into storage, and arms the expiry
// handler for the token's lifetime.
func (a *Adapter) setToken(token *oauth2.Token) {
	a.mu.Lock()
	a.token = token
	a.stopExpiryTimerLocked()
	if until := token.Expiry.Sub(a.nowTime()); until > 0 {
		a.expiryTimer = time.AfterFunc(until, a.onTokenExpired)
	}
	a.mu.Unlock()

	if err := a.store.Set(storage.KeyAccessToken, token.AccessToken); err != nil {
		log.Err(err).Msg("Failed to persist access token")
	}
}

// onTokenExpired is the expiry hook: it attempts one silent refresh itself
// and on failure emits TokenExpired. It never navigates; redirects after a
// dead session are owned by the route guard.
func (a *Adapter) onTokenExpired() {
	err := a.UpdateToken(context.Background(), nil)
	if err == nil {
		return
	}
	log.Warn().Err(err).Msg("Token expired and silent refresh failed")
	a.emit(identity.Event{Kind: identity.EventTokenExpired})
}

func (a *Adapter) stopExpiryTimerLocked() {
	if a.expiryTimer != nil {
		a.expiryTimer.Stop()
		a.expiryTimer = nil
	}
}

func (a *Adapter) emit(event identity.Event) {
	a.mu.RLock()
	sink := a.sink
	a.mu.RUnlock()
	if sink != nil {
		sink(event)
	}
}

func (a *Adapter) now() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nowTime()
}

// revokeProviderSession best-effort revokes the refresh token at the
// provider. Errors are logged, never surfaced: local state is already clear.
func (a *Adapter) revokeProviderSession(token *oauth2.Token) {
	if token == nil || a.endpoints.RevocationEndpoint == "" {
		return
	}

	form := url.Values{}
	form.Set("token", token.RefreshToken)
	form.Set("token_type_hint", "refresh_token")
	form.Set("client_id", a.oauthCfg.ClientID)
	form.Set("client_secret", a.oauthCfg.ClientSecret)

	resp, err := http.PostForm(a.endpoints.RevocationEndpoint, form)
	if err != nil {
		log.Err(err).Msg("Failed to revoke token at provider")
		return
	}
	resp.Body.Close()
}

// tokenExpiry reads the exp claim of a persisted token. The signature was
// validated by the provider when the token was issued; only the lifetime
// matters for the local session check.
func tokenExpiry(raw string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, errors.Wrap(err, "[tokenExpiry] parse")
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, errors.New("[tokenExpiry] token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
