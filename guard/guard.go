package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/identity"
	"github.com/trovity/go-portal-server/realm"
	"github.com/trovity/go-portal-server/session"
)

// DefaultRevalidateInterval is how often a mounted guard re-checks token
// validity independently of request traffic.
const DefaultRevalidateInterval = 30 * time.Second

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeyUser stores the hydrated user profile on guarded requests
const ContextKeyUser ContextKey = "user"

// UserFromContext returns the profile injected by the guard, if present.
func UserFromContext(ctx context.Context) (*session.UserProfile, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*session.UserProfile)
	return user, ok
}

// RouteGuard gates protected views. Every request is evaluated against the
// same three-state rule: not logged in → redirect to the tenant login
// landing with nothing else written; logged in but not hydrated → loading
// response plus a hydration trigger; hydrated → the protected handler runs.
//
// Independently of request traffic the guard re-validates on a timer while
// mounted: when the token goes invalid it clears the session and fires the
// navigation callback exactly once for that expiry. The coordinator watches
// the same invariant from its own tick; the guard alone owns navigation.
type RouteGuard struct {
	idp      identity.Client
	sessions *session.Store
	resolver *realm.Resolver
	navigate func(target string)
	interval time.Duration

	wasLoggedIn atomic.Bool

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	done      chan struct{}
	stopped   chan struct{}
}

// Option defines a function type to modify the RouteGuard.
type Option func(*RouteGuard)

// WithRevalidateInterval overrides the revalidation period (primarily for
// testing).
func WithRevalidateInterval(interval time.Duration) Option {
	return func(g *RouteGuard) {
		g.interval = interval
	}
}

// New creates a route guard. navigate receives the login URL when a timer
// revalidation detects an expired token; per-request redirects are written
// directly to the response.
func New(idp identity.Client, sessions *session.Store, resolver *realm.Resolver, navigate func(target string), options ...Option) (*RouteGuard, error) {
	if idp == nil {
		return nil, errors.New("[guard.New] identity client is required")
	}
	if sessions == nil {
		return nil, errors.New("[guard.New] session store is required")
	}
	if resolver == nil {
		return nil, errors.New("[guard.New] realm resolver is required")
	}
	if navigate == nil {
		navigate = func(string) {}
	}

	g := &RouteGuard{
		idp:      idp,
		sessions: sessions,
		resolver: resolver,
		navigate: navigate,
		interval: DefaultRevalidateInterval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range options {
		opt(g)
	}
	return g, nil
}

// Protect wraps a handler with the three-state evaluation.
func (g *RouteGuard) Protect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !g.idp.IsLoggedIn() {
			loginURL := g.resolver.LoginURL(g.resolver.Resolve(r.Host))
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}

		g.wasLoggedIn.Store(true)

		// Read the user once: a clear landing between a state check and a
		// second read would hand the handler a nil user.
		user := g.sessions.User()
		if g.sessions.IsLoading() || user == nil {
			// Trigger hydration as a side effect; the store's in-flight
			// guard collapses concurrent triggers into one fetch.
			go g.sessions.InitUserSession(context.Background())
			writeLoading(w)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUser, user)
		next(w, r.WithContext(ctx))
	}
}

// Start begins periodic revalidation. Safe to call once.
func (g *RouteGuard) Start(ctx context.Context) {
	g.startOnce.Do(func() {
		g.started.Store(true)
		go g.run(ctx)
	})
}

// Close cancels the revalidation timer. Idempotent; no check runs after
// Close returns.
func (g *RouteGuard) Close() {
	g.stopOnce.Do(func() {
		close(g.done)
	})
	if g.started.Load() {
		<-g.stopped
	}
}

// Revalidate runs one timer check: on the transition from valid to invalid
// token it clears the session and navigates to the login URL, once.
func (g *RouteGuard) Revalidate() {
	if g.idp.IsLoggedIn() {
		g.wasLoggedIn.Store(true)
		return
	}

	// Only the edge counts: a guard that never saw a valid token has
	// nothing to clear, and repeating the redirect each tick would fight
	// the login page the user is already on.
	if !g.wasLoggedIn.CompareAndSwap(true, false) {
		return
	}

	log.Info().Msg("Revalidation found expired token, clearing session")
	g.sessions.ClearUserSession(func() {
		g.navigate(g.resolver.LoginURL())
	})
}

func (g *RouteGuard) run(ctx context.Context) {
	defer close(g.stopped)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-g.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Revalidate()
		}
	}
}

func writeLoading(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", "1")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
}
