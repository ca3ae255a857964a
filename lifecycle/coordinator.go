package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/identity"
	"github.com/trovity/go-portal-server/session"
)

// DefaultReconcileInterval is how often the coordinator compares provider
// token validity against session state.
const DefaultReconcileInterval = 10 * time.Second

// Coordinator reconciles the identity provider's token validity with the
// session store. It owns a single ticker that evaluates both reconciliation
// rules per tick, so a silent expiry and a fresh login can never race two
// timers into the same transition:
//
//   - logged out at the provider while a user is still hydrated → clear;
//   - logged in at the provider with no user and no hydration in flight →
//     hydrate.
//
// The coordinator detects drift; it never navigates. Redirects belong to
// the route guard alone.
type Coordinator struct {
	idp      identity.Client
	sessions *session.Store
	interval time.Duration

	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
	done      chan struct{}
	stopped   chan struct{}
}

// CoordinatorOption defines a function type to modify the Coordinator.
type CoordinatorOption func(*Coordinator)

// WithReconcileInterval overrides the tick period (primarily for testing).
func WithReconcileInterval(interval time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.interval = interval
	}
}

// NewCoordinator creates a coordinator over the given identity client and
// session store and subscribes to the identity event stream.
func NewCoordinator(idp identity.Client, sessions *session.Store, options ...CoordinatorOption) (*Coordinator, error) {
	if idp == nil {
		return nil, errors.New("[NewCoordinator] identity client is required")
	}
	if sessions == nil {
		return nil, errors.New("[NewCoordinator] session store is required")
	}

	c := &Coordinator{
		idp:      idp,
		sessions: sessions,
		interval: DefaultReconcileInterval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range options {
		opt(c)
	}

	idp.Subscribe(c.Dispatch)
	return c, nil
}

// Start begins periodic reconciliation. Safe to call once; later calls are
// no-ops.
func (c *Coordinator) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.started.Store(true)
		go c.run(ctx)
	})
}

// Stop cancels the ticker. Idempotent; no reconciliation tick runs after
// Stop returns.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
	})
	if c.started.Load() {
		<-c.stopped
	}
}

// Reconcile evaluates both drift rules once. Also invoked explicitly after
// the redirect back from login so a fresh session hydrates without waiting
// for the next tick.
func (c *Coordinator) Reconcile(ctx context.Context) {
	loggedIn := c.idp.IsLoggedIn()

	if !loggedIn && c.sessions.User() != nil {
		log.Info().Msg("Token no longer valid, clearing user session")
		c.sessions.ClearUserSession(nil)
		return
	}

	if loggedIn && c.sessions.User() == nil {
		// The store's own guard makes this a no-op while a hydration is
		// already in flight.
		c.sessions.InitUserSession(ctx)
	}
}

// Dispatch consumes the normalized identity event stream. It is the single
// entry point for all four provider callbacks.
func (c *Coordinator) Dispatch(event identity.Event) {
	switch event.Kind {
	case identity.EventTokenExpired, identity.EventLoggedOut:
		c.sessions.ClearUserSession(nil)
	case identity.EventLoginSucceeded:
		go c.sessions.InitUserSession(context.Background())
	case identity.EventTokenRefreshed:
		// Session state already matches a valid token; nothing to reconcile.
	}
}

func (c *Coordinator) run(ctx context.Context) {
	defer close(c.stopped)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Reconcile(ctx)
		}
	}
}
