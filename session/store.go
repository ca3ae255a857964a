package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/identity"
	apperrors "github.com/trovity/go-portal-server/internal/errors"
)

// Store holds the tab-wide session: the hydrated user and a loading flag.
// Hydration is idempotent by construction: the in-flight guard lives here,
// so correctness never depends on caller discipline or on how often the
// rendering layer re-invokes its effects.
type Store struct {
	mu        sync.Mutex
	user      *UserProfile
	hydrating bool

	idp     identity.Client
	fetcher ProfileFetcher
}

// NewStore creates a session store. Both collaborators are required.
func NewStore(idp identity.Client, fetcher ProfileFetcher) (*Store, error) {
	if idp == nil {
		return nil, errors.New("[NewStore] identity client is required")
	}
	if fetcher == nil {
		return nil, errors.New("[NewStore] profile fetcher is required")
	}
	return &Store{idp: idp, fetcher: fetcher}, nil
}

// User returns the hydrated user, or nil before hydration or after a clear.
func (s *Store) User() *UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// IsLoading reports whether a hydration fetch is outstanding.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrating
}

// InitUserSession hydrates the session from the profile fetch. Calling it
// while a hydration is outstanding, or after the user is already populated,
// is a no-op: exactly one fetch runs per transition no matter how many call
// sites trigger in the same tick. On failure the loading flag is cleared and
// the user stays nil; the next qualifying evaluation re-attempts.
func (s *Store) InitUserSession(ctx context.Context) {
	s.mu.Lock()
	if s.hydrating || s.user != nil {
		s.mu.Unlock()
		return
	}
	s.hydrating = true
	s.mu.Unlock()

	profile, err := s.fetcher.FetchProfile(ctx, s.idp.AccessToken())

	// Success commits user and loading flag in one step; no partially
	// populated session is ever observable.
	s.mu.Lock()
	s.hydrating = false
	if err == nil {
		s.user = profile
	}
	s.mu.Unlock()

	if err != nil {
		if apperrors.Is(err, apperrors.ErrProfileUnavailable) {
			log.Warn().Err(err).Msg("User session hydration failed, profile endpoint unavailable")
		} else {
			log.Err(err).Msg("User session hydration failed")
		}
	}
}

// ClearUserSession drops the user synchronously, then invokes onCleared.
// The callback runs strictly after the state mutation so a redirect target
// can never observe a stale authenticated session.
func (s *Store) ClearUserSession(onCleared func()) {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()

	if onCleared != nil {
		onCleared()
	}
}
