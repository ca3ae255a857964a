package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/guard"
	"github.com/trovity/go-portal-server/identity"
	"github.com/trovity/go-portal-server/internal/config"
	"github.com/trovity/go-portal-server/lifecycle"
	"github.com/trovity/go-portal-server/portal"
	"github.com/trovity/go-portal-server/realm"
	"github.com/trovity/go-portal-server/session"
	"github.com/trovity/go-portal-server/storage"
)

// AuthFlow is the slice of the identity adapter the HTTP layer drives
// directly: building the authorization URL and completing the code exchange.
// The redirect itself and the state cookie stay here, because navigation is
// owned by the response, not the adapter.
type AuthFlow interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) error
}

// Deps bundles the collaborators the server is wired with.
type Deps struct {
	Idp      identity.Client
	AuthFlow AuthFlow
	Sessions *session.Store
	Resolver *realm.Resolver
	Storage  storage.Store
	Portal   portal.Repo
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	idp      identity.Client
	authFlow AuthFlow
	sessions *session.Store
	resolver *realm.Resolver
	storage  storage.Store
	portal   portal.Repo

	guard       *guard.RouteGuard
	coordinator *lifecycle.Coordinator
}

func New(config config.Config, deps Deps) (*Server, error) {
	if deps.Idp == nil || deps.AuthFlow == nil || deps.Sessions == nil {
		return nil, errors.New("[Server New] identity client, auth flow and session store are required")
	}
	if deps.Resolver == nil || deps.Storage == nil || deps.Portal == nil {
		return nil, errors.New("[Server New] resolver, storage and portal repo are required")
	}

	coordinator, err := lifecycle.NewCoordinator(deps.Idp, deps.Sessions,
		lifecycle.WithReconcileInterval(config.GetReconcileInterval()))
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create lifecycle coordinator")
	}

	// The guard's timer navigation has no response writer to redirect; the
	// per-request check bounces the next protected request instead.
	routeGuard, err := guard.New(deps.Idp, deps.Sessions, deps.Resolver,
		func(target string) {
			zlog.Info().Str("target", target).Msg("Session expired, next protected request redirects")
		},
		guard.WithRevalidateInterval(config.GetRevalidateInterval()))
	if err != nil {
		return nil, errors.Wrap(err, "[Server New] failed to create route guard")
	}

	s := &Server{
		mux:         http.NewServeMux(),
		config:      config,
		idp:         deps.Idp,
		authFlow:    deps.AuthFlow,
		sessions:    deps.Sessions,
		resolver:    deps.Resolver,
		storage:     deps.Storage,
		portal:      deps.Portal,
		guard:       routeGuard,
		coordinator: coordinator,
	}
	s.env = config.GetEnv()

	s.coordinator.Start(context.Background())
	s.guard.Start(context.Background())

	// Silent session check: a token persisted by a previous run is restored
	// before any request arrives. Exactly one callback fires, asynchronously.
	s.idp.Init(context.Background(),
		func() { s.coordinator.Reconcile(context.Background()) },
		func() { zlog.Debug().Msg("No existing session to restore") },
	)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops the lifecycle timers. Idempotent.
func (s *Server) Close() {
	s.guard.Close()
	s.coordinator.Stop()
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
