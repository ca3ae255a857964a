package server

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/storage"
)

const stateCookieName = "auth_state"

// LoginLandingHandler serves the tenant login landing page. The realm named
// in the path becomes the active realm for everything that follows, so it is
// persisted before the page renders.
func (s *Server) LoginLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		realmName := r.PathValue("realm")
		if realmName == "" {
			realmName = s.resolver.Resolve(r.Host).String()
		}
		if err := s.storage.Set(storage.KeyRealm, realmName); err != nil {
			log.Err(err).Str("realm", realmName).Msg("Failed to persist login realm")
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, loginLandingHTML, s.config.GetAppName(), realmName, RouteAuthLogin)
	}
}

const loginLandingHTML = `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body>
<h1>Sign in to %s</h1>
<p><a href="%s">Continue to login</a></p>
</body>
</html>
`

// AuthLoginHandler starts the authorization code flow: a fresh state value
// is pinned in a short-lived cookie and the browser is sent to the provider.
func (s *Server) AuthLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.New().String()

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/",
			MaxAge:   300,
			HttpOnly: true,
			Secure:   s.env == "PROD",
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, s.authFlow.AuthCodeURL(state), http.StatusSeeOther)
	}
}

// OAuthCallbackHandler completes the redirect back from the provider. On a
// successful code exchange the session hydrates immediately rather than
// waiting for the next reconciliation tick.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			http.Error(w, fmt.Sprintf("Authorization failed: %s - %s", errorParam, errorDesc), http.StatusBadRequest)
			return
		}

		if code == "" || state == "" {
			http.Error(w, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		cookie, err := r.Cookie(stateCookieName)
		if err != nil || cookie.Value != state {
			http.Error(w, "Invalid state parameter", http.StatusBadRequest)
			return
		}

		// Clean up state after use
		http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

		if err := s.authFlow.Exchange(r.Context(), code); err != nil {
			log.Err(err).Msg("Token exchange failed")
			http.Error(w, "Token exchange failed", http.StatusInternalServerError)
			return
		}

		s.coordinator.Reconcile(r.Context())

		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
	}
}

// LogoutHandler tears the session down. The order is fixed: persisted state
// is cleared first, then the redirect to the login landing is written, and
// only then is the provider told to end its session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loginURL := s.resolver.LoginURL(s.resolver.Resolve(r.Host))

		if err := s.storage.Clear(); err != nil {
			log.Err(err).Msg("Failed to clear persisted session state on logout")
		}

		s.sessions.ClearUserSession(func() {
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
		})

		s.idp.Logout(r.Context())
	}
}
