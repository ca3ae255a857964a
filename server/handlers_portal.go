package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"github.com/trovity/go-portal-server/guard"
	apperrors "github.com/trovity/go-portal-server/internal/errors"
	"github.com/trovity/go-portal-server/session"
	"github.com/trovity/go-portal-server/storage"
)

// DashboardHandler returns the landing page aggregate for the hydrated user.
func (s *Server) DashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := guard.UserFromContext(r.Context())
		if !ok {
			http.Error(w, apperrors.ErrNotAuthenticated.Error(), http.StatusUnauthorized)
			return
		}

		summary, err := s.portal.Summary(user.ID)
		if err != nil {
			log.Err(err).Str("user", user.ID).Msg("Failed to load dashboard summary")
			http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{
			"user":    user.FullName(),
			"realm":   user.Realm,
			"summary": summary,
		})
	}
}

// PoliciesHandler lists the user's policies.
func (s *Server) PoliciesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := guard.UserFromContext(r.Context())
		if !ok {
			http.Error(w, apperrors.ErrNotAuthenticated.Error(), http.StatusUnauthorized)
			return
		}

		policies, err := s.portal.PoliciesByUser(user.ID)
		if err != nil {
			log.Err(err).Str("user", user.ID).Msg("Failed to load policies")
			http.Error(w, "Failed to load policies", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"policies": policies})
	}
}

// ClaimsHandler lists the user's claims.
func (s *Server) ClaimsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := guard.UserFromContext(r.Context())
		if !ok {
			http.Error(w, apperrors.ErrNotAuthenticated.Error(), http.StatusUnauthorized)
			return
		}

		claims, err := s.portal.ClaimsByUser(user.ID)
		if err != nil {
			log.Err(err).Str("user", user.ID).Msg("Failed to load claims")
			http.Error(w, "Failed to load claims", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"claims": claims})
	}
}

// ProfileHandler returns the hydrated user profile.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := guard.UserFromContext(r.Context())
		if !ok {
			http.Error(w, apperrors.ErrNotAuthenticated.Error(), http.StatusUnauthorized)
			return
		}
		writeJSON(w, user)
	}
}

// PurchaseHandler lists the quotes purchasable in the user's realm.
func (s *Server) PurchaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := guard.UserFromContext(r.Context())
		if !ok {
			http.Error(w, apperrors.ErrNotAuthenticated.Error(), http.StatusUnauthorized)
			return
		}

		quotes, err := s.portal.Quotes(user.Realm)
		if err != nil {
			log.Err(err).Str("realm", user.Realm).Msg("Failed to load quotes")
			http.Error(w, "Failed to load quotes", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"realm": user.Realm, "quotes": quotes})
	}
}

// MeHandler is the profile endpoint the session store hydrates from. The
// profile is built from the bearer token's identity claims; the token was
// already verified when the provider issued it through the code exchange.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			http.Error(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		claims := jwt.MapClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
			http.Error(w, "Invalid bearer token", http.StatusUnauthorized)
			return
		}

		profile := session.UserProfile{
			ID:        stringClaim(claims, "sub"),
			Email:     stringClaim(claims, "email"),
			FirstName: stringClaim(claims, "given_name"),
			LastName:  stringClaim(claims, "family_name"),
			Phone:     stringClaim(claims, "phone_number"),
			Realm:     stringClaim(claims, "realm"),
		}
		if profile.ID == "" {
			http.Error(w, "Token has no subject", http.StatusUnauthorized)
			return
		}
		if profile.Realm == "" {
			if persisted, ok := s.storage.Get(storage.KeyRealm); ok {
				profile.Realm = persisted
			}
		}

		writeJSON(w, profile)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func stringClaim(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return value
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Err(err).Msg("Failed to encode response")
	}
}
