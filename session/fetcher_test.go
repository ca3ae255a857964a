package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	apperrors "github.com/trovity/go-portal-server/internal/errors"
	"github.com/trovity/go-portal-server/session"
)

func TestFetchProfile(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(testProfile)
	}))
	defer srv.Close()

	fetcher := session.NewHTTPProfileFetcher(srv.URL, nil)
	profile, err := fetcher.FetchProfile(context.Background(), "token-123")

	require.NoError(t, err)
	require.Equal(t, testProfile, profile)
	require.Equal(t, "Bearer token-123", gotAuth)
}

func TestFetchProfileUnavailableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fetcher := session.NewHTTPProfileFetcher(srv.URL, nil)
	_, err := fetcher.FetchProfile(context.Background(), "token-123")

	require.Error(t, err)
	require.True(t, apperrors.Is(err, apperrors.ErrProfileUnavailable))
}
