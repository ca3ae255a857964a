package session

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	apperrors "github.com/trovity/go-portal-server/internal/errors"
)

const fetchTimeout = 10 * time.Second

var _ ProfileFetcher = (*HTTPProfileFetcher)(nil)

// HTTPProfileFetcher loads the user profile from the portal's profile
// endpoint using the bearer token confirmed by the identity provider.
type HTTPProfileFetcher struct {
	profileURL string
	httpClient *http.Client
}

// NewHTTPProfileFetcher creates a fetcher for the given profile endpoint.
func NewHTTPProfileFetcher(profileURL string, httpClient *http.Client) *HTTPProfileFetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: fetchTimeout}
	}
	return &HTTPProfileFetcher{
		profileURL: profileURL,
		httpClient: httpClient,
	}
}

func (f *HTTPProfileFetcher) FetchProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.profileURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[FetchProfile] build request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "[FetchProfile] request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(apperrors.ErrProfileUnavailable, "[FetchProfile] unexpected status %d", resp.StatusCode)
	}

	var profile UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "[FetchProfile] decode")
	}
	return &profile, nil
}
