package session

import "context"

// UserProfile is the application user hydrated after a confirmed login.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Realm     string `json:"realm"`
	Phone     string `json:"phone,omitempty"`
}

// FullName returns the display name for the profile.
func (u UserProfile) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ProfileFetcher retrieves the user profile once a valid token has been
// confirmed. The fetch is the only suspending operation in the session
// lifecycle besides the provider calls themselves.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, accessToken string) (*UserProfile, error)
}
