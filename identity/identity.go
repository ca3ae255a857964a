package identity

import "context"

// EventKind tags the normalized identity event stream. The provider SDK
// exposes four independent callbacks; the adapter folds them into this one
// tagged union so consumers register a single dispatch function instead of
// reasoning about four registrations with implicit ordering.
type EventKind int

const (
	// EventTokenRefreshed fires after a successful silent refresh.
	EventTokenRefreshed EventKind = iota
	// EventTokenExpired fires when the token expired and the adapter's own
	// refresh attempt failed. The adapter never navigates on expiry; that is
	// owned by the route guard.
	EventTokenExpired
	// EventLoggedOut fires after a provider-side logout.
	EventLoggedOut
	// EventLoginSucceeded fires when a login completes.
	EventLoginSucceeded
)

func (k EventKind) String() string {
	switch k {
	case EventTokenRefreshed:
		return "token_refreshed"
	case EventTokenExpired:
		return "token_expired"
	case EventLoggedOut:
		return "logged_out"
	case EventLoginSucceeded:
		return "login_succeeded"
	}
	return "unknown"
}

// Event is one entry in the identity event stream.
type Event struct {
	Kind EventKind
}

// EventSink receives identity events. Dispatch is fire-and-forget: sinks
// must not block.
type EventSink func(Event)

// Client is the narrow boundary the portal consumes from the identity
// provider SDK. Token issuance, cryptographic validation and the login UI
// all live behind this interface.
type Client interface {
	// Init begins a silent session check. Exactly one of the two callbacks
	// is invoked exactly once when the check resolves, never synchronously.
	Init(ctx context.Context, onAuthenticated, onUnauthenticated func())

	// IsLoggedIn reports current in-memory token validity. Synchronous and
	// O(1); never a network call.
	IsLoggedIn() bool

	// Login starts the redirect-based interactive login. Fire-and-forget.
	Login(ctx context.Context)

	// Logout performs the provider-side logout. Fire-and-forget: callers do
	// not await it for navigation purposes.
	Logout(ctx context.Context)

	// UpdateToken attempts a silent refresh. On success onRefreshed is
	// invoked and nil is returned; a non-nil error means the refresh failed
	// and the session is terminally dead (callers map this to forced
	// logout, never to a retry).
	UpdateToken(ctx context.Context, onRefreshed func()) error

	// AccessToken returns the current raw bearer token, or "" when logged
	// out. Used by the profile hydration fetch.
	AccessToken() string

	// Subscribe registers the single event dispatch function. Later calls
	// replace the sink.
	Subscribe(sink EventSink)
}
