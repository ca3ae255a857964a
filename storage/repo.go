package storage

// Well-known keys shared between the realm resolver and the identity adapter.
// The config blob is written by an external bootstrap step; the realm key is
// written by the resolver; the token key is owned by the identity adapter and
// is cleared to an empty string on logout.
const (
	KeyConfig      = "config"
	KeyRealm       = "realm"
	KeyAccessToken = "access_token"
)

// Store is tab-scoped persisted storage. Writes are last-writer-wins: the
// values kept here (realm, token) are re-derivable, so no cross-store
// coordination is required.
type Store interface {
	// Get returns the value for a key and whether the key was present
	Get(key string) (string, bool)

	// Set stores a value under a key, replacing any previous value
	Set(key, value string) error

	// Delete removes a key
	Delete(key string) error

	// Clear removes all keys
	Clear() error
}
