package realm

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
	apperrors "github.com/trovity/go-portal-server/internal/errors"
	"github.com/trovity/go-portal-server/storage"
)

const (
	// DefaultRealm is the global fallback when nothing can be derived from
	// the hostname or storage.
	DefaultRealm Realm = "trovity"

	// LocalDefaultRealm is used on local-development hosts with no subdomain.
	LocalDefaultRealm Realm = "dev"

	// brandName is matched as a substring against undotted hostnames.
	brandName = "trovity"

	// localDevMarker identifies local-development hostnames.
	localDevMarker = "localhost"

	// LoginPathPrefix is the tenant login landing path.
	LoginPathPrefix = "/personal/"
)

// tenantConfig is the shape of the externally written config blob. Only the
// realm field matters here; everything else is opaque.
type tenantConfig struct {
	Realm string `json:"realm"`
}

// Resolver derives the active realm from the hosting domain or from
// previously persisted configuration. Resolution is memoized through the
// store: once a realm has been derived from a hostname it is persisted so
// later calls in the same tab read it back directly.
type Resolver struct {
	store storage.Store
}

// NewResolver creates a realm resolver backed by the given tab-scoped store.
func NewResolver(store storage.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the active realm for the given hostname. The fallback
// chain is, in order: persisted config blob, persisted realm key, hostname
// derivation, global default. The result is always non-empty.
func (r *Resolver) Resolve(host string) Realm {
	if realm, ok := r.realmFromConfig(); ok {
		return realm
	}

	if persisted, ok := r.store.Get(storage.KeyRealm); ok && persisted != "" {
		return Realm(persisted)
	}

	derived := deriveFromHost(host)
	if err := r.store.Set(storage.KeyRealm, derived.String()); err != nil {
		log.Err(err).Str("realm", derived.String()).Msg("Failed to persist resolved realm")
	}
	return derived
}

// LoginURL returns the tenant login landing path, "/personal/{realm}".
// With no argument the persisted/derived realm for an empty hostname is
// used; callers that already hold a realm pass it explicitly.
func (r *Resolver) LoginURL(realm ...Realm) string {
	if len(realm) > 0 && realm[0] != "" {
		return LoginPathPrefix + realm[0].String()
	}
	return LoginPathPrefix + r.Resolve("").String()
}

// realmFromConfig reads the externally written config blob. A malformed blob
// is treated as absent: resolution falls through to the next branch rather
// than surfacing a parse error.
func (r *Resolver) realmFromConfig() (Realm, bool) {
	blob, ok := r.store.Get(storage.KeyConfig)
	if !ok || blob == "" {
		return "", false
	}

	var cfg tenantConfig
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		log.Warn().Err(apperrors.Wrapf(apperrors.ErrMalformedConfig, "%v", err)).
			Msg("Falling back to hostname resolution")
		return "", false
	}
	if cfg.Realm == "" {
		return "", false
	}
	return Realm(cfg.Realm), true
}

func deriveFromHost(host string) Realm {
	// Strip any port before inspecting the hostname
	hostname := strings.ToLower(strings.SplitN(strings.TrimSpace(host), ":", 2)[0])

	if strings.Contains(hostname, localDevMarker) {
		if label, ok := subdomainLabel(hostname); ok {
			return Realm(label)
		}
		return LocalDefaultRealm
	}

	if label, ok := subdomainLabel(hostname); ok {
		return Realm(label)
	}

	if strings.Contains(hostname, brandName) {
		return Realm(brandName)
	}

	return DefaultRealm
}

// subdomainLabel returns the leading label of a dotted hostname,
// e.g. "acme.trovity.com" yields "acme".
func subdomainLabel(hostname string) (string, bool) {
	idx := strings.Index(hostname, ".")
	if idx <= 0 {
		return "", false
	}
	return hostname[:idx], true
}
