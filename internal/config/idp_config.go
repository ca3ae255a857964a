package config

// IdpConfig holds the external identity provider settings.
type IdpConfig interface {
	GetIssuerURL() string
	GetClientID() string
	GetClientSecret() string
	GetRedirectURL() string
}

type Idp struct{}

var _ IdpConfig = Idp{}

func (Idp) GetIssuerURL() string {
	return GetEnv("IDP_ISSUER_URL", "https://id.trovity.com/realms/trovity")
}

func (Idp) GetClientID() string {
	return GetEnv("IDP_CLIENT_ID", "customer-portal")
}

func (Idp) GetClientSecret() string {
	return GetEnv("IDP_CLIENT_SECRET", "")
}

func (i Idp) GetRedirectURL() string {
	return GetEnv("IDP_REDIRECT_URL", EnvVars{}.GetBaseURL()+"/auth/callback")
}
