package config

type Config interface {
	EnvConfig
	CorsConfig
	IdpConfig
	LifecycleConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetProfileURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Idp
	Lifecycle
}

func New() Config {
	return mainConfig{}
}
