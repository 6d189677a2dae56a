package config

import "time"

// Config aggregates every configuration concern the gateway depends on.
// Components should accept the narrowest interface they need.
type Config interface {
	EnvConfig
	UpstreamConfig
	SessionConfig
	GoogleConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAppURL() string
	GetEnv() string
}

// UpstreamConfig describes the backend API the gateway fronts.
type UpstreamConfig interface {
	GetAPIBaseURL() string
	GetGraphQLURL() string
	GetAPIKey() string
	GetUpstreamTimeout() time.Duration
}

// SessionConfig carries the session signing secret and the cookie TTLs.
// The TTLs are deliberately configuration rather than literals; the only
// hard requirement is access <= refresh <= session.
type SessionConfig interface {
	GetSessionSecret() string
	GetSessionTTL() time.Duration
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleIssuer() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
}

// Load reads the .env file (when present) and the process environment,
// validates the result and returns the composed configuration. A missing
// SESSION_SECRET is fatal here, at process start, rather than on first use.
func Load() (Config, error) {
	vars, err := loadEnvVars()
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars, Cors: newCors(vars.spec.AllowedOrigins)}, nil
}
