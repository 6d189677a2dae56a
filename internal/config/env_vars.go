package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// envSpec is the flat set of environment variables the gateway understands.
type envSpec struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Auth Gateway"`
	AppURL  string `env:"APP_URL" envDefault:"http://localhost:8080"`
	Env     string `env:"ENV" envDefault:"DEV"`

	APIBaseURL      string        `env:"API_URL"`
	GraphQLURL      string        `env:"GRAPHQL_API"`
	APIKey          string        `env:"API_KEY"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"30s"`

	SessionSecret   string        `env:"SESSION_SECRET"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"72h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleIssuer       string `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

type EnvVars struct {
	spec envSpec
}

// loadEnvVars loads a .env file if one exists, parses the environment and
// validates the invariants the rest of the gateway relies on.
func loadEnvVars() (EnvVars, error) {
	_ = godotenv.Load()

	var spec envSpec
	if err := env.Parse(&spec); err != nil {
		return EnvVars{}, fmt.Errorf("[config.loadEnvVars] parsing environment: %w", err)
	}

	if spec.SessionSecret == "" {
		return EnvVars{}, fmt.Errorf("[config.loadEnvVars] SESSION_SECRET is required")
	}
	if spec.APIBaseURL == "" && spec.GraphQLURL == "" {
		return EnvVars{}, fmt.Errorf("[config.loadEnvVars] at least one of API_URL or GRAPHQL_API is required")
	}
	if spec.AccessTokenTTL > spec.RefreshTokenTTL {
		return EnvVars{}, fmt.Errorf("[config.loadEnvVars] ACCESS_TOKEN_TTL must not exceed REFRESH_TOKEN_TTL")
	}
	if spec.RefreshTokenTTL > spec.SessionTTL {
		return EnvVars{}, fmt.Errorf("[config.loadEnvVars] REFRESH_TOKEN_TTL must not exceed SESSION_TTL")
	}

	return EnvVars{spec: spec}, nil
}

func (e EnvVars) GetPort() string {
	port := e.spec.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string { return e.spec.AppName }

func (e EnvVars) GetAppURL() string { return e.spec.AppURL }

func (e EnvVars) GetEnv() string { return e.spec.Env }

func (e EnvVars) GetAPIBaseURL() string { return e.spec.APIBaseURL }

func (e EnvVars) GetGraphQLURL() string { return e.spec.GraphQLURL }

func (e EnvVars) GetAPIKey() string { return e.spec.APIKey }

func (e EnvVars) GetUpstreamTimeout() time.Duration { return e.spec.UpstreamTimeout }

func (e EnvVars) GetSessionSecret() string { return e.spec.SessionSecret }

func (e EnvVars) GetSessionTTL() time.Duration { return e.spec.SessionTTL }

func (e EnvVars) GetAccessTokenTTL() time.Duration { return e.spec.AccessTokenTTL }

func (e EnvVars) GetRefreshTokenTTL() time.Duration { return e.spec.RefreshTokenTTL }

func (e EnvVars) GetGoogleClientID() string { return e.spec.GoogleClientID }

func (e EnvVars) GetGoogleClientSecret() string { return e.spec.GoogleClientSecret }

func (e EnvVars) GetGoogleIssuer() string { return e.spec.GoogleIssuer }
