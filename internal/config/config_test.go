package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/untools/auth-gateway/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SESSION_SECRET", "test-secret")
	t.Setenv("API_URL", "http://api.internal")
	t.Setenv("GRAPHQL_API", "http://api.internal/graphql")
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := config.Load()
		require.NoError(t, err)

		require.Equal(t, ":8080", cfg.GetPort())
		require.Equal(t, "DEV", cfg.GetEnv())
		require.Equal(t, 30*time.Second, cfg.GetUpstreamTimeout())
		require.Equal(t, 168*time.Hour, cfg.GetSessionTTL())
		require.Equal(t, 72*time.Hour, cfg.GetAccessTokenTTL())
		require.Equal(t, 168*time.Hour, cfg.GetRefreshTokenTTL())
		require.Equal(t, "https://accounts.google.com", cfg.GetGoogleIssuer())
	})

	t.Run("port is normalised with a colon", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("PORT", "9000")

		cfg, err := config.Load()
		require.NoError(t, err)
		require.Equal(t, ":9000", cfg.GetPort())
	})

	t.Run("missing session secret is fatal", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "")
		t.Setenv("API_URL", "http://api.internal")

		_, err := config.Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "SESSION_SECRET")
	})

	t.Run("at least one upstream is required", func(t *testing.T) {
		t.Setenv("SESSION_SECRET", "test-secret")
		t.Setenv("API_URL", "")
		t.Setenv("GRAPHQL_API", "")

		_, err := config.Load()
		require.Error(t, err)
	})

	t.Run("access TTL must not exceed refresh TTL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("ACCESS_TOKEN_TTL", "10h")
		t.Setenv("REFRESH_TOKEN_TTL", "5h")
		t.Setenv("SESSION_TTL", "10h")

		_, err := config.Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "ACCESS_TOKEN_TTL")
	})

	t.Run("refresh TTL must not exceed session TTL", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("ACCESS_TOKEN_TTL", "1h")
		t.Setenv("REFRESH_TOKEN_TTL", "10h")
		t.Setenv("SESSION_TTL", "5h")

		_, err := config.Load()
		require.Error(t, err)
		require.Contains(t, err.Error(), "REFRESH_TOKEN_TTL")
	})

	t.Run("allowed origins", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

		cfg, err := config.Load()
		require.NoError(t, err)

		origins := cfg.GetAllowedOrigins()
		require.True(t, origins.IsAllowedOrigin("https://app.example.com"))
		require.True(t, origins.IsAllowedOrigin("https://admin.example.com"))
		require.False(t, origins.IsAllowedOrigin("https://evil.example.com"))
	})
}
