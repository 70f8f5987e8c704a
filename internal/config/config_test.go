package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-truckdocs/internal/config"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, 7*time.Minute, c.GetSessionTimeout())
	require.Equal(t, time.Minute, c.GetSessionWarningTime())
	require.Equal(t, 10*time.Second, c.GetSessionCheckInterval())
	require.False(t, c.GetRestoreActivityOnStart())
	require.Equal(t, int64(10*1024*1024), c.GetUploadMaxBytes())
	require.Equal(t, "local", c.GetIdentityProvider())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TIMEOUT", "15m")
	t.Setenv("SESSION_WARNING_TIME", "2m")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	c, err := config.Load()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, 15*time.Minute, c.GetSessionTimeout())
	require.Equal(t, 2*time.Minute, c.GetSessionWarningTime())
	require.True(t, c.GetAllowedOrigins().IsAllowedOrigin("https://b.example.com"))
	require.False(t, c.GetAllowedOrigins().IsAllowedOrigin("https://c.example.com"))
}

func TestLoad_WarningMustBeShorterThanTimeout(t *testing.T) {
	t.Setenv("SESSION_TIMEOUT", "1m")
	t.Setenv("SESSION_WARNING_TIME", "1m")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "SESSION_WARNING_TIME")
}

func TestLoad_OIDCRequiresIssuer(t *testing.T) {
	t.Setenv("IDENTITY_PROVIDER", "oidc")

	_, err := config.Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "OIDC_ISSUER")
}
