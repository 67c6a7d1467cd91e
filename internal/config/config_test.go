package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Monir-Ruet/authentication/internal/config"
)

func TestLoadRequiresDatabaseAndKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_KEY", "")

	_, err := config.Load()
	require.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/identity")
	_, err = config.Load()
	require.Error(t, err)

	t.Setenv("JWT_KEY", "secret")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "identity", cfg.DBSchema)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, "8080", cfg.HTTPPort)
}

func TestLoadReadsOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/identity")
	t.Setenv("JWT_KEY", "secret")
	t.Setenv("DB_SCHEMA", "auth")
	t.Setenv("ACCESS_TOKEN_TTL", "1h")
	t.Setenv("GOOGLE_CLIENT_ID", "gid")
	t.Setenv("GOOGLE_CLIENT_SECRET", "gsecret")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "auth", cfg.DBSchema)
	require.Equal(t, time.Hour, cfg.AccessTokenTTL)
	require.Equal(t, "gid", cfg.Google.ClientID)
	require.Equal(t, "gsecret", cfg.Google.ClientSecret)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadIgnoresMalformedDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/identity")
	t.Setenv("JWT_KEY", "secret")
	t.Setenv("ACCESS_TOKEN_TTL", "soon")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
}
