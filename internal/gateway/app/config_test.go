package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable LoadConfig reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"CONFIG_FILE", "KEYCLOAK_URL", "KEYCLOAK_REALM", "KEYCLOAK_ISSUER", "KEYCLOAK_JWKS_URL",
		"JWT_SECRET", "KEYCLOAK_CLIENT_ID", "KEYCLOAK_ADMIN_USERNAME", "KEYCLOAK_ADMIN_PASSWORD",
		"KEYCLOAK_ADMIN_CLIENT_ID", "JWKS_FETCHES_PER_MINUTE", "UPSTREAM_TIMEOUT", "DATABASE_FILE",
		"ORPHAN_AUDIT_INTERVAL", "ORPHAN_STALE_AFTER",
		"ENV", "LOG_LEVEL", "LOG_FORMAT", "PORT", "SHUTDOWN_GRACE_PERIOD", "TRACE_SAMPLE_RATIO",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("KEYCLOAK_URL", "http://keycloak:8080/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "http://keycloak:8080", cfg.KeycloakURL)
	require.Equal(t, "master", cfg.Realm)
	require.Equal(t, "nearbynurse-frontend", cfg.ClientID)
	require.Equal(t, "admin-cli", cfg.AdminClientID)
	require.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, time.Hour, cfg.OrphanAuditInterval)
	require.Equal(t, 24*time.Hour, cfg.OrphanStaleAfter)
	require.Equal(t, jwtx.StrategyKeySet, cfg.Strategy())
}

func TestLoadConfigLayers(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
keycloak_url: http://from-file
realm: nearbynurse
port: 9090
upstream_timeout: 3s
jwks_fetches_per_minute: 5
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("SHUTDOWN_GRACE_PERIOD", "30")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "http://from-file", cfg.KeycloakURL)
	require.Equal(t, "nearbynurse", cfg.Realm)
	require.Equal(t, 7070, cfg.Port, "env wins over file")
	require.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
	require.Equal(t, 5, cfg.FetchesPerMin)
	require.Equal(t, 30*time.Second, cfg.ShutdownGracePeriod)
	require.Equal(t, "json", cfg.LogFormat, "defaults survive")
}

func TestLoadConfigFileErrors(t *testing.T) {
	clearEnv(t)

	t.Run("missing", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.yaml")
		require.NoError(t, os.WriteFile(path, []byte("keycloak_uri: typo\n"), 0o600))
		t.Setenv("CONFIG_FILE", path)
		_, err := LoadConfig()
		require.ErrorContains(t, err, "keycloak_uri")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gateway.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		t.Setenv("CONFIG_FILE", path)
		_, err := LoadConfig()
		require.NoError(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := DefaultConfig()
	valid.KeycloakURL = "http://keycloak"

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing url", func(c *Config) { c.KeycloakURL = "" }, "KEYCLOAK_URL"},
		{"secret alone", func(c *Config) { c.JWTSecret = "s" }, ""},
		{"secret with jwks url", func(c *Config) {
			c.JWTSecret = "s"
			c.JWKSURL = "http://keycloak/certs"
		}, "JWT_SECRET"},
		{"secret with fetch limit", func(c *Config) {
			c.JWTSecret = "s"
			c.FetchesPerMin = 3
		}, "JWT_SECRET"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"bad ratio", func(c *Config) { c.TraceSampleRatio = 2 }, "TRACE_SAMPLE_RATIO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestStrategy(t *testing.T) {
	t.Parallel()
	require.Equal(t, jwtx.StrategySharedSecret, Config{JWTSecret: "s"}.Strategy())
	require.Equal(t, jwtx.StrategyKeySet, Config{}.Strategy())
}
