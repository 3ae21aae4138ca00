package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/nearbynurse/pkg/jwtx"
	"gopkg.in/yaml.v3"
)

// Config is the gateway's runtime configuration. Values resolve as
// defaults, then the optional CONFIG_FILE, then environment variables.
type Config struct {
	// KeycloakURL is the identity provider base URL. Required.
	KeycloakURL string `yaml:"keycloak_url"`
	Realm       string `yaml:"realm"`
	// Issuer and JWKSURL are derived from KeycloakURL and Realm when empty.
	Issuer  string `yaml:"issuer"`
	JWKSURL string `yaml:"jwks_url"`
	// JWTSecret selects HS256 verification with a shared secret.
	JWTSecret string `yaml:"jwt_secret"`
	ClientID  string `yaml:"client_id"`

	// Admin service account used for registration.
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
	AdminClientID string `yaml:"admin_client_id"`

	FetchesPerMin   int           `yaml:"jwks_fetches_per_minute"`
	UpstreamTimeout time.Duration `yaml:"upstream_timeout"`
	DatabaseFile    string        `yaml:"database_file"`

	// Orphan ledger audit cadence and the age at which an orphan is reported.
	OrphanAuditInterval time.Duration `yaml:"orphan_audit_interval"`
	OrphanStaleAfter    time.Duration `yaml:"orphan_stale_after"`

	Env                 string        `yaml:"env"`
	LogLevel            string        `yaml:"log_level"`
	LogFormat           string        `yaml:"log_format"`
	Port                int           `yaml:"port"`
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`
	// TraceSampleRatio of 0 leaves tracing off.
	TraceSampleRatio float64 `yaml:"trace_sample_ratio"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Realm:               "master",
		ClientID:            "nearbynurse-frontend",
		AdminClientID:       "admin-cli",
		UpstreamTimeout:     10 * time.Second,
		DatabaseFile:        "gateway.db",
		OrphanAuditInterval: time.Hour,
		OrphanStaleAfter:    24 * time.Hour,
		Env:                 "dev",
		LogLevel:            "info",
		LogFormat:           "json",
		Port:                8080,
		ShutdownGracePeriod: 10 * time.Second,
	}
}

// LoadConfig resolves the configuration. Only an unreadable or malformed
// CONFIG_FILE is an error here; call Validate for the rest.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.KeycloakURL = getEnvOrDefault("KEYCLOAK_URL", cfg.KeycloakURL)
	cfg.Realm = getEnvOrDefault("KEYCLOAK_REALM", cfg.Realm)
	cfg.Issuer = getEnvOrDefault("KEYCLOAK_ISSUER", cfg.Issuer)
	cfg.JWKSURL = getEnvOrDefault("KEYCLOAK_JWKS_URL", cfg.JWKSURL)
	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.JWTSecret)
	cfg.ClientID = getEnvOrDefault("KEYCLOAK_CLIENT_ID", cfg.ClientID)
	cfg.AdminUsername = getEnvOrDefault("KEYCLOAK_ADMIN_USERNAME", cfg.AdminUsername)
	cfg.AdminPassword = getEnvOrDefault("KEYCLOAK_ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.AdminClientID = getEnvOrDefault("KEYCLOAK_ADMIN_CLIENT_ID", cfg.AdminClientID)
	cfg.FetchesPerMin = getEnvIntOrDefault("JWKS_FETCHES_PER_MINUTE", cfg.FetchesPerMin)
	cfg.UpstreamTimeout = getEnvDurationOrDefault("UPSTREAM_TIMEOUT", cfg.UpstreamTimeout)
	cfg.DatabaseFile = getEnvOrDefault("DATABASE_FILE", cfg.DatabaseFile)
	cfg.OrphanAuditInterval = getEnvDurationOrDefault("ORPHAN_AUDIT_INTERVAL", cfg.OrphanAuditInterval)
	cfg.OrphanStaleAfter = getEnvDurationOrDefault("ORPHAN_STALE_AFTER", cfg.OrphanStaleAfter)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvIntOrDefault("PORT", cfg.Port)
	cfg.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", cfg.ShutdownGracePeriod)
	cfg.TraceSampleRatio = getEnvFloatOrDefault("TRACE_SAMPLE_RATIO", cfg.TraceSampleRatio)

	cfg.KeycloakURL = strings.TrimSuffix(cfg.KeycloakURL, "/")
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Strategy is the token verification strategy the configuration selects.
func (c Config) Strategy() jwtx.Strategy {
	if c.JWTSecret != "" {
		return jwtx.StrategySharedSecret
	}
	return jwtx.StrategyKeySet
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error

	if c.KeycloakURL == "" {
		errs = append(errs, errors.New("KEYCLOAK_URL is required"))
	}
	if c.JWTSecret != "" && (c.JWKSURL != "" || c.FetchesPerMin != 0) {
		errs = append(errs, errors.New("JWT_SECRET cannot be combined with KEYCLOAK_JWKS_URL or JWKS_FETCHES_PER_MINUTE"))
	}
	if c.FetchesPerMin < 0 {
		errs = append(errs, errors.New("JWKS_FETCHES_PER_MINUTE must not be negative"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		errs = append(errs, errors.New("TRACE_SAMPLE_RATIO must be between 0 and 1"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q is not json or text", c.LogFormat))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds.
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}

	return defaultValue
}
