package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// JWTSecret signs session tokens. Must be overridden in production.
	JWTSecret string
	// SessionLifetime bounds a normal session; RememberLifetime applies when
	// the login request sets the remember flag.
	SessionLifetime  time.Duration
	RememberLifetime time.Duration

	// BcryptCost is the work factor for locally stored credentials. Tests and
	// development use a low cost so suites stay fast.
	BcryptCost int

	// PAMService is the PAM service (realm) name consulted for delegated
	// accounts. PAMTimeout bounds the blocking host-auth call.
	PAMService string
	PAMTimeout time.Duration
}

// Load reads env vars and falls back to defaults so the server can boot with zero configuration.
func Load() (Config, error) {
	cfg := Config{
		Environment:      getEnv("LABPORTAL_ENV", "development"),
		HTTPPort:         getEnv("LABPORTAL_HTTP_PORT", "8080"),
		DatabasePath:     getEnv("LABPORTAL_DB_PATH", filepath.Join("data", "labportal.db")),
		JWTSecret:        getEnv("LABPORTAL_JWT_SECRET", "dev-secret-change-in-production"),
		SessionLifetime:  time.Duration(getEnvInt("LABPORTAL_SESSION_HOURS", 24)) * time.Hour,
		RememberLifetime: time.Duration(getEnvInt("LABPORTAL_REMEMBER_DAYS", 7)) * 24 * time.Hour,
		BcryptCost:       getEnvInt("LABPORTAL_BCRYPT_COST", bcrypt.DefaultCost),
		PAMService:       getEnv("LABPORTAL_PAM_SERVICE", "login"),
		PAMTimeout:       time.Duration(getEnvInt("LABPORTAL_PAM_TIMEOUT_SECONDS", 5)) * time.Second,
	}

	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return Config{}, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cfg.BcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}

	return fallback
}
