package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvConfig struct {
	Port                string `envconfig:"PORT" default:"8000"`
	BaseURL             string `envconfig:"BASE_URL" required:"true"`
	AuthSecret          string `envconfig:"AUTH_SECRET" required:"true"`
	Environment         string `envconfig:"ENVIRONMENT" default:"development"`
	AccessTokenTTL      int    `envconfig:"ACCESS_TOKEN_TTL" default:"3600"`
	RefreshTokenTTL     int    `envconfig:"REFRESH_TOKEN_TTL" default:"604800"` // 7 days
	RotateRefreshTokens bool   `envconfig:"ROTATE_REFRESH_TOKENS" default:"false"`
	ValkeyAddr          string `envconfig:"VALKEY_ADDR"`
	ValkeyPassword      string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB            int    `envconfig:"VALKEY_DB" default:"0"`
}

// IsDev reports whether ENVIRONMENT names a development run. Unset counts as
// development.
func IsDev() bool {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	return env == "development" || env == "dev" || env == ""
}

func ValidateEnv() (*EnvConfig, error) {
	if IsDev() {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *EnvConfig) Validate() error {
	var errors []string

	if len(c.AuthSecret) < 32 {
		errors = append(errors, "  ❌ AUTH_SECRET must be at least 32 characters")
	}

	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		errors = append(errors, "  ❌ BASE_URL must be a valid URL")
	}

	if c.AccessTokenTTL <= 0 {
		errors = append(errors, "  ❌ ACCESS_TOKEN_TTL must be positive")
	}

	if c.RefreshTokenTTL < c.AccessTokenTTL {
		errors = append(errors, "  ❌ REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}

	if len(errors) > 0 {
		return fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}
	return nil
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Base URL: %s\n", c.BaseURL)
	fmtr("  Auth Secret: %s\n", MaskSecret(c.AuthSecret))
	fmtr("  Access TTL: %ds\n", c.AccessTokenTTL)
	fmtr("  Refresh TTL: %ds (rotate=%t)\n", c.RefreshTokenTTL, c.RotateRefreshTokens)

	if c.ValkeyAddr != "" {
		fmtr("  Storage: valkey at %s (db %d)\n", c.ValkeyAddr, c.ValkeyDB)
	} else {
		fmtr("  Storage: in-memory\n")
	}
}
