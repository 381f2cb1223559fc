package session

import (
	"crypto/subtle"
	"os"
	"strings"
	"time"
)

const minSecretBytes = 32

// Config defines all runtime configuration for the session subsystem.
//
// It controls token TTLs and the two HS256 signing secrets. The secrets are
// process-wide state: they must be set before any token is issued or
// verified and are never mutated at runtime. One secret per token class
// means a refresh-class token can never validate as an access-class token
// and vice versa.
type Config struct {
	// Issuer is the value set in the "iss" claim of issued tokens.
	Issuer string

	// AccessTokenTTL defines the lifetime of access tokens (minutes scale).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL defines the lifetime of refresh tokens (days scale).
	RefreshTokenTTL time.Duration

	// AccessSecret signs access-class tokens. Min 32 bytes.
	AccessSecret []byte

	// RefreshSecret signs refresh-class tokens. Min 32 bytes, must differ
	// from AccessSecret.
	RefreshSecret []byte
}

// DefaultConfig returns defaults suitable for development. The signing
// secrets are intentionally absent; production loads them from env and
// startup fails without them.
func DefaultConfig() Config {
	return Config{
		Issuer:          "tube",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
	}
}

// Validate checks the invariants NewCodec and NewService rely on.
func (c Config) Validate() error {
	if c.Issuer == "" || c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrConfig
	}
	if len(c.AccessSecret) < minSecretBytes || len(c.RefreshSecret) < minSecretBytes {
		return ErrConfig
	}
	if len(c.AccessSecret) == len(c.RefreshSecret) &&
		subtle.ConstantTimeCompare(c.AccessSecret, c.RefreshSecret) == 1 {
		return ErrConfig
	}
	return nil
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Required:
//   - TUBE_AUTH_ACCESS_SECRET  (min 32 bytes)
//   - TUBE_AUTH_REFRESH_SECRET (min 32 bytes, distinct from the access secret)
//
// Optional (durations must be valid Go duration strings):
//   - TUBE_AUTH_ISSUER
//   - TUBE_AUTH_ACCESS_TTL
//   - TUBE_AUTH_REFRESH_TTL
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("TUBE_AUTH_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("TUBE_AUTH_ACCESS_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.AccessTokenTTL = d
	}

	if v := os.Getenv("TUBE_AUTH_REFRESH_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RefreshTokenTTL = d
	}

	cfg.AccessSecret = []byte(strings.TrimSpace(os.Getenv("TUBE_AUTH_ACCESS_SECRET")))
	cfg.RefreshSecret = []byte(strings.TrimSpace(os.Getenv("TUBE_AUTH_REFRESH_SECRET")))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
