package authapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"
)

// Config controls auth API behavior and cookie transport defaults.
type Config struct {
	MaxBodyBytes int64

	AccessCookieName  string
	RefreshCookieName string
	CookiePath        string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite
}

// LoadConfigFromEnv loads auth API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		MaxBodyBytes:      envInt64("TUBE_AUTH_MAX_BODY_BYTES", 1<<20), // 1 MiB
		AccessCookieName:  envString("TUBE_AUTH_ACCESS_COOKIE", "accessToken"),
		RefreshCookieName: envString("TUBE_AUTH_REFRESH_COOKIE", "refreshToken"),
		CookiePath:        envString("TUBE_AUTH_COOKIE_PATH", "/"),
		CookieDomain:      envString("TUBE_AUTH_COOKIE_DOMAIN", ""),
		CookieSecure:      envBool("TUBE_AUTH_COOKIE_SECURE", true),
		CookieSameSite:    envSameSite("TUBE_AUTH_COOKIE_SAMESITE", http.SameSiteLaxMode),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.AccessCookieName == "" {
		cfg.AccessCookieName = "accessToken"
	}
	if cfg.RefreshCookieName == "" {
		cfg.RefreshCookieName = "refreshToken"
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envSameSite(key string, def http.SameSite) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return def
	}
}
