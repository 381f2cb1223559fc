package app

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func setTestSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("TUBE_AUTH_ACCESS_SECRET", "test-access-secret-0123456789abcdef")
	t.Setenv("TUBE_AUTH_REFRESH_SECRET", "test-refresh-secret-0123456789abcde")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TUBE_HTTP_ADDR", "")
	t.Setenv("TUBE_LOG_LEVEL", "")
	t.Setenv("TUBE_DATABASE_URL", "")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "0.0.0.0:8080" || cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.MaxHeaderBytes != 1<<20 {
		t.Fatalf("http defaults: %+v", cfg)
	}
	if cfg.DBMaxConns != 10 || cfg.ReadinessRequireDB {
		t.Fatalf("db defaults: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("TUBE_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("TUBE_LOG_FORMAT", "pretty")
	t.Setenv("TUBE_CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := LoadConfig()
	if cfg.HTTPAddr != "127.0.0.1:9999" || cfg.LogFormat != "pretty" {
		t.Fatalf("overrides: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestNewFailsWithoutSecrets(t *testing.T) {
	t.Setenv("TUBE_AUTH_ACCESS_SECRET", "")
	t.Setenv("TUBE_AUTH_REFRESH_SECRET", "")

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := New(Config{}, log); err == nil {
		t.Fatalf("expected startup failure without signing secrets")
	}
}

func TestNewMemoryModeServesHealthAndAuth(t *testing.T) {
	setTestSecrets(t)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(Config{}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.dbEnabled {
		t.Fatalf("memory mode must not report db enabled")
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.vids)

	for path, want := range map[string]int{
		"/healthz": http.StatusOK,
		"/readyz":  http.StatusOK,
		"/metrics": http.StatusOK,
	} {
		rr := httptest.NewRecorder()
		mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != want {
			t.Fatalf("%s: expected %d, got %d", path, want, rr.Code)
		}
	}

	// Auth routes are live against the in-memory stores.
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("/auth/me without token: expected 401, got %d", rr.Code)
	}
}

func TestReadyzRequiresDBWhenConfigured(t *testing.T) {
	setTestSecrets(t)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := New(Config{ReadinessRequireDB: true}, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.vids)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz without db: expected 503, got %d", rr.Code)
	}
}
