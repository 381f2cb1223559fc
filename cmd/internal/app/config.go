package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string // "json" or "pretty"

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("TUBE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("TUBE_LOG_LEVEL", "info"),
		LogFormat: EnvString("TUBE_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("TUBE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TUBE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TUBE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TUBE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("TUBE_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("TUBE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("TUBE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("TUBE_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("TUBE_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvStringList("TUBE_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("TUBE_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("TUBE_CORS_MAX_AGE_SECONDS", 600),
	}
}
