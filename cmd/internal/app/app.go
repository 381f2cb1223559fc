// Package app wires the tube server runtime: config, logging, metrics,
// persistence, and HTTP routes.
//
// It is intentionally small and deterministic to keep behavior predictable.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tube/cmd/identity"
	authapi "tube/cmd/internal/auth/api"
	"tube/cmd/internal/auth/session"
	"tube/cmd/internal/videos"
	"tube/cmd/security/password"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the tube server runtime. It owns the DB pool and the HTTP wiring.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *HTTPMetrics

	auth *authapi.Handler
	vids *videos.Handler
}

// New constructs a fully wired App instance from config and logger.
//
// Without TUBE_DATABASE_URL the app runs on in-memory stores: full
// functionality, no persistence across restarts. The signing secrets are
// required either way; startup fails without them.
func New(cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		return nil, err
	}
	authCfg := authapi.LoadConfigFromEnv()

	var (
		dbPool     *pgxpool.Pool
		dbEnabled  bool
		userStore  identity.Store
		slotStore  session.Store
		videoStore videos.Store
	)

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		userStore = identity.NewMemoryStore()
		slotStore = session.NewMemoryStore()
		videoStore = videos.NewMemoryStore()
	} else {
		dbPool, err = NewDBPool(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		dbEnabled = true
		log.Info("db.enabled.postgres_store")

		// Ownership model: app owns the pool lifecycle, the stores do not
		// close it.
		users, err := identity.NewPostgresStore(dbPool)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		vids, err := videos.NewPostgresStore(dbPool)
		if err != nil {
			dbPool.Close()
			return nil, err
		}
		userStore = users
		slotStore = session.NewPostgresStore(dbPool)
		videoStore = vids
	}

	sessionSvc, err := session.NewService(sessCfg, slotStore, userStore, pwCfg)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	metrics := NewHTTPMetrics()
	authHandler := authapi.NewHandler(log, authCfg, userStore, sessionSvc, pwCfg, authapi.NewMetrics(metrics.Registerer()))
	videoHandler := videos.NewHandler(log, videoStore, authHandler.RequireAuth, authHandler.OptionalAuth, authCfg.MaxBodyBytes)

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		metrics:   metrics,
		auth:      authHandler,
		vids:      videoHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal
// server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.vids)

	var handler http.Handler = mux
	handler = WithSecurityHeaders(handler)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithHTTPMetrics(handler, a.metrics)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
