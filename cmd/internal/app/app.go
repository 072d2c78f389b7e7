// Package app wires the TaskFlow server runtime: config, logging, storage,
// HTTP routes, and the task event gateway.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"taskflow/cmd/identity"
	"taskflow/cmd/internal/auth/access"
	authapi "taskflow/cmd/internal/auth/api"
	"taskflow/cmd/internal/realtime"
	"taskflow/cmd/internal/tasks"
	taskapi "taskflow/cmd/internal/tasks/api"
	"taskflow/cmd/security/token"
)

// App is the TaskFlow server runtime. It owns the database handle (when
// configured) and every HTTP-facing component.
type App struct {
	cfg Config
	log Logger

	db      *Database
	metrics *Metrics

	users *identity.Service
	tasks *tasks.Service
	guard *access.Guard
	hub   *realtime.Hub

	handler http.Handler
}

// New constructs a fully wired App. With an empty DatabaseURL every store
// lives in memory and nothing survives a restart.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	if err := ValidateSecurityConfig(cfg); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, metrics: NewMetrics()}

	userStore, taskStore, err := a.openStores(ctx)
	if err != nil {
		return nil, err
	}

	if err := a.wire(userStore, taskStore); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openStores(ctx context.Context) (identity.Store, tasks.Store, error) {
	if a.cfg.DatabaseURL == "" {
		a.log.Info("db.disabled.memory_store")
		return identity.NewMemoryStore(), tasks.NewMemoryStore(), nil
	}

	db, err := OpenDatabase(ctx, a.cfg)
	if err != nil {
		return nil, nil, err
	}
	a.db = db
	a.log.Info("db.enabled.postgres_store", "schema", a.cfg.DBSchema, "migrated", a.cfg.RunMigrations)

	users, err := identity.NewPostgresStore(db.SQL, identity.WithSchema(a.cfg.DBSchema))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	taskStore, err := tasks.NewPostgresStore(db.SQL, tasks.WithSchema(a.cfg.DBSchema))
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return users, taskStore, nil
}

func (a *App) wire(userStore identity.Store, taskStore tasks.Store) error {
	users, err := identity.NewService(userStore, a.cfg.Password)
	if err != nil {
		return err
	}
	codec, err := token.NewCodec(a.cfg.SecretKey)
	if err != nil {
		return err
	}
	auth, err := access.NewAuthenticator(userStore, a.cfg.Password, codec, a.cfg.AccessTokenTTL)
	if err != nil {
		return err
	}
	guard, err := access.NewGuard(userStore, codec)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(a.log, realtime.WithDeliveryCounter(a.metrics.EventDeliveries))
	taskSvc, err := tasks.NewService(taskStore, tasks.WithPublisher(hub))
	if err != nil {
		return err
	}

	authHandler, err := authapi.NewHandler(a.log,
		authapi.Config{MaxBodyBytes: a.cfg.MaxBodyBytes, TrustProxy: a.cfg.TrustProxy},
		users, auth, guard,
		authapi.WithAuditCounter(a.metrics.AuditEvents),
	)
	if err != nil {
		return err
	}
	taskHandler, err := taskapi.NewHandler(a.log, a.cfg.MaxBodyBytes, taskSvc, guard)
	if err != nil {
		return err
	}
	ws, err := realtime.NewWSGateway(a.log, a.cfg.WS, hub, guard)
	if err != nil {
		return err
	}

	a.users, a.tasks, a.guard, a.hub = users, taskSvc, guard, hub

	mux := http.NewServeMux()
	registerHTTP(mux, routes{
		log:     a.log,
		cfg:     a.cfg,
		db:      a.db,
		metrics: a.metrics,
		ws:      ws,
		auth:    authHandler,
		tasks:   taskHandler,
	})

	var h http.Handler = mux
	h = WithCORS(h, a.cfg, a.log)
	h = WithSecurityHeaders(h)
	h = WithRequestLogging(h, a.log, a.metrics)
	h = WithRequestID(h)
	a.handler = h
	return nil
}

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Users exposes the account service for seeding.
func (a *App) Users() *identity.Service { return a.users }

// Tasks exposes the task service for seeding.
func (a *App) Tasks() *tasks.Service { return a.tasks }

// Close releases the database handle. It is safe to call more than once.
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down gracefully and releases the database.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	base := runtimeBaseURL(a.cfg.HTTPAddr)
	a.log.Info("server.start",
		"addr", a.cfg.HTTPAddr,
		"api", base+a.cfg.APIPrefix,
		"ws", wsBaseURL(base)+wsPath,
		"db_enabled", a.db != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("server.fail", "err", err)
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("server.stop", "reason", "context_done")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), nonZeroDuration(a.cfg.ShutdownTimeout, 10*time.Second))
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
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

// runtimeBaseURL turns a listen address into a URL a local client can dial.
// Wildcard binds map to the IPv4 loopback.
func runtimeBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		return "http://" + strings.TrimSpace(addr)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// wsBaseURL maps an http(s) base URL onto ws(s). A bare host:port is treated as http.
func wsBaseURL(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "ws://" + strings.TrimPrefix(strings.TrimPrefix(base, "http://"), "https://")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String()
}
