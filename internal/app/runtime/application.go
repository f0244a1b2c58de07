// Package runtime wires configuration, storage and the HTTP server into a
// running process.
package runtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	app "github.com/R3E-Network/constants_registry/internal/app"
	"github.com/R3E-Network/constants_registry/internal/app/httpapi"
	"github.com/R3E-Network/constants_registry/internal/app/storage"
	"github.com/R3E-Network/constants_registry/internal/config"
	"github.com/R3E-Network/constants_registry/internal/middleware"
	"github.com/R3E-Network/constants_registry/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	app        *app.Application
	handler    http.Handler
	httpServer *http.Server
	db         *sql.DB
	auditSink  *httpapi.FileAuditSink

	mu       sync.Mutex
	listener net.Listener
	serveErr chan error
}

// NewApplication constructs the process from cfg. version is reported by the
// health endpoint.
func NewApplication(ctx context.Context, cfg *config.Config, version string) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(cfg.Logging)

	store, db, err := buildStore(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("configure storage: %w", err)
	}

	application, err := app.FromStore(store, log.Named("app"))
	if err != nil {
		closeDB(db, log)
		return nil, err
	}

	if strings.TrimSpace(cfg.Auth.Token) == "" {
		log.Warn("CONSTANTS_AUTH_TOKEN not set; every write request will be rejected")
	}

	opts := httpapi.Options{
		Version:     version,
		Gate:        middleware.NewAuthGate(cfg.Auth.Token, log.Named("auth")),
		CORSOrigins: cfg.CORS.Origins(),
		Logger:      log.Named("httpapi"),
	}

	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.IdleTimeout, log.Named("ratelimit"))
		if err := application.Attach(limiter.Janitor(cfg.RateLimit.CleanupInterval)); err != nil {
			closeDB(db, log)
			return nil, err
		}
		opts.Limiter = limiter
	}

	var sink *httpapi.FileAuditSink
	if cfg.Audit.Enabled {
		var auditSink httpapi.AuditSink
		if cfg.Audit.File != "" {
			sink, err = httpapi.NewFileAuditSink(cfg.Audit.File)
			if err != nil {
				closeDB(db, log)
				return nil, fmt.Errorf("open audit file: %w", err)
			}
			auditSink = sink
		}
		opts.Audit = httpapi.NewAuditLog(cfg.Audit.Size, auditSink, log.Named("audit"))
	}

	handler := httpapi.NewHandler(application.Registry, opts)

	return &Application{
		cfg:     cfg,
		log:     log,
		app:     application,
		handler: handler,
		httpServer: &http.Server{
			Handler:      handler,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		db:        db,
		auditSink: sink,
	}, nil
}

// App exposes the composed application.
func (a *Application) App() *app.Application {
	return a.app
}

// Handler exposes the HTTP handler.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Addr reports the bound listen address once Start has succeeded.
func (a *Application) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Start starts background services, binds the listener and serves in the
// background.
func (a *Application) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return errors.New("runtime already started")
	}

	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	ln, err := net.Listen("tcp", a.cfg.Server.Addr())
	if err != nil {
		_ = a.app.Stop(ctx)
		return fmt.Errorf("listen on %s: %w", a.cfg.Server.Addr(), err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	go func(errCh chan<- error) {
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}(a.serveErr)

	a.log.WithField("addr", ln.Addr().String()).
		WithField("driver", a.cfg.Database.Driver).
		Info("HTTP server listening")
	return nil
}

// Run starts the server and blocks until ctx is cancelled or serving fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-a.serveErr:
		return err
	}
}

// Shutdown gracefully shuts down the HTTP server, background services and
// the database.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var errs []error
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if a.auditSink != nil {
		if err := a.auditSink.Close(); err != nil {
			a.log.WithError(err).Warn("error closing audit file")
		}
	}
	closeDB(a.db, a.log)

	return errors.Join(errs...)
}

func buildStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (storage.Store, *sql.DB, error) {
	if cfg.Driver == config.DriverMemory {
		return nil, nil, nil
	}
	db, store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return store, db, nil
}

func closeDB(db *sql.DB, log *logger.Logger) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		log.WithError(err).Warn("error closing database connection")
	}
}
