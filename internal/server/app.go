// Package server provides application wiring and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/webroll/webroll/internal/api"
	"github.com/webroll/webroll/internal/capture"
	"github.com/webroll/webroll/internal/clock/system"
	"github.com/webroll/webroll/internal/config"
	"github.com/webroll/webroll/internal/dispatch"
	"github.com/webroll/webroll/internal/id/uuid"
	"github.com/webroll/webroll/internal/logging"
	"github.com/webroll/webroll/internal/metrics"
	"github.com/webroll/webroll/internal/registry"
	"github.com/webroll/webroll/internal/session"
	memorystorage "github.com/webroll/webroll/internal/storage/memory"
	pgstorage "github.com/webroll/webroll/internal/storage/postgres"
	"github.com/webroll/webroll/internal/worker"
)

// App contains the application's dependencies.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	apiServer *api.Server
	registry  *registry.Registry
	workers   []*worker.Worker
	pgStore   *pgstorage.Store
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("workers", len(cfg.Workers)),
		zap.String("policy", cfg.Dispatch.Policy),
	)

	reg, err := registry.New(cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("registry init failed: %w", err)
	}
	app.registry = reg

	selector, err := registry.NewSelector(reg, cfg.Dispatch.Policy)
	if err != nil {
		return nil, fmt.Errorf("selector init failed: %w", err)
	}

	var users capture.UserStore
	var captures capture.CaptureStore
	if cfg.DB.DSN != "" {
		logger.Info("using postgres storage backend")
		store, err := pgstorage.NewStore(ctx, pgstorage.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres init failed: %w", err)
		}
		app.pgStore = store
		users = store
		captures = store
	} else {
		logger.Info("using in-memory storage backend")
		users = memorystorage.NewUserStore()
		captures = memorystorage.NewCaptureStore()
	}

	idGen := uuid.New()
	clock := system.New()
	sessions := session.NewStore()

	coordinator := dispatch.NewCoordinator(selector, idGen, clock, captures, logger.Named("dispatch"))
	batches := dispatch.NewBatchCoordinator(coordinator, idGen, logger.Named("batch"))

	performer := worker.NewLogPerformer(logger.Named("perform"))
	for _, entry := range reg.Entries() {
		app.workers = append(app.workers, worker.New(
			entry.Nickname,
			entry.Queue(),
			performer,
			coordinator,
			logger.Named("worker"),
		))
	}

	app.apiServer = api.NewServer(users, captures, sessions, coordinator, batches, logger.Named("api"))
	return app, nil
}

// Run starts the worker loops and the HTTP server, blocking until the context
// is canceled or a signal arrives.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, w := range a.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}

	a.registry.Close()
	wg.Wait()
	return a.Close()
}

// Close gracefully shuts down the application's backing services.
func (a *App) Close() error {
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if err := a.logger.Sync(); err != nil {
		// Sync to stderr commonly fails on ttys; nothing useful to do.
		return nil
	}
	a.logger.Info("shutdown complete")
	return nil
}
