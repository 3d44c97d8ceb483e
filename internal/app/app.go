package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/GlebRadaev/partshub/internal/config"
	"github.com/GlebRadaev/partshub/internal/gateway"
	"github.com/GlebRadaev/partshub/internal/handlers"
	"github.com/GlebRadaev/partshub/internal/notify"
	"github.com/GlebRadaev/partshub/internal/pg"
	"github.com/GlebRadaev/partshub/internal/repo"
	"github.com/GlebRadaev/partshub/internal/service"
	"github.com/GlebRadaev/partshub/pkg/clients"
	"github.com/GlebRadaev/partshub/pkg/logger"
	"github.com/GlebRadaev/partshub/pkg/ratelimit"
)

const shutdownTimeout = 5 * time.Second

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	cfg      *config.Config
	pool     *pgxpool.Pool
	api      *handlers.Handlers
	srv      *service.Services
	repo     *repo.Repositories
	notifier *notify.Dispatcher
	limiter  *ratelimit.Limiter
	ext      *gateway.Reconciler

	errCh chan error
	wg    sync.WaitGroup
	bg    sync.WaitGroup
	ready bool
}

func New() *Application {
	return &Application{
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		zap.L().Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	if err := pg.RunMigrations(ctx, pool); err != nil {
		zap.L().Error("migrations failed: ", zap.Error(err))
		pool.Close()
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)
	httpClient := clients.NewHTTPClient()

	a.cfg = cfg
	a.pool = pool
	a.repo = repo.New(pg.New(pool))
	a.notifier = notify.NewDispatcher(cfg.NotifyURL, httpClient)
	a.srv = service.New(cfg, a.repo, txManager, a.notifier)
	a.limiter = ratelimit.New(cfg.TrackRateRPS, cfg.TrackRateBurst)
	a.api = handlers.New(cfg, a.srv, a.limiter)
	a.ext = gateway.New(cfg, a.srv.Settlement, httpClient)

	a.startBackground(ctx)

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}

	a.ready = true
	zap.L().Info("all systems started successfully")
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sCtx); err != nil {
			zap.L().Error("http server shutdown failed", zap.Error(err))
		}
		// Handlers and the reconciler may still enqueue notifications and use the pool.
		a.bg.Wait()
		a.notifier.Close()
		a.pool.Close()
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

// startBackground runs the gateway reconciler and the tracking limiter janitor until ctx is done.
func (a *Application) startBackground(ctx context.Context) {
	a.bg.Add(2)
	go func() {
		defer a.bg.Done()
		a.ext.Start(ctx)
	}()
	go func() {
		defer a.bg.Done()
		a.limiter.Run(ctx)
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	return appErr
}
