package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"superrider-be/internal/config"
	"superrider-be/internal/db"
	"superrider-be/internal/httpapi"
	"superrider-be/internal/location"
	"superrider-be/internal/logger"
	"superrider-be/internal/metrics"
	"superrider-be/internal/middleware"
	"superrider-be/internal/order"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// swapped in tests
var (
	loadConfigFunc = config.LoadConfig
	initDBFunc     = db.InitDB
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		logger.L().Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(ctx context.Context) error {
	cfg, err := loadConfigFunc()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.AppEnv)
	log := logger.L()

	repo, closeRepo, err := newRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	var seed *order.Snapshot
	if cfg.SeedDemo {
		seed = order.DemoSeed()
	}
	store := order.NewStore(repo)
	if err := store.Init(ctx, seed); err != nil {
		return fmt.Errorf("init order store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	hub := location.NewHub(cfg.LocationBuffer)
	defer hub.Close()

	emitter := location.NewEmitter(hub, location.EmitterConfig{
		OrderID:  cfg.LocationOrderID,
		Interval: cfg.LocationInterval,
	})
	go func() {
		if err := emitter.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("location emitter stopped", zap.Error(err))
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	router := httpapi.NewRouter(httpapi.Deps{
		Store:       store,
		Hub:         hub,
		Gatherer:    reg,
		Limiter:     limiter,
		CORSOrigins: cfg.CORSOrigins,
		CheckOrigin: middleware.OriginChecker(cfg.CORSOrigins),
	})

	return serve(ctx, newServer(cfg, router))
}

// newRepository picks the persistence backend. The returned func releases it.
func newRepository(cfg *config.Config) (order.Repository, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		database, err := initDBFunc(cfg)
		if err != nil {
			return nil, nil, err
		}
		return order.NewRepository(database, cfg.StoreKey), func() { closeDB(database) }, nil
	default:
		return order.NewFileRepository(cfg.StorePath, cfg.StoreKey), func() {}, nil
	}
}

func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		logger.L().Warn("failed to close DB", zap.Error(err))
	}
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// serve runs srv until ctx is cancelled, then drains it.
func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		logger.L().Info("🚀 server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.L().Info("server shutdown complete")
	return nil
}
