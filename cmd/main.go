package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/config-service/config"
	database "github.com/duynhne/config-service/internal/core"
	"github.com/duynhne/config-service/internal/core/domain"
	"github.com/duynhne/config-service/internal/core/repository"
	"github.com/duynhne/config-service/internal/logger"
	logicv1 "github.com/duynhne/config-service/internal/logic/v1"
	"github.com/duynhne/config-service/internal/security/password"
	"github.com/duynhne/config-service/internal/security/token"
	v1 "github.com/duynhne/config-service/internal/web/v1"
	"github.com/duynhne/config-service/middleware"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}

	logger.Setup(cfg.Logging.Level)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Service terminated")
	}
}

// storage bundles the repositories of whichever engine DB_DRIVER selects.
type storage struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	config   domain.ConfigRepository
	close    func()
}

func openStorage(ctx context.Context, cfg config.DatabaseConfig) (*storage, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sqlDB := database.StdlibDB(pool)
		closeAll := func() {
			sqlDB.Close()
			pool.Close()
		}
		if err := database.Migrate(ctx, sqlDB, database.DialectPostgres); err != nil {
			closeAll()
			return nil, err
		}
		return &storage{
			users:    repository.NewUserRepository(pool),
			sessions: repository.NewSessionRepository(pool),
			config:   repository.NewConfigRepository(pool),
			close:    closeAll,
		}, nil

	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db, database.DialectSQLite); err != nil {
			db.Close()
			return nil, err
		}
		return &storage{
			users:    repository.NewSQLiteUserRepository(db),
			sessions: repository.NewSQLiteSessionRepository(db),
			config:   repository.NewSQLiteConfigRepository(db),
			close:    func() { db.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// startTelemetry brings up tracing and profiling as configured. Failures are
// logged and the service runs without them. The returned func flushes both.
func startTelemetry(cfg *config.Config) func(context.Context) {
	var flush []func(context.Context)

	if cfg.Tracing.Enabled {
		tp, err := middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", cfg.Tracing.Endpoint).Msg("Tracing unavailable")
		} else {
			log.Info().Str("endpoint", cfg.Tracing.Endpoint).Float64("sample_rate", cfg.Tracing.SampleRate).Msg("Tracing enabled")
			flush = append(flush, func(ctx context.Context) {
				if err := tp.Shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Flushing spans failed")
				}
			})
		}
	}

	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Str("endpoint", cfg.Profiling.Endpoint).Msg("Profiling unavailable")
		} else {
			log.Info().Str("endpoint", cfg.Profiling.Endpoint).Msg("Profiling enabled")
			flush = append(flush, func(context.Context) { middleware.StopProfiling() })
		}
	}

	return func(ctx context.Context) {
		for _, f := range flush {
			f(ctx)
		}
	}
}

func newRouter(cfg *config.Config, api *v1.Handler, draining *atomic.Bool) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.TracingMiddleware(cfg.Service.Name),
		middleware.LoggingMiddleware(),
		middleware.PrometheusMiddleware(),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// 503 while draining so load balancers stop routing here first.
	r.GET("/ready", func(c *gin.Context) {
		if draining.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "draining"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func run(cfg *config.Config) error {
	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("db_driver", cfg.Database.Driver).
		Msg("Booting")

	flushTelemetry := startTelemetry(cfg)

	// Created before storage so a signal also aborts the connect retry loop.
	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := openStorage(sigCtx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.close()

	passwords, err := password.New(cfg.Password.BcryptCost, cfg.Password.MaxConcurrent)
	if err != nil {
		return fmt.Errorf("password store: %w", err)
	}
	codec, err := token.NewCodec(cfg.Session.TokenBytes)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}

	auth := logicv1.NewAuthService(store.users, store.sessions, passwords, codec, logicv1.Options{
		BaseLifetime:        cfg.Session.BaseLifetime,
		LongLivedMultiplier: cfg.Session.LongLivedMultiplier,
		SweepOnIssue:        cfg.Session.SweepOnIssue,
	})

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		logicv1.NewSweeper(auth, cfg.Session.SweepInterval).Run(sweepCtx)
	}()

	var draining atomic.Bool
	handler := v1.NewHandler(auth, logicv1.NewConfigService(store.config))
	srv := &http.Server{
		Addr:              ":" + cfg.Service.Port,
		Handler:           newRouter(cfg, handler, &draining),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stopSweep()
		<-sweepDone
		return fmt.Errorf("http server: %w", err)
	case <-sigCtx.Done():
	}

	log.Info().Msg("Signal received, draining")
	draining.Store(true)
	if d := cfg.GetReadinessDrainDelayDuration(); d > 0 {
		time.Sleep(d)
	}

	timeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Dur("timeout", timeout).Msg("HTTP server did not stop cleanly")
	}

	// The sweeper must stop before the deferred store.close runs.
	stopSweep()
	<-sweepDone

	flushTelemetry(shutdownCtx)
	log.Info().Msg("Stopped")
	return nil
}
