package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/topicnav/internal/bounds"
	"github.com/ethpandaops/topicnav/internal/config"
	"github.com/ethpandaops/topicnav/internal/navigator"
	"github.com/ethpandaops/topicnav/internal/playback"
	"github.com/ethpandaops/topicnav/internal/ratelimit"
	"github.com/ethpandaops/topicnav/internal/redis"
	"github.com/ethpandaops/topicnav/internal/server"
	"github.com/ethpandaops/topicnav/internal/session"
	"github.com/ethpandaops/topicnav/internal/version"
)

// infrastructure holds core infrastructure components.
type infrastructure struct {
	// redisClient is nil unless a configured feature needs Redis.
	redisClient redis.Client
}

// services holds application services.
type services struct {
	catalog  *playback.Player
	sessions session.Manager
	limiter  ratelimit.Service
}

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup logger
	logger := setupLogger()

	// Create application context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load and validate configuration
	cfg, err := loadAndValidateConfig(ctx, logger, *configPath)
	if err != nil {
		logger.WithError(err).Fatal("Configuration error")
	}

	// Setup infrastructure (redis)
	infra, err := setupInfrastructure(ctx, logger, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Infrastructure setup failed")
	}

	// Setup services (recording, sessions, rate limiting)
	svc, err := setupServices(ctx, logger, cfg, infra)
	if err != nil {
		logger.WithError(err).Fatal("Service setup failed")
	}

	// Start HTTP server
	srv := startServer(cfg, logger, svc)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	// Cancel application context to signal all services to stop
	cancel()

	// Perform graceful shutdown
	shutdownGracefully(logger, cfg, srv, svc, infra)
}

// setupLogger creates and configures the application logger.
func setupLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		ForceColors:   true,
		FullTimestamp: true,
	})

	logger.WithFields(logrus.Fields{
		"version":    version.Short(),
		"git_commit": version.GitCommit,
		"build_date": version.BuildDate,
	}).Info("Starting...")

	return logger
}

// loadAndValidateConfig loads the configuration file and validates it.
func loadAndValidateConfig(
	_ context.Context,
	logger *logrus.Logger,
	configPath string,
) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// Set log level from config
	level, parseErr := logrus.ParseLevel(cfg.Server.LogLevel)
	if parseErr != nil {
		logger.WithError(parseErr).Warn("Invalid log level, using info")

		level = logrus.InfoLevel
	}

	logger.SetLevel(level)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"port":          cfg.Server.Port,
		"log_level":     cfg.Server.LogLevel,
		"recording":     cfg.Recording.Path,
		"bounds":        cfg.Bounds.Backend,
		"rate_limiting": cfg.RateLimiting.Enabled,
	}).Info("Configuration loaded")

	return cfg, nil
}

// setupInfrastructure initializes Redis when the boundary cache or the rate
// limiter needs it.
func setupInfrastructure(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
) (*infrastructure, error) {
	infra := &infrastructure{}

	if !cfg.RequiresRedis() {
		return infra, nil
	}

	redisClient := redis.NewClient(logger, redis.Config{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
	})

	if err := redisClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start Redis client: %w", err)
	}

	infra.redisClient = redisClient

	return infra, nil
}

// setupServices loads the recording and starts the session manager and the
// rate limiter.
func setupServices(
	ctx context.Context,
	logger *logrus.Logger,
	cfg *config.Config,
	infra *infrastructure,
) (*services, error) {
	events, err := playback.Load(ctx, cfg.Recording.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording: %w", err)
	}

	playerOpts := playback.Options{TopicStats: cfg.Recording.TopicStats}

	svc := &services{
		// The topics listing always carries statistics.
		catalog: playback.NewPlayer(logger, events, playback.Options{TopicStats: true}),
	}

	logger.WithFields(logrus.Fields{
		"events": len(events),
		"topics": len(svc.catalog.Topics()),
	}).Info("Recording loaded")

	svc.sessions = session.NewManager(
		logger,
		session.Config{
			IdleTimeout:   cfg.Sessions.IdleTimeout,
			SweepInterval: cfg.Sessions.SweepInterval,
			MaxSessions:   cfg.Sessions.MaxSessions,
		},
		navigator.Config{
			TargetMessagesInWindow: cfg.Navigation.TargetMessagesInWindow,
			WindowCount:            cfg.Navigation.WindowCount,
			ScanTimeout:            cfg.Navigation.ScanTimeout,
			SupersedeInFlight:      cfg.Navigation.SupersedeInFlight,
		},
		events,
		playerOpts,
		cacheFactory(logger, cfg, infra),
	)

	if err := svc.sessions.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start session manager: %w", err)
	}

	if cfg.RateLimiting.Enabled {
		svc.limiter = ratelimit.NewService(logger, infra.redisClient, cfg.RateLimiting.FailureMode)

		if err := svc.limiter.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start rate limiter: %w", err)
		}
	}

	return svc, nil
}

// cacheFactory returns the boundary cache constructor of the configured
// backend. Sessions use their id as cache namespace.
func cacheFactory(logger *logrus.Logger, cfg *config.Config, infra *infrastructure) session.CacheFactory {
	if cfg.Bounds.Backend != config.BoundsBackendRedis {
		return func(string) bounds.Cache {
			return bounds.NewMemoryCache()
		}
	}

	boundsCfg := bounds.Config{
		Backend:      cfg.Bounds.Backend,
		TTL:          cfg.Bounds.TTL,
		MergeRetries: cfg.Bounds.MergeRetries,
	}

	return func(namespace string) bounds.Cache {
		return bounds.NewRedisCache(logger, boundsCfg, infra.redisClient, namespace)
	}
}

// startServer creates and starts the HTTP server.
func startServer(
	cfg *config.Config,
	logger *logrus.Logger,
	svc *services,
) *server.Server {
	srv := server.New(logger, cfg, server.Dependencies{
		Catalog:  svc.catalog,
		Sessions: svc.sessions,
		Limiter:  svc.limiter,
	})

	// Start server in goroutine
	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server starting")

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server error")
		}
	}()

	return srv
}

// shutdownGracefully performs graceful shutdown of all services.
// Shutdown order:
// 1. HTTP server (stop accepting requests).
// 2. Sessions (cancel navigation, drop cached boundaries).
// 3. Rate limiter.
// 4. Redis client (close connections).
func shutdownGracefully(
	logger *logrus.Logger,
	cfg *config.Config,
	srv *server.Server,
	svc *services,
	infra *infrastructure,
) {
	logger.Info("Initiating graceful shutdown...")

	// Create a timeout context for the shutdown process
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Error during server shutdown")
	}

	// Stop sessions
	if err := svc.sessions.Stop(); err != nil {
		logger.WithError(err).Error("Error stopping session manager")
	}

	if svc.limiter != nil {
		if err := svc.limiter.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping rate limiter")
		}
	}

	// Stop Redis client (closes connections)
	if infra.redisClient != nil {
		if err := infra.redisClient.Stop(); err != nil {
			logger.WithError(err).Error("Error stopping Redis client")
		}
	}

	logger.Info("Server stopped gracefully")
}
