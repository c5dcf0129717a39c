// Package main is the entry point for the service.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkarlsen/equiploan/internal/adapters/cache"
	httpadapter "github.com/mkarlsen/equiploan/internal/adapters/http"
	"github.com/mkarlsen/equiploan/internal/adapters/http/handlers"
	"github.com/mkarlsen/equiploan/internal/adapters/store"
	"github.com/mkarlsen/equiploan/internal/app"
	"github.com/mkarlsen/equiploan/internal/platform/config"
	"github.com/mkarlsen/equiploan/internal/platform/logging"
	"github.com/mkarlsen/equiploan/internal/platform/telemetry"
	"github.com/mkarlsen/equiploan/internal/ports"
	"github.com/mkarlsen/equiploan/internal/resilience"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the service.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Create the document store client and typed stores
	storeClient, err := store.New(&store.Config{
		BaseURL:   cfg.Store.BaseURL,
		Name:      cfg.Store.Name,
		Timeout:   cfg.Store.Timeout,
		Transport: cfg.Store.Transport,
		AuthFunc:  storeAuth(cfg.Store.APIKey),
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating store client: %w", err)
	}

	if err := healthRegistry.Register(storeClient); err != nil {
		return fmt.Errorf("registering store health check: %w", err)
	}

	equipmentStore := store.NewEquipmentStore(storeClient)
	loanStore := store.NewLoanStore(storeClient)
	reservationStore := store.NewReservationStore(storeClient)
	profileStore := store.NewProfileStore(storeClient)

	// 7. Create resilience executors, one breaker per backend
	storeExec := resilience.NewExecutor("document-store", executorOptions(cfg.Resilience.Store), logger)
	cacheExec := resilience.NewExecutor("settings-cache", executorOptions(cfg.Resilience.Cache), logger)

	// 8. Create the settings cache (optional; services degrade without it)
	var (
		settingsCache ports.Cache
		flags         ports.FeatureFlags
	)
	if cfg.Cache.Enabled {
		redisCache, cacheErr := cache.New(cfg.Cache, logger)
		if cacheErr != nil {
			return fmt.Errorf("creating cache: %w", cacheErr)
		}

		defer func() {
			if closeErr := redisCache.Close(); closeErr != nil {
				logger.Error("cache close error", slog.Any("error", closeErr))
			}
		}()

		if err := healthRegistry.Register(redisCache); err != nil {
			return fmt.Errorf("registering cache health check: %w", err)
		}

		settingsCache = cache.NewResilient(redisCache, cacheExec)
		flags = cache.NewFlags(settingsCache, logger)
	} else {
		logger.Info("settings cache disabled, serving reads from the store only")
	}

	// 9. Create application services
	equipmentService := app.NewEquipmentService(app.EquipmentServiceConfig{
		Equipment: equipmentStore,
		Loans:     loanStore,
		Cache:     settingsCache,
		Exec:      storeExec,
		Logger:    logger,
	})
	loanService := app.NewLoanService(app.LoanServiceConfig{
		Loans:        loanStore,
		Equipment:    equipmentStore,
		Reservations: reservationStore,
		Profiles:     profileStore,
		Flags:        flags,
		Cache:        settingsCache,
		Exec:         storeExec,
		Logger:       logger,
	})
	reservationService := app.NewReservationService(app.ReservationServiceConfig{
		Reservations: reservationStore,
		Equipment:    equipmentStore,
		Flags:        flags,
		Cache:        settingsCache,
		Exec:         storeExec,
		Logger:       logger,
	})
	profileService := app.NewProfileService(app.ProfileServiceConfig{
		Profiles: profileStore,
		Exec:     storeExec,
		Logger:   logger,
	})

	// 10. Create handlers
	buildInfo := handlers.NewBuildInfo(Version, Commit, BuildTime)
	healthHandler := handlers.NewHealthHandler(healthRegistry, buildInfo)

	// 11. Create HTTP server
	server := httpadapter.New(&cfg.Server, logger)

	// 12. Setup router with all middleware and routes
	routerCfg := httpadapter.RouterConfig{
		Logger:        logger,
		AuthConfig:    &cfg.Auth,
		AppConfig:     &cfg.App,
		HealthHandler: healthHandler,
		Equipment:     handlers.NewEquipmentHandler(equipmentService),
		Loans:         handlers.NewLoanHandler(loanService),
		Reservations:  handlers.NewReservationHandler(reservationService),
		Profiles:      handlers.NewProfileHandler(profileService),
		Timeout:       httpadapter.DefaultRequestTimeout,
	}
	httpadapter.SetupRouter(server.Engine(), routerCfg)

	// 13. Start server (non-blocking)
	serverErr := server.Start()

	// 14. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Server.ShutdownTimeout)
}

// executorOptions maps a configured backend policy onto executor options.
func executorOptions(p config.BackendPolicy) resilience.Options {
	return resilience.Options{
		MaxRetries:        p.MaxRetries,
		BaseDelay:         p.BaseDelay,
		MaxDelay:          p.MaxDelay,
		BackoffMultiplier: p.Multiplier,
		JitterEnabled:     p.Jitter,
		BreakerThreshold:  p.BreakerThreshold,
		BreakerTimeout:    p.BreakerTimeout,
	}
}

// storeAuth returns a request decorator carrying the store API key, or nil
// when the store is unauthenticated (local emulator).
func storeAuth(apiKey string) func(*http.Request) {
	if apiKey == "" {
		return nil
	}

	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+apiKey)
	}
}

// waitForShutdown blocks until a shutdown signal is received or server error occurs.
// It then performs graceful shutdown of the HTTP server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *httpadapter.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	// Listen for OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		// Server error during startup or runtime
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Graceful shutdown sequence
	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	// Stop accepting new requests, drain in-flight
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
