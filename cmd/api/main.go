// Package main is the entry point for the riverlog API server.
//
// It loads configuration from the environment, connects the PostgreSQL
// pool, wires the domain services (auth, hydro, weather), mounts the HTTP
// routes on the core chassis, and starts the background scheduler alongside
// the listener.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"riverlog/internal/api/handlers"
	"riverlog/internal/auth"
	"riverlog/internal/config"
	"riverlog/internal/core"
	"riverlog/internal/db"
	"riverlog/internal/hydro"
	"riverlog/internal/scheduler"
	"riverlog/internal/weather"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on
// error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("riverlog API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Pinger = pool

	// Repositories.
	users := db.NewUserRepository(pool)
	sessions := db.NewSessionRepository(pool)
	entries := db.NewEntryRepository(pool)
	rivers := db.NewRiverRepository(pool)
	licenses := db.NewLicenseRepository(pool)
	alerts := db.NewAlertRepository(pool)
	flowCache := db.NewFlowCacheRepository(pool)
	security := db.NewSecurityRepository(pool)

	// Auth stack. The same Service backs both the login endpoints and the
	// session-cookie middleware.
	sessionSvc := auth.NewSessionService(
		sessions,
		auth.NewCryptoTokenGenerator(),
		auth.SessionConfig{
			SessionDuration: cfg.Auth.SessionDuration,
			SessionIDPrefix: "sess_",
		},
		nil,
		logger,
	)
	securitySvc := auth.NewSecurityService(security, auth.SecurityConfig{
		IPBlockThreshold:         auth.DefaultSecurityConfig().IPBlockThreshold,
		IdentifierBlockThreshold: cfg.Security.MaxFailedAttempts,
		WindowDuration:           cfg.Security.AttemptWindow,
	}, nil, logger)
	authSvc := auth.NewService(auth.ServiceConfig{
		UserRepo:       users,
		SessionService: sessionSvc,
		Protector:      auth.NewBruteForceProtector(securitySvc),
		BcryptCost:     cfg.Auth.BcryptCost,
		Logger:         logger,
	})
	srv.Authenticator = authSvc

	// Hydro stack: USGS gauge client, flow resolver with the DB-backed
	// series cache, and the refresher that drives alerts.
	usgs := hydro.NewUSGSClient(cfg.USGS, logger)
	resolver := hydro.NewResolver(usgs, flowCache, nil, logger)
	refresher := hydro.NewRefresher(resolver, rivers, alerts, cfg.Scheduler.RefreshStagger, nil, logger)

	weatherSvc := weather.NewProvider(cfg.Weather, nil, logger)

	// HTTP handlers.
	cookieSettings := handlers.CookieSettings{
		Secure:   cfg.Auth.CookieSecure,
		Domain:   cfg.Auth.CookieDomain,
		Duration: cfg.Auth.SessionDuration,
	}
	authHandler := handlers.NewAuthHandler(authSvc, users, cookieSettings, srv.Validator, logger)
	profileHandler := handlers.NewProfileHandler(users, srv.Validator, logger)
	entryHandler := handlers.NewEntryHandler(entries, resolver, weatherSvc, srv.Validator, nil, logger)
	riverHandler := handlers.NewRiverHandler(rivers, refresher, alerts, srv.Validator, nil, logger)
	licenseHandler := handlers.NewLicenseHandler(licenses, srv.Validator, nil, logger)
	envHandler := handlers.NewEnvironmentHandler(resolver, weatherSvc, nil, logger)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		authHandler.RegisterRoutes,
		profileHandler.RegisterRoutes,
		entryHandler.RegisterRoutes,
		riverHandler.RegisterRoutes,
		licenseHandler.RegisterRoutes,
		envHandler.RegisterRoutes,
	)
	srv.MountRoutes()

	// Background jobs.
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(cfg.Scheduler,
			scheduler.NewRiverRefreshJob(refresher, logger),
			scheduler.NewMaintenanceJob(sessions, flowCache, logger),
			scheduler.NewLicenseScanJob(licenses, cfg.Scheduler.LicenseExpiryAhead, logger),
			nil,
			logger,
		)
		sched.Start()
		logger.Info("scheduler started",
			"river_refresh", cfg.Scheduler.RiverRefreshSpec,
			"session_sweep", cfg.Scheduler.SessionSweepSpec,
			"license_scan", cfg.Scheduler.LicenseScanSpec,
		)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler shutdown incomplete", "error", err)
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return srv.Shutdown(shutdownCtx)
}

// newPool builds the pgx connection pool from the database configuration
// and verifies connectivity before returning it.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
