package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tribe-app/tribe_auth/internal/config"
	"github.com/tribe-app/tribe_auth/internal/diagnostics"
	"github.com/tribe-app/tribe_auth/internal/infra"
	"github.com/tribe-app/tribe_auth/internal/logging"
	"github.com/tribe-app/tribe_auth/internal/routes"
	"github.com/tribe-app/tribe_auth/internal/server"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)
	if envErr != nil {
		logger.Warn(".env file not found, using process environment")
	}
	if !cfg.Privy.Configured() {
		logger.Warn("privy credentials missing; relay endpoints will answer 500")
	}

	ctx := context.Background()

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Info("redis disabled; idempotency and rate limiting are off, wallet reuse is in-process only")
	}

	deps, err := routes.NewDeps(cfg, cache, logger)
	if err != nil {
		logger.Error("build dependencies", "error", err)
		os.Exit(1)
	}

	srv, err := server.New(deps)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	go func() {
		probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		report := deps.Diagnostics.Run(probeCtx)
		logger.Info("startup diagnostics completed", slog.Bool("healthy", report.Healthy()))
	}()

	scheduler := diagnostics.NewScheduler(deps.Diagnostics, logger)
	if err := scheduler.Start(cfg.DiagnosticsSchedule); err != nil {
		logger.Error("schedule diagnostics", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening", "addr", cfg.Address(), "env", cfg.AppEnv)
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
