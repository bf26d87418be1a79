package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mymerch/app"
	"mymerch/app/middleware"
	"mymerch/config"
	"mymerch/logger"
)

func main() {
	// Load .env in development. In production variables are set directly.
	if os.Getenv("MYMERCH_APP_ENV") != "production" {
		loaded, err := config.LoadDotEnv(".env")
		if err != nil {
			log.Printf("Warning: could not read .env: %v", err)
		} else if loaded {
			log.Printf("Loaded environment variables from .env (overriding system variables)")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	// mymerch token <subject> prints an admin token for the admin endpoints
	if len(os.Args) > 2 && os.Args[1] == "token" {
		token, err := middleware.IssueAdminToken(cfg.JWT.Secret, cfg.JWT.Issuer, os.Args[2], 12*time.Hour)
		if err != nil {
			zlog.Fatal("Failed to issue admin token", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	if err := run(cfg, zlog); err != nil {
		zlog.Fatal("Server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize application
	application, err := app.Initialize(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			zlog.Warn("Failed to close resources", zap.Error(err))
		}
	}()

	// Listen on 0.0.0.0 to accept connections from all interfaces (required for Docker)
	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.App.Port,
		Handler:           application.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info("Server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Env),
			zap.String("database", cfg.Database.Driver),
			zap.String("storage", cfg.Storage.Type))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
