package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stk-crm/internal/auth"
	"stk-crm/internal/config"
	"stk-crm/internal/db"
	"stk-crm/internal/handlers"
	"stk-crm/internal/models"
)

func main() {
	cfg := config.Load()

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Connect(ctx, cfg.DatabaseURL, logger); err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store := models.NewStore(db.DB)
	if err := seedDirector(ctx, store, cfg, logger); err != nil {
		logger.Warn("failed to seed director account", zap.Error(err))
	}

	tokens := auth.NewTokenService(cfg.SecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authSvc := auth.NewService(store, tokens, cfg.RefreshRotateWindow, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(store, authSvc, cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return <-errCh
}

// seedDirector creates the director account on first start.
func seedDirector(ctx context.Context, store *models.Store, cfg *config.Config, logger *zap.Logger) error {
	created, err := auth.EnsureDirector(ctx, store, cfg.DirectorUsername, cfg.DirectorPassword)
	if err != nil {
		return err
	}
	if created {
		logger.Info("created director account", zap.String("username", cfg.DirectorUsername))
	}
	return nil
}
