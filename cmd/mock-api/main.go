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

	"github.com/josh-kwaku/estate-checkout/internal/config"
	"github.com/josh-kwaku/estate-checkout/internal/handler"
	"github.com/josh-kwaku/estate-checkout/internal/logging"
	"github.com/josh-kwaku/estate-checkout/internal/sandbox"
	"github.com/josh-kwaku/estate-checkout/internal/server"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.Init("estate-mock-api", cfg.LogLevel, cfg.AppEnv, os.Stdout)

	addr := fmt.Sprintf(":%d", cfg.MockAPIPort)
	baseURL := fmt.Sprintf("http://localhost:%d%s", cfg.MockAPIPort, server.APIPrefix)

	store := sandbox.New(sandbox.Options{
		PendingPolls:   cfg.MockPendingPolls,
		PaymentBaseURL: cfg.SiteURL,
		PollBaseURL:    baseURL,
	})

	srv := &http.Server{
		Addr: addr,
		Handler: server.New(server.Options{
			Store:   store,
			Limiter: sandbox.NewLimiter(cfg.MockCreateRate),
			Tokens: handler.TokenConfig{
				Secret:     cfg.MockJWTSecret,
				AccessTTL:  cfg.MockAccessTTL,
				RefreshTTL: cfg.MockRefreshTTL,
			},
			Logger:  logger,
			Version: version,
		}),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("sandbox api started", "addr", addr, "base_url", baseURL, "pending_polls", cfg.MockPendingPolls)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
