// Command server runs the webhook ingestion HTTP API.
//
// @title       Webhook Ingest API
// @version     1.0
// @description Signed webhook ingestion with idempotent storage, filtered listing, stats and metrics.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/tbourn/go-webhook-ingest/internal/config"
	httpapi "github.com/tbourn/go-webhook-ingest/internal/http"
	"github.com/tbourn/go-webhook-ingest/internal/metrics"
	"github.com/tbourn/go-webhook-ingest/internal/observability"
	"github.com/tbourn/go-webhook-ingest/internal/repo"
	"github.com/tbourn/go-webhook-ingest/internal/services"
	"github.com/tbourn/go-webhook-ingest/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := sysutil.ConfigureLogger(cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg.DatabaseURL, repo.OpenOptions{
		Tracing: cfg.OTEL.Enabled,
		Debug:   cfg.LogLevel == "debug",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("database open failed")
	}

	if cfg.WebhookSecret == "" {
		logger.Warn().Msg("WEBHOOK_SECRET is not set; readiness will fail and every webhook is rejected")
	}

	rec := metrics.New()
	r := gin.New()
	httpapi.RegisterRoutes(r, services.NewMessageService(db), rec, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("version", ver).
			Bool("otel", cfg.OTEL.Enabled).
			Float64("rate_rps", cfg.RateRPS).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("otel shutdown")
	}
	if err := repo.Close(db); err != nil {
		logger.Error().Err(err).Msg("database close")
	}
	logger.Info().Msg("server stopped")
}
