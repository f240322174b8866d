package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/incident-lookup-service/internal/adapter/geocoding"
	httpadapter "github.com/couchcryptid/incident-lookup-service/internal/adapter/http"
	"github.com/couchcryptid/incident-lookup-service/internal/adapter/socrata"
	"github.com/couchcryptid/incident-lookup-service/internal/config"
	"github.com/couchcryptid/incident-lookup-service/internal/observability"
	"github.com/couchcryptid/incident-lookup-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geocoder := geocoding.New(cfg, metrics, logger)
	source := socrata.NewClient(socrata.Options{
		ResourceURL:  cfg.DatasetURL,
		AppToken:     cfg.DatasetAppToken,
		Timeout:      cfg.DatasetTimeout,
		DefaultLimit: cfg.DatasetLimit,
		Location:     cfg.DatasetLocation,
	}, metrics, logger)

	searcher := pipeline.New(geocoder, source, logger, metrics, pipeline.Options{
		Limit:         cfg.DatasetLimit,
		DefaultRadius: cfg.DefaultRadius,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, searcher, searcher, logger, httpadapter.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		WriteTimeout:   cfg.DatasetTimeout + cfg.GeocoderTimeout + 5*time.Second,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
