// automl serves the AutoML workbench: upload a dataset, clean and preprocess
// it, train models, compare their scores and download them.
//
// Usage:
//
//	automl [-config automl.yaml]
//
// Environment variables prefixed with AUTOML_ override the config file, e.g.
// AUTOML_SERVER_ADDR=:8080 or AUTOML_TRAINING_RANDOM_SEED=42.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/automl/internal/config"
	"github.com/YuminosukeSato/automl/internal/server"
	"github.com/YuminosukeSato/automl/internal/telemetry"
	amlerrors "github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
	"github.com/YuminosukeSato/automl/workbench"
)

func main() {
	configPath := flag.String("config", "automl.yaml", "path to config file")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "automl").Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if err := log.SetupLogger(cfg.Log.Level); err != nil {
		logger.Fatal().Err(err).Msg("logger setup failed")
	}
	if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		logger = logger.Level(lvl)
	}
	amlerrors.SetZerologWarnFunc(func(w error) {
		ev := logger.Warn().Err(w)
		if o, ok := w.(zerolog.LogObjectMarshaler); ok {
			ev = ev.EmbedObject(o)
		}
		ev.Msg("library warning")
	})

	store := workbench.NewStore(cfg.Session.IdleTTL)
	store.OnChange = telemetry.SetActiveSessions
	wb := workbench.New(workbench.Options{
		RandomSeed:    cfg.Training.RandomSeed,
		Compress:      cfg.Artifacts.Compress,
		CompressLevel: cfg.Artifacts.Level,
		Observer:      telemetry.Observer{},
	})
	srv, err := server.New(wb, store, server.Options{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("server setup failed")
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go store.Janitor(ctx, cfg.Session.SweepInterval)

	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("config", *configPath).
			Int64("random_seed", cfg.Training.RandomSeed).
			Bool("compress", cfg.Artifacts.Compress).
			Msg("automl started")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
	logger.Info().Msg("stopped")
}
