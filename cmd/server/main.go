// Package main provides the HTTP trigger entrypoint for the export pipeline.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aqexport/aqexport/internal/api"
	"github.com/aqexport/aqexport/internal/config"
	"github.com/aqexport/aqexport/internal/export"
	"github.com/aqexport/aqexport/internal/geocode"
	"github.com/aqexport/aqexport/internal/geocode/google"
	"github.com/aqexport/aqexport/internal/openaq"
	"github.com/aqexport/aqexport/internal/pipeline"
	"github.com/aqexport/aqexport/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqexport-server"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting aqexport server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	for _, warning := range cfg.Warnings() {
		log.Warn().Msg(warning)
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.TelemetryEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	runner, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer cleanup()

	router := api.NewRouter(api.RouterConfig{
		Version:   Version,
		BuildTime: BuildTime,
		Logger:    log,
		Runner:    runner,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // a synchronous run spans many API calls
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

// buildPipeline wires the capabilities behind the orchestrator.
func buildPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pipeline.Pipeline, func(), error) {
	resolvers := []geocode.Resolver{geocode.NewStaticResolver(cfg.CityCoordinates)}
	if cfg.GoogleGeocodingAPIKey != "" {
		resolvers = append(resolvers, google.NewResolver(cfg.GoogleGeocodingAPIKey))
	}

	client := openaq.NewClient(openaq.ClientConfig{
		APIKey:  cfg.OpenAQAPIKey,
		Timeout: cfg.FetchTimeout,
	})

	store, err := export.NewGCSStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	publisher := export.NewPublisher(export.PublisherConfig{
		Store:  store,
		Bucket: cfg.Bucket,
		Logger: log,
	})

	metrics, err := pipeline.NewMetrics()
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	p := pipeline.New(pipeline.Config{
		Cities:           cfg.CityQueries(),
		Resolver:         geocode.NewChainResolver(resolvers...),
		Stations:         client,
		Readings:         client,
		Publisher:        publisher,
		MinStations:      cfg.MinStations,
		TargetParameters: cfg.TargetSet(),
		FetchConcurrency: cfg.FetchConcurrency,
		Logger:           log,
	}, metrics)

	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage client")
		}
	}
	return p, cleanup, nil
}
