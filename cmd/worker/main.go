// Package main provides the batch worker entrypoint for the export pipeline.
// Depending on WORKER_MODE it runs once and exits, runs on an internal
// schedule, or consumes export-job messages from Pub/Sub.
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

	"github.com/rs/zerolog"

	"github.com/aqexport/aqexport/internal/config"
	"github.com/aqexport/aqexport/internal/export"
	"github.com/aqexport/aqexport/internal/geocode"
	"github.com/aqexport/aqexport/internal/geocode/google"
	"github.com/aqexport/aqexport/internal/openaq"
	"github.com/aqexport/aqexport/internal/pipeline"
	"github.com/aqexport/aqexport/internal/telemetry"
	"github.com/aqexport/aqexport/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "aqexport-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting aqexport worker")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	for _, warning := range cfg.Warnings() {
		log.Warn().Msg(warning)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	runner, cleanup, err := buildPipeline(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build pipeline")
	}
	defer cleanup()

	switch cfg.WorkerMode {
	case "once":
		result, err := runner.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("export run failed")
		}
		log.Info().
			Str("run_id", result.RunID).
			Int("records", result.Records).
			Str("object_key", result.ObjectKey).
			Msg("export run completed")
		return

	case "schedule":
		scheduler := worker.NewScheduler(worker.SchedulerConfig{
			Runner:   runner,
			Interval: cfg.ScheduleInterval,
			Logger:   log,
		})
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start scheduler")
		}
		defer scheduler.Stop()

	case "pubsub":
		handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.PubSubProjectID,
			SubscriptionName: cfg.PubSubSubscription,
			Runner:           runner,
			Logger:           log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub handler")
		}
		defer handler.Close()

		go func() {
			if err := handler.Start(ctx); err != nil {
				log.Fatal().Err(err).Msg("pubsub handler stopped")
			}
		}()

	default:
		log.Fatal().Str("mode", cfg.WorkerMode).Msg("unknown WORKER_MODE")
	}

	server := healthServer(cfg.Port)
	go func() {
		log.Info().Str("port", cfg.Port).Msg("health endpoint listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}
}

// healthServer exposes liveness for the platform while the worker waits
// for messages or the next scheduled run.
func healthServer(port string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"healthy","version":%q}`, Version)
	})
	return &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
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
