// Package main provides the entrypoint for the KidRoute journey event worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/api/models"
	"github.com/kidroute/kidroute/internal/api/response"
	"github.com/kidroute/kidroute/internal/config"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/internal/storage"
	"github.com/kidroute/kidroute/internal/telemetry"
	"github.com/kidroute/kidroute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "kidroute-worker"

// source is a running event consumer.
type source interface {
	Start(ctx context.Context) error
	Close() error
}

func main() {
	configPath := flag.String("config", os.Getenv("KIDROUTE_CONFIG"), "path to a TOML config file")
	flag.Parse()

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("worker exited with error")
	}
}

func run(cfg config.Config, log zerolog.Logger) error {
	log.Info().
		Str("build_time", BuildTime).
		Str("source", cfg.Worker.Source).
		Msg("starting KidRoute worker")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		Logger:         log,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	store, closeStore, err := storage.Open(ctx, cfg.StorageOpenConfig())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	engines := smartroute.NewRegistry(store, smartroute.Config{
		Logger:          log,
		Location:        location,
		LearningTimeout: cfg.Engine.LearningTimeout,
	})
	defer engines.Wait()

	processor, err := worker.NewProcessor(engines, log)
	if err != nil {
		return err
	}

	src, err := newSource(ctx, cfg.Worker, processor, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close event source")
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      healthRouter(store),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	sourceErr := src.Start(ctx)
	cancel()

	log.Info().Msg("shutting down worker")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	if sourceErr != nil {
		return fmt.Errorf("event source: %w", sourceErr)
	}
	log.Info().Msg("worker stopped")
	return nil
}

func newSource(ctx context.Context, cfg config.WorkerConfig, p *worker.Processor, log zerolog.Logger) (source, error) {
	switch cfg.Source {
	case config.SourceKafka:
		return worker.NewKafkaSource(worker.KafkaConfig{
			Brokers:   cfg.KafkaBrokers,
			Topic:     cfg.KafkaTopic,
			GroupID:   cfg.KafkaGroupID,
			Processor: p,
			Logger:    log,
		}), nil
	default:
		return worker.NewPubSubSource(ctx, worker.PubSubConfig{
			ProjectID:      cfg.PubSubProject,
			Subscription:   cfg.PubSubSub,
			MaxOutstanding: cfg.MaxOutstanding,
			Processor:      p,
			Logger:         log,
		})
	}
}

func healthRouter(store storage.Store) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now()),
			Details: map[string]any{"version": Version},
		}
		status := http.StatusOK
		if err := store.Ping(r.Context()); err != nil {
			health.Status = models.HealthStatusFail
			health.Details["storage"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		response.JSON(w, r, status, health)
	})
	return r
}
