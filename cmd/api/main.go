// Package main provides the entrypoint for the KidRoute API server.
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

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/api"
	"github.com/kidroute/kidroute/internal/api/middleware"
	"github.com/kidroute/kidroute/internal/auth"
	"github.com/kidroute/kidroute/internal/config"
	"github.com/kidroute/kidroute/internal/provider/resilience"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/internal/storage"
	"github.com/kidroute/kidroute/internal/telemetry"
	"github.com/kidroute/kidroute/internal/weather"
	"github.com/kidroute/kidroute/internal/weather/openweathermap"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const (
	serviceName   = "kidroute-api"
	devSigningKey = "local-dev-signing-key-change-in-production"
)

func main() {
	configPath := flag.String("config", os.Getenv("KIDROUTE_CONFIG"), "path to a TOML config file")
	issueToken := flag.String("issue-token", "", "print an access token for the given user id and exit")
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

	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		signingKey = devSigningKey
		log.Warn().Msg("using default JWT signing key - not secure for production")
	}
	tokens := auth.NewTokenService(auth.TokenConfig{
		SigningKey: signingKey,
		TTL:        cfg.Auth.TokenTTL,
	})

	if *issueToken != "" {
		token, expiresAt, err := tokens.GenerateAccessToken(*issueToken)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to issue token")
		}
		fmt.Println(token)
		log.Info().Time("expires_at", expiresAt).Msg("token issued")
		return
	}

	if err := run(cfg, tokens, log); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}

func run(cfg config.Config, tokens *auth.TokenService, log zerolog.Logger) error {
	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting KidRoute API")

	ctx := context.Background()

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if tp.Enabled() {
		log.Info().Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	store, closeStore, err := storage.Open(ctx, cfg.StorageOpenConfig())
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer closeStore()
	log.Info().Str("driver", cfg.Storage.Driver).Msg("storage ready")

	location, err := cfg.Location()
	if err != nil {
		return err
	}
	engines := smartroute.NewRegistry(store, smartroute.Config{
		Logger:          log,
		Location:        location,
		LearningTimeout: cfg.Engine.LearningTimeout,
	})

	providers := resilience.NewRegistry()
	var weatherSvc *weather.Service
	if cfg.Weather.OpenWeatherMapAPIKey != "" {
		clientCfg := resilience.DefaultClientConfig(openweathermap.ProviderName)
		clientCfg.Timeout = cfg.Weather.Timeout
		clientCfg.Registry = providers
		clientCfg.Logger = log

		weatherSvc = weather.NewService(weather.ServiceConfig{
			Provider: openweathermap.NewClient(openweathermap.ClientConfig{
				APIKey:     cfg.Weather.OpenWeatherMapAPIKey,
				BaseURL:    cfg.Weather.BaseURL,
				HTTPClient: resilience.NewClient(clientCfg),
				Logger:     log,
			}),
			Logger:   log,
			CacheTTL: cfg.Weather.CacheTTL,
		})
		log.Info().Msg("weather provider configured")
	} else {
		log.Warn().Msg("OPENWEATHERMAP_API_KEY not set - routes use default weather")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Tokens:      tokens,
		Engines:     engines,
		Store:       store,
		Weather:     weatherSvc,
		Providers:   providers,
		RequireTLS:  cfg.RequireTLS,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	engines.Wait()
	log.Info().Msg("server stopped")
	return nil
}
