// Package config loads service configuration from defaults, an optional TOML
// file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kidroute/kidroute/internal/database"
	"github.com/kidroute/kidroute/internal/storage"
)

// Storage drivers.
const (
	StorageMemory   = storage.DriverMemory
	StorageSQLite   = storage.DriverSQLite
	StoragePostgres = storage.DriverPostgres
)

// Worker event sources.
const (
	SourcePubSub = "pubsub"
	SourceKafka  = "kafka"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Env        string `toml:"env"`
	Port       string `toml:"port"`
	RequireTLS bool   `toml:"require_tls"`

	Storage   StorageConfig   `toml:"storage"`
	Database  database.Config `toml:"database"`
	Auth      AuthConfig      `toml:"auth"`
	Engine    EngineConfig    `toml:"engine"`
	Weather   WeatherConfig   `toml:"weather"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Worker    WorkerConfig    `toml:"worker"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Driver     string `toml:"driver"`
	SQLitePath string `toml:"sqlite_path"`
}

// AuthConfig configures access token validation.
type AuthConfig struct {
	SigningKey string        `toml:"signing_key"`
	TokenTTL   time.Duration `toml:"token_ttl"`
}

// EngineConfig configures the route engine.
type EngineConfig struct {
	// TimeZone is the IANA zone used to derive rush hour and school hours.
	TimeZone        string        `toml:"time_zone"`
	LearningTimeout time.Duration `toml:"learning_timeout"`
}

// WeatherConfig configures the weather provider. An empty API key disables it.
type WeatherConfig struct {
	OpenWeatherMapAPIKey string        `toml:"openweathermap_api_key"`
	BaseURL              string        `toml:"base_url"`
	Timeout              time.Duration `toml:"timeout"`
	CacheTTL             time.Duration `toml:"cache_ttl"`
}

// TelemetryConfig configures OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool    `toml:"enabled"`
	OTLPEndpoint string  `toml:"otlp_endpoint"`
	SampleRatio  float64 `toml:"sample_ratio"`
}

// WorkerConfig configures the journey event worker.
type WorkerConfig struct {
	Source         string   `toml:"source"`
	PubSubProject  string   `toml:"pubsub_project"`
	PubSubSub      string   `toml:"pubsub_subscription"`
	KafkaBrokers   []string `toml:"kafka_brokers"`
	KafkaTopic     string   `toml:"kafka_topic"`
	KafkaGroupID   string   `toml:"kafka_group_id"`
	MaxOutstanding int      `toml:"max_outstanding"`
}

// Default returns the configuration used when nothing else is provided.
func Default() Config {
	return Config{
		Env:  "development",
		Port: "8080",
		Storage: StorageConfig{
			Driver:     StorageMemory,
			SQLitePath: "kidroute.db",
		},
		Database: database.DefaultConfig(),
		Auth: AuthConfig{
			TokenTTL: 15 * time.Minute,
		},
		Engine: EngineConfig{
			TimeZone:        "Local",
			LearningTimeout: 5 * time.Second,
		},
		Weather: WeatherConfig{
			BaseURL:  "https://api.openweathermap.org/data/2.5",
			Timeout:  10 * time.Second,
			CacheTTL: 10 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
		},
		Worker: WorkerConfig{
			Source:         SourcePubSub,
			PubSubSub:      "journey-events",
			KafkaBrokers:   []string{"localhost:9092"},
			KafkaTopic:     "journey-events",
			KafkaGroupID:   "kidroute-worker",
			MaxOutstanding: 10,
		},
	}
}

// Load builds the configuration. path may be empty, in which case no file is read.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Location resolves the engine time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Engine.TimeZone)
}

// StorageOpenConfig returns the settings for storage.Open.
func (c Config) StorageOpenConfig() storage.OpenConfig {
	return storage.OpenConfig{
		Driver:     c.Storage.Driver,
		SQLitePath: c.Storage.SQLitePath,
		Database:   c.Database,
	}
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path is required for the sqlite driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}

	switch c.Worker.Source {
	case SourcePubSub, SourceKafka:
	default:
		return fmt.Errorf("%w: unknown worker source %q", ErrInvalid, c.Worker.Source)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: engine.time_zone: %v", ErrInvalid, err)
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%w: port %q", ErrInvalid, c.Port)
	}

	if c.IsProduction() && c.Auth.SigningKey == "" {
		return fmt.Errorf("%w: auth.signing_key is required in production", ErrInvalid)
	}

	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalid, key, err))
				return
			}
			*dst = d
		}
	}

	str("APP_ENV", &cfg.Env)
	str("APP_PORT", &cfg.Port)
	boolean("REQUIRE_TLS", &cfg.RequireTLS)

	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("SQLITE_PATH", &cfg.Storage.SQLitePath)

	str("DB_HOST", &cfg.Database.Host)
	integer("DB_PORT", &cfg.Database.Port)
	str("DB_USER", &cfg.Database.User)
	str("DB_PASSWORD", &cfg.Database.Password)
	str("DB_NAME", &cfg.Database.Database)
	str("DB_SSL_MODE", &cfg.Database.SSLMode)
	integer("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	integer("DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	duration("DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)

	str("JWT_SIGNING_KEY", &cfg.Auth.SigningKey)
	duration("JWT_TOKEN_TTL", &cfg.Auth.TokenTTL)

	str("ENGINE_TIMEZONE", &cfg.Engine.TimeZone)
	duration("ENGINE_LEARNING_TIMEOUT", &cfg.Engine.LearningTimeout)

	str("OPENWEATHERMAP_API_KEY", &cfg.Weather.OpenWeatherMapAPIKey)
	str("OPENWEATHERMAP_BASE_URL", &cfg.Weather.BaseURL)
	duration("WEATHER_CACHE_TTL", &cfg.Weather.CacheTTL)

	boolean("OTEL_ENABLED", &cfg.Telemetry.Enabled)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	if v, ok := lookup("OTEL_TRACES_SAMPLER_ARG"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: OTEL_TRACES_SAMPLER_ARG: %v", ErrInvalid, err))
		} else {
			cfg.Telemetry.SampleRatio = f
		}
	}

	str("WORKER_SOURCE", &cfg.Worker.Source)
	str("PUBSUB_PROJECT_ID", &cfg.Worker.PubSubProject)
	str("PUBSUB_SUBSCRIPTION", &cfg.Worker.PubSubSub)
	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		cfg.Worker.KafkaBrokers = splitList(v)
	}
	str("KAFKA_TOPIC", &cfg.Worker.KafkaTopic)
	str("KAFKA_GROUP_ID", &cfg.Worker.KafkaGroupID)
	integer("WORKER_MAX_OUTSTANDING", &cfg.Worker.MaxOutstanding)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
