package weather

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/internal/route"
)

// Provider fetches current weather from an external source.
type Provider interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error)
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// CacheTTL is how long an observation is served without refetching (default: 10 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the cache cell size in degrees (default: 0.1).
	// Points within the same cell share an observation.
	CacheGridSize float64

	// StaleIfErrorTTL is how long an expired observation may still be served
	// when the provider fails (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Service provides cached weather observations.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	cacheGridSize   float64
	staleIfErrorTTL time.Duration
	now             func() time.Time

	mu    sync.Mutex
	cache map[string]cachedObservation
}

type cachedObservation struct {
	observation *Observation
	fetchedAt   time.Time
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger,
		cacheTTL:        cfg.CacheTTL,
		cacheGridSize:   cfg.CacheGridSize,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
		now:             cfg.Now,
		cache:           make(map[string]cachedObservation),
	}
	if s.cacheTTL == 0 {
		s.cacheTTL = 10 * time.Minute
	}
	if s.cacheGridSize == 0 {
		s.cacheGridSize = 0.1
	}
	if s.staleIfErrorTTL == 0 {
		s.staleIfErrorTTL = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetCurrentWeather returns the observation for a location, from cache when fresh.
func (s *Service) GetCurrentWeather(ctx context.Context, lat, lon float64) (*Observation, error) {
	if !(geo.Coordinate{Lat: lat, Lon: lon}).InRange() {
		return nil, ErrInvalidCoordinates
	}

	key := s.cacheKey(lat, lon)

	s.mu.Lock()
	defer s.mu.Unlock()

	cached, ok := s.cache[key]
	if ok && s.now().Before(cached.fetchedAt.Add(s.cacheTTL)) {
		return cached.observation, nil
	}

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	obs, err := s.provider.GetCurrentWeather(ctx, lat, lon)
	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("failed to fetch weather")

		if ok && s.now().Before(cached.fetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Time("fetched_at", cached.fetchedAt).
				Msg("serving stale weather data due to provider error")
			return cached.observation, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	s.cache[key] = cachedObservation{observation: obs, fetchedAt: s.now()}
	s.evictExpired()
	return obs, nil
}

// Conditions returns the route weather and temperature at a point.
func (s *Service) Conditions(ctx context.Context, at geo.Coordinate) (route.Weather, float64, error) {
	obs, err := s.GetCurrentWeather(ctx, at.Lat, at.Lon)
	if err != nil {
		return "", 0, err
	}
	return obs.Condition.RouteWeather(), obs.Temperature, nil
}

// FillContext sets the weather condition and temperature of overrides that
// the caller left unset. Provider failures leave overrides unchanged.
func (s *Service) FillContext(ctx context.Context, at geo.Coordinate, overrides *route.ContextOverrides) *route.ContextOverrides {
	if overrides == nil {
		overrides = &route.ContextOverrides{}
	}
	if overrides.WeatherCondition != nil && overrides.Temperature != nil {
		return overrides
	}

	condition, temperature, err := s.Conditions(ctx, at)
	if err != nil {
		s.logger.Warn().Err(err).Msg("using default weather context")
		return overrides
	}
	if overrides.WeatherCondition == nil {
		overrides.WeatherCondition = &condition
	}
	if overrides.Temperature == nil {
		overrides.Temperature = &temperature
	}
	return overrides
}

// Len returns the number of cached observations.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

func (s *Service) cacheKey(lat, lon float64) string {
	gridLat := math.Floor(lat/s.cacheGridSize) * s.cacheGridSize
	gridLon := math.Floor(lon/s.cacheGridSize) * s.cacheGridSize
	return fmt.Sprintf("%.2f:%.2f", gridLat, gridLon)
}

// evictExpired drops entries too old to be served even as stale data. Callers hold mu.
func (s *Service) evictExpired() {
	now := s.now()
	for key, c := range s.cache {
		if now.After(c.fetchedAt.Add(s.staleIfErrorTTL)) {
			delete(s.cache, key)
		}
	}
}
