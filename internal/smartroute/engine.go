// Package smartroute generates, scores and ranks kid-friendly route candidates
// and learns from past journeys.
package smartroute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/learning"
	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/safezone"
	"github.com/kidroute/kidroute/internal/storage"
)

// Sentinel errors for route generation.
var (
	// ErrInvalidCoordinates indicates an origin or destination is not a finite number.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrNoStore indicates the engine was configured without a store.
	ErrNoStore = errors.New("smartroute: store is required")
)

// Config holds configuration for an Engine.
type Config struct {
	// Store holds the user's preferences, learning log, journey history and safe zones.
	Store  storage.Store
	Logger zerolog.Logger
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
	// Location is the time zone used to derive rush hour and school hours. Defaults to time.Local.
	Location *time.Location
	// LearningTimeout bounds each background learning log append. Defaults to 5s.
	LearningTimeout time.Duration
}

// Result is the output of one generation call.
type Result struct {
	Routes          []route.SmartRoute
	Context         route.Context
	LearningEntryID string
}

// Engine owns one user's preferences, journey history and safe zones.
// It is safe for concurrent use.
type Engine struct {
	store           storage.Store
	logger          zerolog.Logger
	now             func() time.Time
	location        *time.Location
	learningTimeout time.Duration

	prefs      *preferences.Manager
	learning   *learning.Log
	recorder   *journey.Recorder
	generators []kindGenerator

	tracer  trace.Tracer
	metrics *engineMetrics

	mu        sync.RWMutex
	history   []journey.Journey
	safeZones []safezone.Zone

	pending sync.WaitGroup
}

// New creates an engine and loads the user's state from the store.
// Unreadable history or safe zones degrade to empty caches.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, ErrNoStore
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.LearningTimeout == 0 {
		cfg.LearningTimeout = 5 * time.Second
	}

	m, err := newEngineMetrics()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	learningLog := learning.NewLog(cfg.Store, cfg.Logger)
	e := &Engine{
		store:           cfg.Store,
		logger:          cfg.Logger,
		now:             cfg.Now,
		location:        cfg.Location,
		learningTimeout: cfg.LearningTimeout,
		prefs:           preferences.NewManager(cfg.Store, cfg.Logger),
		learning:        learningLog,
		recorder:        journey.NewRecorder(cfg.Store, learningLog, cfg.Logger, cfg.Now),
		generators:      defaultGenerators(),
		tracer:          otel.Tracer(instrumentationName),
		metrics:         m,
	}

	e.prefs.Load(ctx)
	if err := e.Reload(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("failed to load cached journey data, continuing without history")
	}

	return e, nil
}

// Generate builds the context, runs every generator concurrently, scores and
// ranks the candidates, and appends a learning entry in the background.
// A failing generator fails the whole call.
func (e *Engine) Generate(ctx context.Context, origin, destination geo.Coordinate, overrides *route.ContextOverrides) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "smartroute.Generate")
	defer span.End()

	now := e.now().In(e.location)
	if overrides != nil && overrides.CurrentTime != nil {
		o := *overrides
		at := overrides.CurrentTime.In(e.location)
		o.CurrentTime = &at
		overrides = &o
	}
	rc := route.BuildContext(now, overrides)

	e.mu.RLock()
	in := Input{
		Origin:      origin,
		Destination: destination,
		Context:     rc,
		SafeZones:   e.safeZones,
	}
	snap := Snapshot{
		Preferences: e.prefs.Current(),
		History:     e.history,
	}
	e.mu.RUnlock()

	routes := make([]route.SmartRoute, len(e.generators))
	var g errgroup.Group
	for i, kg := range e.generators {
		g.Go(func() error {
			r, err := kg.gen(in)
			if err != nil {
				return fmt.Errorf("generate %s route: %w", kg.kind, err)
			}
			routes[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Error().
			Err(err).
			Float64("origin_lat", origin.Lat).
			Float64("origin_lon", origin.Lon).
			Float64("destination_lat", destination.Lat).
			Float64("destination_lon", destination.Lon).
			Msg("failed to generate smart routes")
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return nil, err
	}

	for i := range routes {
		routes[i] = Score(routes[i], rc, snap)
	}
	Rank(routes)

	entry := learning.NewEntry(now, routes, rc)
	e.appendLearning(ctx, entry)

	e.metrics.generateDuration.Record(ctx, time.Since(start).Seconds())
	e.metrics.routesGenerated.Add(ctx, int64(len(routes)))
	span.SetAttributes(
		attribute.String("smartroute.top", routes[0].ID),
		attribute.Float64("smartroute.top_score", routes[0].Score),
		attribute.Bool("smartroute.rush_hour", rc.IsRushHour),
	)

	return &Result{
		Routes:          routes,
		Context:         rc,
		LearningEntryID: entry.ID,
	}, nil
}

// appendLearning persists entry without blocking the caller.
// Failures are logged and counted, never returned.
func (e *Engine) appendLearning(ctx context.Context, entry learning.Entry) {
	bg := context.WithoutCancel(ctx)

	e.pending.Add(1)
	go func() {
		defer e.pending.Done()

		ctx, cancel := context.WithTimeout(bg, e.learningTimeout)
		defer cancel()

		if err := e.learning.Append(ctx, entry); err != nil {
			e.metrics.learningFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "append")))
			e.logger.Warn().
				Err(err).
				Str("learning_entry_id", entry.ID).
				Msg("failed to update learning model")
		}
	}()
}

// Wait blocks until pending learning log appends have finished.
func (e *Engine) Wait() {
	e.pending.Wait()
}

// Reload refreshes the journey history and safe zone caches from the store.
// On error the previous caches are kept.
func (e *Engine) Reload(ctx context.Context) error {
	history, err := journey.LoadHistory(ctx, e.store, e.logger)
	if err != nil {
		return fmt.Errorf("load journey history: %w", err)
	}
	zones, err := safezone.Load(ctx, e.store, e.logger)
	if err != nil {
		return fmt.Errorf("load safe zones: %w", err)
	}

	e.mu.Lock()
	e.history = history
	e.safeZones = zones
	e.mu.Unlock()

	return nil
}

// ScoreRoute scores r against rc and the engine's current preferences and history.
func (e *Engine) ScoreRoute(r route.SmartRoute, rc route.Context) route.SmartRoute {
	e.mu.RLock()
	snap := Snapshot{Preferences: e.prefs.Current(), History: e.history}
	e.mu.RUnlock()
	return Score(r, rc, snap)
}

// RouteInsights returns callouts for r in the given context.
func (e *Engine) RouteInsights(r route.SmartRoute, rc route.Context) []string {
	return Insights(r, rc, e.prefs.Current())
}

// PersonalizedRecommendations summarizes the cached journey history.
func (e *Engine) PersonalizedRecommendations() []string {
	e.mu.RLock()
	history := e.history
	e.mu.RUnlock()
	return Recommendations(history, e.prefs.Current())
}

// Preferences returns the current preferences.
func (e *Engine) Preferences() preferences.RoutePreferences {
	return e.prefs.Current()
}

// UpdatePreferences merges patch into the preferences and persists them.
func (e *Engine) UpdatePreferences(ctx context.Context, patch preferences.Patch) preferences.RoutePreferences {
	return e.prefs.Update(ctx, patch)
}

// History returns the cached journey history.
func (e *Engine) History() []journey.Journey {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]journey.Journey(nil), e.history...)
}

// SafeZones returns the cached safe zones.
func (e *Engine) SafeZones() []safezone.Zone {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]safezone.Zone(nil), e.safeZones...)
}

// ReplaceSafeZones stores zones and refreshes the caches.
func (e *Engine) ReplaceSafeZones(ctx context.Context, zones []safezone.Zone) error {
	if err := safezone.Save(ctx, e.store, zones); err != nil {
		return err
	}
	return e.Reload(ctx)
}

// RecordJourney stores a completed journey, feeds its outcome to the learning
// log, and refreshes the caches.
func (e *Engine) RecordJourney(ctx context.Context, j journey.Journey) (journey.Journey, error) {
	if j.LearningEntryID != "" {
		e.Wait()
	}
	recorded, err := e.recorder.Record(ctx, j)
	if err != nil {
		return journey.Journey{}, err
	}
	if err := e.Reload(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("failed to reload engine after recording journey")
	}
	return recorded, nil
}

// LearningEntries returns the persisted learning log, oldest first.
func (e *Engine) LearningEntries(ctx context.Context) ([]learning.Entry, error) {
	return e.learning.Entries(ctx)
}
