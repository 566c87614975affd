// Package journey records completed journeys and exposes the history used
// for personalized scoring.
package journey

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/learning"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/storage"
)

// MaxHistory is the number of journeys kept before the oldest are evicted.
const MaxHistory = 500

// Sentinel errors for journey recording.
var (
	// ErrInvalidJourney indicates a journey is missing required fields or carries invalid values.
	ErrInvalidJourney = errors.New("invalid journey")
)

// Journey is one travelled route and its outcome.
type Journey struct {
	ID              string           `json:"id"`
	RouteID         string           `json:"routeId"`
	RouteKind       route.Kind       `json:"routeKind,omitempty"`
	DurationMinutes int              `json:"duration"`
	DifficultyLevel route.Difficulty `json:"difficultyLevel"`
	Completed       bool             `json:"completed"`
	CompletedAt     time.Time        `json:"completedAt"`
	LearningEntryID string           `json:"learningEntryId,omitempty"`
}

// Validate checks the fields a recorded journey must carry.
func (j Journey) Validate() error {
	if j.RouteID == "" {
		return fmt.Errorf("%w: routeId is required", ErrInvalidJourney)
	}
	if j.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidJourney)
	}
	if !j.DifficultyLevel.Valid() {
		return fmt.Errorf("%w: unknown difficulty %q", ErrInvalidJourney, j.DifficultyLevel)
	}
	if j.RouteKind != "" && !j.RouteKind.Valid() {
		return fmt.Errorf("%w: unknown route kind %q", ErrInvalidJourney, j.RouteKind)
	}
	return nil
}

// LoadHistory reads the journey history. A malformed stored value is treated
// as an empty history and logged.
func LoadHistory(ctx context.Context, store storage.Store, logger zerolog.Logger) ([]Journey, error) {
	history, err := storage.Get[[]Journey](ctx, store, storage.KeyJourneyHistory, nil)
	if errors.Is(err, storage.ErrMalformed) {
		logger.Warn().Err(err).Msg("journey history is malformed, treating as empty")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return history, nil
}

// Recorder appends completed journeys to the history and feeds their outcome
// back into the learning log.
type Recorder struct {
	store    storage.Store
	learning *learning.Log
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewRecorder creates a recorder. A nil now defaults to time.Now.
func NewRecorder(store storage.Store, log *learning.Log, logger zerolog.Logger, now func() time.Time) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		store:    store,
		learning: log,
		logger:   logger,
		now:      now,
	}
}

// Record validates j, fills in its id and completion time when absent, and
// appends it to the history. When j references a learning entry, the outcome
// is attached to it; a missing entry is logged and otherwise ignored.
func (r *Recorder) Record(ctx context.Context, j Journey) (Journey, error) {
	if err := j.Validate(); err != nil {
		return Journey{}, err
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.CompletedAt.IsZero() {
		j.CompletedAt = r.now()
	}

	r.mu.Lock()
	history, err := LoadHistory(ctx, r.store, r.logger)
	if err != nil {
		r.mu.Unlock()
		return Journey{}, fmt.Errorf("read journey history: %w", err)
	}
	history = append(history, j)
	if over := len(history) - MaxHistory; over > 0 {
		history = history[over:]
	}
	err = storage.Set(ctx, r.store, storage.KeyJourneyHistory, history)
	r.mu.Unlock()
	if err != nil {
		return Journey{}, fmt.Errorf("write journey history: %w", err)
	}

	if j.LearningEntryID != "" && r.learning != nil {
		err := r.learning.AttachOutcome(ctx, j.LearningEntryID, learning.Outcome{
			Completed:       j.Completed,
			DurationMinutes: j.DurationMinutes,
			DifficultyLevel: j.DifficultyLevel,
		})
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("learning_entry_id", j.LearningEntryID).
				Str("journey_id", j.ID).
				Msg("failed to attach journey outcome to learning entry")
		}
	}

	r.logger.Info().
		Str("journey_id", j.ID).
		Str("route_id", j.RouteID).
		Bool("completed", j.Completed).
		Int("duration_minutes", j.DurationMinutes).
		Msg("journey recorded")

	return j, nil
}
