// Package learning persists a capped log of route generation outcomes.
package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/storage"
)

// MaxEntries is the number of entries kept before the oldest are evicted.
const MaxEntries = 100

// ErrEntryNotFound indicates no learning entry has the requested id.
var ErrEntryNotFound = errors.New("learning entry not found")

// ScoredRoute is the score one candidate received in a generation call.
type ScoredRoute struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Entry records one generation call and, later, its outcome.
type Entry struct {
	ID              string           `json:"id"`
	Timestamp       time.Time        `json:"timestamp"`
	Routes          []ScoredRoute    `json:"routes"`
	Context         route.Context    `json:"context"`
	Completed       *bool            `json:"completed,omitempty"`
	DurationMinutes *int             `json:"duration,omitempty"`
	DifficultyLevel route.Difficulty `json:"difficultyLevel,omitempty"`
}

// Outcome is the journey result attached to an entry after the fact.
type Outcome struct {
	Completed       bool
	DurationMinutes int
	DifficultyLevel route.Difficulty
}

// NewEntry builds an entry for the given scored routes.
func NewEntry(now time.Time, routes []route.SmartRoute, rc route.Context) Entry {
	scored := make([]ScoredRoute, len(routes))
	for i, r := range routes {
		scored[i] = ScoredRoute{ID: r.ID, Score: r.Score}
	}
	return Entry{
		ID:        uuid.NewString(),
		Timestamp: now,
		Routes:    scored,
		Context:   rc,
	}
}

// Log is the persisted learning log of one user.
// Read-modify-write cycles are serialized within a Log instance.
type Log struct {
	store  storage.Store
	logger zerolog.Logger
	mu     sync.Mutex
}

// NewLog creates a log backed by store.
func NewLog(store storage.Store, logger zerolog.Logger) *Log {
	return &Log{store: store, logger: logger}
}

// Entries returns the stored entries, oldest first.
// A malformed stored value is treated as an empty log.
func (l *Log) Entries(ctx context.Context) ([]Entry, error) {
	entries, err := storage.Get[[]Entry](ctx, l.store, storage.KeyLearning, nil)
	if errors.Is(err, storage.ErrMalformed) {
		l.logger.Warn().Err(err).Msg("learning log is malformed, treating as empty")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Append adds e to the end of the log and evicts the oldest entries beyond MaxEntries.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.Entries(ctx)
	if err != nil {
		return fmt.Errorf("read learning log: %w", err)
	}

	entries = append(entries, e)
	if over := len(entries) - MaxEntries; over > 0 {
		entries = entries[over:]
	}

	if err := storage.Set(ctx, l.store, storage.KeyLearning, entries); err != nil {
		return fmt.Errorf("write learning log: %w", err)
	}
	return nil
}

// AttachOutcome records the journey result on the entry with the given id.
func (l *Log) AttachOutcome(ctx context.Context, entryID string, o Outcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.Entries(ctx)
	if err != nil {
		return fmt.Errorf("read learning log: %w", err)
	}

	idx := -1
	for i := range entries {
		if entries[i].ID == entryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrEntryNotFound
	}

	completed := o.Completed
	duration := o.DurationMinutes
	entries[idx].Completed = &completed
	entries[idx].DurationMinutes = &duration
	entries[idx].DifficultyLevel = o.DifficultyLevel

	if err := storage.Set(ctx, l.store, storage.KeyLearning, entries); err != nil {
		return fmt.Errorf("write learning log: %w", err)
	}
	return nil
}
