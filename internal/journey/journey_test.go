package journey_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/learning"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/storage"
)

var fixedNow = time.Date(2024, 3, 12, 16, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func TestRecord_AppendsAndFillsDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := journey.NewRecorder(store, nil, zerolog.Nop(), clock)

	got, err := rec.Record(ctx, journey.Journey{
		RouteID:         "route-safest",
		RouteKind:       route.KindSafest,
		DurationMinutes: 25,
		DifficultyLevel: route.DifficultyEasy,
		Completed:       true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.True(t, got.CompletedAt.Equal(fixedNow))

	history, err := journey.LoadHistory(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, got.ID, history[0].ID)
	assert.Equal(t, 25, history[0].DurationMinutes)
}

func TestRecord_Validation(t *testing.T) {
	rec := journey.NewRecorder(storage.NewMemoryStore(), nil, zerolog.Nop(), clock)

	tests := []struct {
		name string
		j    journey.Journey
	}{
		{"missing route id", journey.Journey{DifficultyLevel: route.DifficultyEasy}},
		{"negative duration", journey.Journey{RouteID: "r", DurationMinutes: -1, DifficultyLevel: route.DifficultyEasy}},
		{"unknown difficulty", journey.Journey{RouteID: "r", DifficultyLevel: "extreme"}},
		{"unknown kind", journey.Journey{RouteID: "r", RouteKind: "cheapest", DifficultyLevel: route.DifficultyEasy}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rec.Record(context.Background(), tt.j)
			assert.ErrorIs(t, err, journey.ErrInvalidJourney)
		})
	}
}

func TestRecord_CapsHistory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	seed := make([]journey.Journey, journey.MaxHistory)
	for i := range seed {
		seed[i] = journey.Journey{
			ID:              fmt.Sprintf("j-%03d", i),
			RouteID:         "route-safest",
			DurationMinutes: 10,
			DifficultyLevel: route.DifficultyEasy,
		}
	}
	require.NoError(t, storage.Set(ctx, store, storage.KeyJourneyHistory, seed))

	rec := journey.NewRecorder(store, nil, zerolog.Nop(), clock)
	_, err := rec.Record(ctx, journey.Journey{ID: "newest", RouteID: "route-scenic", DifficultyLevel: route.DifficultyEasy})
	require.NoError(t, err)

	history, err := journey.LoadHistory(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, history, journey.MaxHistory)
	assert.Equal(t, "j-001", history[0].ID)
	assert.Equal(t, "newest", history[len(history)-1].ID)
}

func TestRecord_AttachesOutcomeToLearningEntry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	log := learning.NewLog(store, zerolog.Nop())

	e := learning.NewEntry(fixedNow, []route.SmartRoute{{ID: "route-easiest", Score: 90}}, route.BuildContext(fixedNow, nil))
	require.NoError(t, log.Append(ctx, e))

	rec := journey.NewRecorder(store, log, zerolog.Nop(), clock)
	_, err := rec.Record(ctx, journey.Journey{
		RouteID:         "route-easiest",
		DurationMinutes: 31,
		DifficultyLevel: route.DifficultyEasy,
		Completed:       true,
		LearningEntryID: e.ID,
	})
	require.NoError(t, err)

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Completed)
	assert.True(t, *entries[0].Completed)
	assert.Equal(t, 31, *entries[0].DurationMinutes)
}

func TestRecord_UnknownLearningEntryStillRecords(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	rec := journey.NewRecorder(store, learning.NewLog(store, zerolog.Nop()), zerolog.Nop(), clock)

	_, err := rec.Record(ctx, journey.Journey{
		RouteID:         "route-fastest",
		DifficultyLevel: route.DifficultyModerate,
		LearningEntryID: "gone",
	})
	require.NoError(t, err)

	history, err := journey.LoadHistory(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestLoadHistory_MalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyJourneyHistory, []byte(`"not a list"`)))

	history, err := journey.LoadHistory(ctx, store, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, history)
}
