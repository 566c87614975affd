package smartroute_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/learning"
	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/safezone"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func newEngine(t *testing.T, store storage.Store) *smartroute.Engine {
	t.Helper()
	e, err := smartroute.New(context.Background(), smartroute.Config{
		Store:    store,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return tuesdayMorning },
		Location: time.UTC,
	})
	require.NoError(t, err)
	return e
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := smartroute.New(context.Background(), smartroute.Config{})
	assert.ErrorIs(t, err, smartroute.ErrNoStore)
}

func TestGenerate_NYCScenario(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())

	res, err := e.Generate(ctx, nycOrigin, nycDestination, nil)
	require.NoError(t, err)
	e.Wait()

	require.Len(t, res.Routes, 4)

	byID := map[string]route.SmartRoute{}
	for _, r := range res.Routes {
		byID[r.ID] = r
	}
	require.Len(t, byID, 4)
	for _, k := range route.Kinds {
		assert.Contains(t, byID, k.ID())
	}

	// 95 base + 10 safest preference + 5 rush hour, clamped.
	assert.Equal(t, 100.0, byID["route-safest"].Score)
	assert.Equal(t, "route-safest", res.Routes[0].ID)

	straight := geo.Distance(nycOrigin, nycDestination)
	assert.Less(t, byID["route-fastest"].WalkingDistanceMeters, straight)

	assert.True(t, res.Context.IsRushHour)
	assert.False(t, res.Context.IsWeekend)
	assert.True(t, res.Context.IsSchoolHours)
	assert.NotEmpty(t, res.LearningEntryID)
}

func TestGenerate_SortedAndBounded(t *testing.T) {
	ctx := context.Background()
	contexts := []*route.ContextOverrides{
		nil,
		{WeatherCondition: ptr(route.WeatherRainy)},
		{IsRushHour: ptr(false)},
		{WeatherCondition: ptr(route.WeatherSnowy), Temperature: ptr(-3.0)},
	}
	destinations := []geo.Coordinate{
		nycDestination,
		{Lat: 40.7130, Lon: -74.0061},
		{Lat: -33.86, Lon: 151.2},
	}

	for _, age := range []int{4, 8, 12} {
		e := newEngine(t, storage.NewMemoryStore())
		e.UpdatePreferences(ctx, preferences.Patch{ChildAge: ptr(age)})

		for _, o := range contexts {
			for _, d := range destinations {
				res, err := e.Generate(ctx, nycOrigin, d, o)
				require.NoError(t, err)
				require.Len(t, res.Routes, 4)

				for i, r := range res.Routes {
					assert.GreaterOrEqual(t, r.Score, 0.0)
					assert.LessOrEqual(t, r.Score, 100.0)
					if i+1 < len(res.Routes) {
						assert.GreaterOrEqual(t, r.Score, res.Routes[i+1].Score)
					}
				}
			}
		}
		e.Wait()
	}
}

func TestGenerate_TiesKeepGenerationOrder(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())
	for _, k := range route.Kinds {
		kind := k
		smartroute.ReplaceGenerator(e, kind, func(smartroute.Input) (route.SmartRoute, error) {
			return route.SmartRoute{ID: kind.ID(), Kind: kind, Score: 50, Difficulty: route.DifficultyChallenging}, nil
		})
	}
	e.UpdatePreferences(ctx, preferences.Patch{TimePreference: ptr(route.KindScenic)})

	res, err := e.Generate(ctx, nycOrigin, nycDestination, &route.ContextOverrides{IsRushHour: ptr(false)})
	require.NoError(t, err)
	e.Wait()

	var ids []string
	for _, r := range res.Routes {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"route-safest", "route-fastest", "route-easiest", "route-scenic"}, ids)
}

func TestGenerate_GeneratorFailurePropagates(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := newEngine(t, store)
	boom := errors.New("no scenery today")
	smartroute.ReplaceGenerator(e, route.KindScenic, func(smartroute.Input) (route.SmartRoute, error) {
		return route.SmartRoute{}, boom
	})

	res, err := e.Generate(ctx, nycOrigin, nycDestination, nil)
	e.Wait()

	assert.Nil(t, res)
	assert.ErrorIs(t, err, boom)

	entries, err := e.LearningEntries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed generations are not learned from")
}

func TestGenerate_InvalidCoordinates(t *testing.T) {
	e := newEngine(t, storage.NewMemoryStore())

	_, err := e.Generate(context.Background(), geo.Coordinate{Lat: math.Inf(1), Lon: 0}, nycDestination, nil)

	assert.ErrorIs(t, err, smartroute.ErrInvalidCoordinates)
}

func TestGenerate_AppendsLearningEntry(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())

	res, err := e.Generate(ctx, nycOrigin, nycDestination, nil)
	require.NoError(t, err)
	e.Wait()

	entries, err := e.LearningEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, res.LearningEntryID, entries[0].ID)
	require.Len(t, entries[0].Routes, 4)
	assert.Equal(t, res.Routes[0].ID, entries[0].Routes[0].ID)
	assert.Equal(t, res.Routes[0].Score, entries[0].Routes[0].Score)
}

func TestGenerate_LearningLogCapped(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())

	var first string
	for i := 0; i < learning.MaxEntries+1; i++ {
		res, err := e.Generate(ctx, nycOrigin, nycDestination, nil)
		require.NoError(t, err)
		e.Wait()
		if i == 0 {
			first = res.LearningEntryID
		}
	}

	entries, err := e.LearningEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, learning.MaxEntries)
	for _, entry := range entries {
		assert.NotEqual(t, first, entry.ID)
	}
}

func TestGenerate_PersistenceFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := newEngine(t, store)
	store.FailWrites(errors.New("storage offline"))

	res, err := e.Generate(ctx, nycOrigin, nycDestination, nil)
	e.Wait()

	require.NoError(t, err)
	assert.Len(t, res.Routes, 4)
}

func TestGenerate_UsesHistoryAndSafeZones(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, safezone.Save(ctx, store, []safezone.Zone{
		{ID: "school", Name: "PS 234", Center: geo.Coordinate{Lat: 40.7180, Lon: -74.0010}, RadiusMeters: 150},
	}))

	e := newEngine(t, store)
	res, err := e.Generate(ctx, nycOrigin, nycDestination, &route.ContextOverrides{IsRushHour: ptr(false)})
	require.NoError(t, err)
	e.Wait()

	var safest route.SmartRoute
	for _, r := range res.Routes {
		if r.Kind == route.KindSafest {
			safest = r
		}
	}
	assert.Equal(t, "Passes through 1 safe zone", safest.SafetyFeatures[0])
}

func TestEngine_PreferencesMerge(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := newEngine(t, store)
	before := e.Preferences()

	assert.Equal(t, before, e.UpdatePreferences(ctx, preferences.Patch{}))

	after := e.UpdatePreferences(ctx, preferences.Patch{ChildAge: ptr(5)})
	assert.Equal(t, 5, after.ChildAge)
	assert.Equal(t, before.MaxWalkingDistance, after.MaxWalkingDistance)
	assert.Equal(t, before.PreferredTransitTypes, after.PreferredTransitTypes)

	reloaded := newEngine(t, store)
	assert.Equal(t, after, reloaded.Preferences())
}

func TestEngine_RecommendationsEmptyHistory(t *testing.T) {
	e := newEngine(t, storage.NewMemoryStore())

	got := e.PersonalizedRecommendations()

	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Start building")
}

func TestEngine_RecordJourneyRefreshesHistory(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())

	res, err := e.Generate(ctx, nycOrigin, nycDestination, nil)
	require.NoError(t, err)

	top := res.Routes[0]
	_, err = e.RecordJourney(ctx, journey.Journey{
		RouteID:         top.ID,
		RouteKind:       top.Kind,
		DurationMinutes: top.EstimatedMinutes,
		DifficultyLevel: top.Difficulty,
		Completed:       true,
		LearningEntryID: res.LearningEntryID,
	})
	require.NoError(t, err)

	assert.Len(t, e.History(), 1)
	assert.Len(t, e.PersonalizedRecommendations(), 3)

	entries, err := e.LearningEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].Completed)
	assert.True(t, *entries[0].Completed)
}

func TestEngine_HistoryRaisesScore(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	e := newEngine(t, store)
	e.UpdatePreferences(ctx, preferences.Patch{TimePreference: ptr(route.KindScenic)})
	overrides := &route.ContextOverrides{IsRushHour: ptr(false)}

	before, err := e.Generate(ctx, nycOrigin, nycDestination, overrides)
	require.NoError(t, err)
	e.Wait()

	var fastest route.SmartRoute
	for _, r := range before.Routes {
		if r.Kind == route.KindFastest {
			fastest = r
		}
	}
	_, err = e.RecordJourney(ctx, journey.Journey{
		RouteID:         fastest.ID,
		DurationMinutes: fastest.EstimatedMinutes,
		DifficultyLevel: fastest.Difficulty,
		Completed:       true,
	})
	require.NoError(t, err)

	after, err := e.Generate(ctx, nycOrigin, nycDestination, overrides)
	require.NoError(t, err)
	e.Wait()

	for _, r := range after.Routes {
		if r.Kind == route.KindFastest {
			assert.InDelta(t, fastest.Score+10, r.Score, 1e-9)
		}
	}
}

func TestEngine_ReplaceSafeZones(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())

	err := e.ReplaceSafeZones(ctx, []safezone.Zone{{ID: "home", Name: "Home", Center: nycOrigin, RadiusMeters: 50}})
	require.NoError(t, err)
	assert.Len(t, e.SafeZones(), 1)

	err = e.ReplaceSafeZones(ctx, []safezone.Zone{{ID: "bad"}})
	assert.ErrorIs(t, err, safezone.ErrInvalidZone)
	assert.Len(t, e.SafeZones(), 1)
}

func TestEngine_RouteInsightsUseContext(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())
	res, err := e.Generate(ctx, nycOrigin, nycDestination, &route.ContextOverrides{WeatherCondition: ptr(route.WeatherRainy)})
	require.NoError(t, err)
	e.Wait()

	got := e.RouteInsights(res.Routes[0], res.Context)

	assert.Contains(t, got, "🌧️ Rainy weather - bring an umbrella and watch for puddles")
	assert.Contains(t, got, "⚠️ Rush hour - expect crowds. Stay extra close to your grown-up!")
}

func TestEngine_ScoreRoute(t *testing.T) {
	e := newEngine(t, storage.NewMemoryStore())
	r := candidate(route.KindSafest, 95, 10, 1000, route.DifficultyEasy)

	got := e.ScoreRoute(r, route.BuildContext(tuesdayMorning, nil))

	assert.Equal(t, 100.0, got.Score)
}

func TestGenerate_OverrideTimeUsesEngineLocation(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, storage.NewMemoryStore())

	// 08:30 Tuesday in UTC+10 is 22:30 Monday in UTC.
	brisbane := time.FixedZone("UTC+10", 10*60*60)
	at := time.Date(2026, time.March, 10, 8, 30, 0, 0, brisbane)

	res, err := e.Generate(ctx, nycOrigin, nycDestination, &route.ContextOverrides{CurrentTime: &at})
	require.NoError(t, err)
	e.Wait()

	assert.Equal(t, time.UTC, res.Context.CurrentTime.Location())
	assert.True(t, at.Equal(res.Context.CurrentTime))
	assert.Equal(t, 22, res.Context.CurrentTime.Hour())
	assert.False(t, res.Context.IsRushHour)
	assert.False(t, res.Context.IsSchoolHours)
	assert.False(t, res.Context.IsWeekend)
}
