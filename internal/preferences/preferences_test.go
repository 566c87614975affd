package preferences_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func TestLoad_NothingStoredUsesDefaults(t *testing.T) {
	m := preferences.NewManager(storage.NewMemoryStore(), zerolog.Nop())

	got := m.Load(context.Background())

	assert.Equal(t, preferences.Defaults(), got)
	assert.Equal(t, 8, got.ChildAge)
	assert.Equal(t, 800, got.MaxWalkingDistance)
	assert.Equal(t, route.KindSafest, got.TimePreference)
}

func TestLoad_MergesStoredOverDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyPreferences, []byte(`{"childAge":5,"timePreference":"fastest"}`)))

	m := preferences.NewManager(store, zerolog.Nop())
	got := m.Load(ctx)

	want := preferences.Defaults()
	want.ChildAge = 5
	want.TimePreference = route.KindFastest
	assert.Equal(t, want, got)
}

func TestLoad_MalformedFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(ctx, storage.KeyPreferences, []byte(`[1,2,3]`)))

	m := preferences.NewManager(store, zerolog.Nop())

	assert.Equal(t, preferences.Defaults(), m.Load(ctx))
}

func TestUpdate_EmptyPatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := preferences.NewManager(storage.NewMemoryStore(), zerolog.Nop())
	before := m.Load(ctx)

	assert.Equal(t, before, m.Update(ctx, preferences.Patch{}))
	assert.Equal(t, before, m.Update(ctx, preferences.Patch{}))
}

func TestUpdate_ChangesOnlyPatchedFields(t *testing.T) {
	ctx := context.Background()
	m := preferences.NewManager(storage.NewMemoryStore(), zerolog.Nop())
	m.Load(ctx)

	m.Update(ctx, preferences.Patch{MaxWalkingDistance: ptr(1200)})
	got := m.Update(ctx, preferences.Patch{ChildAge: ptr(5)})

	want := preferences.Defaults()
	want.ChildAge = 5
	want.MaxWalkingDistance = 1200
	assert.Equal(t, want, got)
}

func TestUpdate_PersistsFullObject(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	m := preferences.NewManager(store, zerolog.Nop())
	m.Load(ctx)

	m.Update(ctx, preferences.Patch{VoiceEnabled: ptr(true)})

	raw, err := store.Get(ctx, storage.KeyPreferences)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"childAge": 8,
		"preferredTransitTypes": ["subway","bus","walking"],
		"maxWalkingDistance": 800,
		"avoidStairs": false,
		"preferElevators": true,
		"requireSafeZones": true,
		"voiceEnabled": true,
		"maxTransferCount": 2,
		"timePreference": "safest"
	}`, string(raw))

	reloaded := preferences.NewManager(store, zerolog.Nop()).Load(ctx)
	assert.True(t, reloaded.VoiceEnabled)
}

func TestUpdate_PersistenceFailureKeepsInMemoryState(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	m := preferences.NewManager(store, zerolog.Nop())
	m.Load(ctx)

	store.FailWrites(errors.New("unavailable"))
	got := m.Update(ctx, preferences.Patch{ChildAge: ptr(4)})

	assert.Equal(t, 4, got.ChildAge)
	assert.Equal(t, 4, m.Current().ChildAge)
}

func TestCurrent_ReturnsCopy(t *testing.T) {
	m := preferences.NewManager(storage.NewMemoryStore(), zerolog.Nop())

	p := m.Current()
	p.PreferredTransitTypes[0] = preferences.TransitFerry

	assert.Equal(t, preferences.TransitSubway, m.Current().PreferredTransitTypes[0])
}

func TestTransitType_Valid(t *testing.T) {
	for _, tt := range preferences.Defaults().PreferredTransitTypes {
		assert.True(t, tt.Valid(), tt)
	}
	assert.True(t, preferences.TransitFerry.Valid())
	assert.False(t, preferences.TransitType("rocket").Valid())
}

// heldStore blocks the first write until release is closed.
type heldStore struct {
	storage.Store
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *heldStore) Set(ctx context.Context, key string, value []byte) error {
	first := false
	s.once.Do(func() {
		first = true
		close(s.entered)
	})
	if first {
		<-s.release
	}
	return s.Store.Set(ctx, key, value)
}

func TestUpdate_ConcurrentPatchesPersistInApplyOrder(t *testing.T) {
	ctx := context.Background()
	store := &heldStore{
		Store:   storage.NewMemoryStore(),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	m := preferences.NewManager(store, zerolog.Nop())
	m.Load(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.Update(ctx, preferences.Patch{ChildAge: ptr(5)})
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		m.Update(ctx, preferences.Patch{VoiceEnabled: ptr(true)})
	}()

	time.Sleep(20 * time.Millisecond)
	close(store.release)
	wg.Wait()

	stored := preferences.NewManager(store, zerolog.Nop()).Load(ctx)
	assert.Equal(t, m.Current(), stored)
	assert.Equal(t, 5, stored.ChildAge)
	assert.True(t, stored.VoiceEnabled)
}
