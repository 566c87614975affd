package smartroute_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/internal/storage"
)

func TestRegistry_OneEnginePerUser(t *testing.T) {
	ctx := context.Background()
	base := storage.NewMemoryStore()
	reg := smartroute.NewRegistry(base, smartroute.Config{
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return tuesdayMorning },
		Location: time.UTC,
	})

	alice, err := reg.ForUser(ctx, "alice")
	require.NoError(t, err)
	again, err := reg.ForUser(ctx, "alice")
	require.NoError(t, err)
	bob, err := reg.ForUser(ctx, "bob")
	require.NoError(t, err)

	assert.Same(t, alice, again)
	assert.NotSame(t, alice, bob)
	assert.Equal(t, 2, reg.Len())

	alice.UpdatePreferences(ctx, preferences.Patch{ChildAge: ptr(5)})
	assert.Equal(t, 8, bob.Preferences().ChildAge)

	_, err = base.Get(ctx, "users/alice/route_preferences")
	assert.NoError(t, err)
}

func TestRegistry_EvictReloadsFromStore(t *testing.T) {
	ctx := context.Background()
	reg := smartroute.NewRegistry(storage.NewMemoryStore(), smartroute.Config{Logger: zerolog.Nop()})

	e, err := reg.ForUser(ctx, "alice")
	require.NoError(t, err)
	_, err = e.Generate(ctx, nycOrigin, nycDestination, nil)
	require.NoError(t, err)
	e.UpdatePreferences(ctx, preferences.Patch{ChildAge: ptr(11)})

	reg.Evict("alice")
	assert.Zero(t, reg.Len())

	fresh, err := reg.ForUser(ctx, "alice")
	require.NoError(t, err)
	assert.NotSame(t, e, fresh)
	assert.Equal(t, 11, fresh.Preferences().ChildAge)

	entries, err := fresh.LearningEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	reg.Wait()
}

// gatedStore blocks reads of one user's keys until release is closed.
type gatedStore struct {
	storage.Store
	prefix  string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, s.prefix) {
		s.once.Do(func() { close(s.entered) })
		<-s.release
	}
	return s.Store.Get(ctx, key)
}

func TestRegistry_SlowLoadDoesNotBlockOtherUsers(t *testing.T) {
	ctx := context.Background()
	base := &gatedStore{
		Store:   storage.NewMemoryStore(),
		prefix:  "users/slow/",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	reg := smartroute.NewRegistry(base, smartroute.Config{Logger: zerolog.Nop(), Location: time.UTC})

	slowDone := make(chan error, 1)
	go func() {
		_, err := reg.ForUser(ctx, "slow")
		slowDone <- err
	}()
	<-base.entered

	fastDone := make(chan error, 1)
	go func() {
		_, err := reg.ForUser(ctx, "fast")
		fastDone <- err
	}()

	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ForUser blocked behind another user's load")
	}

	close(base.release)
	require.NoError(t, <-slowDone)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_ConcurrentForUserSharesEngine(t *testing.T) {
	ctx := context.Background()
	reg := smartroute.NewRegistry(storage.NewMemoryStore(), smartroute.Config{Logger: zerolog.Nop(), Location: time.UTC})

	const callers = 16
	engines := make([]*smartroute.Engine, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := reg.ForUser(ctx, "alice")
			assert.NoError(t, err)
			engines[i] = e
		}()
	}
	wg.Wait()

	for _, e := range engines[1:] {
		assert.Same(t, engines[0], e)
	}
	assert.Equal(t, 1, reg.Len())
}
