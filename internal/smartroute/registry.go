package smartroute

import (
	"context"
	"sync"

	"github.com/kidroute/kidroute/internal/storage"
)

// Registry hands out one Engine per user. Engines are created on first use
// with their store scoped to the user's keys.
type Registry struct {
	base storage.Store
	cfg  Config

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewRegistry creates a registry. cfg.Store is replaced by a per-user view of base.
func NewRegistry(base storage.Store, cfg Config) *Registry {
	return &Registry{
		base:    base,
		cfg:     cfg,
		engines: make(map[string]*Engine),
	}
}

// ForUser returns the engine of userID, creating and loading it if needed.
// Loading happens outside the registry lock. When two callers race to create
// the same engine, the first one stored wins.
func (r *Registry) ForUser(ctx context.Context, userID string) (*Engine, error) {
	r.mu.Lock()
	e, ok := r.engines[userID]
	r.mu.Unlock()
	if ok {
		return e, nil
	}

	cfg := r.cfg
	cfg.Store = storage.ForUser(r.base, userID)
	cfg.Logger = r.cfg.Logger.With().Str("user_id", userID).Logger()

	created, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[userID]; ok {
		return e, nil
	}
	r.engines[userID] = created
	return created, nil
}

// Evict drops the cached engine of userID after its pending writes finish.
// The next ForUser call reloads state from the store.
func (r *Registry) Evict(userID string) {
	r.mu.Lock()
	e, ok := r.engines[userID]
	delete(r.engines, userID)
	r.mu.Unlock()

	if ok {
		e.Wait()
	}
}

// Wait blocks until every engine's pending learning appends have finished.
func (r *Registry) Wait() {
	r.mu.Lock()
	engines := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		engines = append(engines, e)
	}
	r.mu.Unlock()

	for _, e := range engines {
		e.Wait()
	}
}

// Len returns the number of cached engines.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}
