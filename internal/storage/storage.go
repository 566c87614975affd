// Package storage provides the key-value persistence used by the route engine.
// Values are JSON documents addressed by string keys. Writes are last-write-wins.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Well-known keys.
const (
	KeyPreferences    = "route_preferences"
	KeyLearning       = "route_learning"
	KeyJourneyHistory = "journey_history"
	KeySafeZones      = "safe_zones"
)

// Sentinel errors for storage operations.
var (
	// ErrNotFound indicates no value is stored under the key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrMalformed indicates the stored value cannot be decoded into the requested shape.
	ErrMalformed = errors.New("storage: malformed value")
)

// Store is a raw JSON key-value store.
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
}

// Get decodes the value stored under key on top of def, so object fields
// missing from the stored document keep their value from def.
// Missing keys and JSON null return def with a nil error.
// Values that do not decode into T return def and an error wrapping ErrMalformed.
func Get[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("get %q: %w", key, err)
	}

	if len(raw) == 0 || string(raw) == "null" {
		return def, nil
	}

	v := def
	if err := json.Unmarshal(raw, &v); err != nil {
		return def, fmt.Errorf("decode %q: %w: %v", key, ErrMalformed, err)
	}
	return v, nil
}

// Set encodes value as JSON and stores it under key.
func Set[T any](ctx context.Context, s Store, key string, value T) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Prefixed scopes every key of the underlying store under prefix.
type Prefixed struct {
	store  Store
	prefix string
}

var _ Store = (*Prefixed)(nil)

// WithPrefix returns a Store that prepends prefix to every key.
func WithPrefix(s Store, prefix string) *Prefixed {
	return &Prefixed{store: s, prefix: prefix}
}

// ForUser scopes s to the keys of a single user.
func ForUser(s Store, userID string) *Prefixed {
	return WithPrefix(s, "users/"+userID+"/")
}

// Get implements Store.
func (p *Prefixed) Get(ctx context.Context, key string) ([]byte, error) {
	return p.store.Get(ctx, p.prefix+key)
}

// Set implements Store.
func (p *Prefixed) Set(ctx context.Context, key string, value []byte) error {
	return p.store.Set(ctx, p.prefix+key, value)
}

// Ping implements Store.
func (p *Prefixed) Ping(ctx context.Context) error {
	return p.store.Ping(ctx)
}
