// Package preferences manages a user's route preferences.
package preferences

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/storage"
)

// TransitType is a mode of transport the user is willing to take.
type TransitType string

const (
	TransitSubway  TransitType = "subway"
	TransitBus     TransitType = "bus"
	TransitWalking TransitType = "walking"
	TransitTrain   TransitType = "train"
	TransitFerry   TransitType = "ferry"
)

// Valid reports whether t is a known transit type.
func (t TransitType) Valid() bool {
	switch t {
	case TransitSubway, TransitBus, TransitWalking, TransitTrain, TransitFerry:
		return true
	}
	return false
}

// RoutePreferences holds a user's routing preferences.
type RoutePreferences struct {
	ChildAge              int           `json:"childAge"`
	PreferredTransitTypes []TransitType `json:"preferredTransitTypes"`
	MaxWalkingDistance    int           `json:"maxWalkingDistance"`
	AvoidStairs           bool          `json:"avoidStairs"`
	PreferElevators       bool          `json:"preferElevators"`
	RequireSafeZones      bool          `json:"requireSafeZones"`
	VoiceEnabled          bool          `json:"voiceEnabled"`
	MaxTransferCount      int           `json:"maxTransferCount"`
	TimePreference        route.Kind    `json:"timePreference"`
}

// Defaults returns the preferences used when nothing is stored.
func Defaults() RoutePreferences {
	return RoutePreferences{
		ChildAge:              8,
		PreferredTransitTypes: []TransitType{TransitSubway, TransitBus, TransitWalking},
		MaxWalkingDistance:    800,
		AvoidStairs:           false,
		PreferElevators:       true,
		RequireSafeZones:      true,
		VoiceEnabled:          false,
		MaxTransferCount:      2,
		TimePreference:        route.KindSafest,
	}
}

// Clone returns a deep copy of p.
func (p RoutePreferences) Clone() RoutePreferences {
	if p.PreferredTransitTypes != nil {
		p.PreferredTransitTypes = append([]TransitType(nil), p.PreferredTransitTypes...)
	}
	return p
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	ChildAge              *int          `json:"childAge,omitempty"`
	PreferredTransitTypes []TransitType `json:"preferredTransitTypes,omitempty"`
	MaxWalkingDistance    *int          `json:"maxWalkingDistance,omitempty"`
	AvoidStairs           *bool         `json:"avoidStairs,omitempty"`
	PreferElevators       *bool         `json:"preferElevators,omitempty"`
	RequireSafeZones      *bool         `json:"requireSafeZones,omitempty"`
	VoiceEnabled          *bool         `json:"voiceEnabled,omitempty"`
	MaxTransferCount      *int          `json:"maxTransferCount,omitempty"`
	TimePreference        *route.Kind   `json:"timePreference,omitempty"`
}

// Apply returns p with the non-nil fields of patch applied.
func (patch Patch) Apply(p RoutePreferences) RoutePreferences {
	p = p.Clone()
	if patch.ChildAge != nil {
		p.ChildAge = *patch.ChildAge
	}
	if patch.PreferredTransitTypes != nil {
		p.PreferredTransitTypes = append([]TransitType(nil), patch.PreferredTransitTypes...)
	}
	if patch.MaxWalkingDistance != nil {
		p.MaxWalkingDistance = *patch.MaxWalkingDistance
	}
	if patch.AvoidStairs != nil {
		p.AvoidStairs = *patch.AvoidStairs
	}
	if patch.PreferElevators != nil {
		p.PreferElevators = *patch.PreferElevators
	}
	if patch.RequireSafeZones != nil {
		p.RequireSafeZones = *patch.RequireSafeZones
	}
	if patch.VoiceEnabled != nil {
		p.VoiceEnabled = *patch.VoiceEnabled
	}
	if patch.MaxTransferCount != nil {
		p.MaxTransferCount = *patch.MaxTransferCount
	}
	if patch.TimePreference != nil {
		p.TimePreference = *patch.TimePreference
	}
	return p
}

// Manager owns the in-memory preferences of one user and persists them.
type Manager struct {
	store  storage.Store
	logger zerolog.Logger

	// writeMu orders updates so the stored document matches the last applied patch.
	writeMu sync.Mutex

	mu    sync.RWMutex
	prefs RoutePreferences
}

// NewManager creates a manager holding the defaults. Call Load to read stored values.
func NewManager(store storage.Store, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		logger: logger,
		prefs:  Defaults(),
	}
}

// Load merges the stored preferences over the defaults.
// Fields absent from the stored document keep their default value.
// A read failure or malformed document leaves the defaults in place.
func (m *Manager) Load(ctx context.Context) RoutePreferences {
	prefs, err := storage.Get(ctx, m.store, storage.KeyPreferences, Defaults())
	if err != nil {
		if errors.Is(err, storage.ErrMalformed) {
			m.logger.Warn().Err(err).Msg("stored preferences are malformed, using defaults")
		} else {
			m.logger.Warn().Err(err).Msg("failed to load preferences, using defaults")
		}
		prefs = Defaults()
	}

	m.mu.Lock()
	m.prefs = prefs
	m.mu.Unlock()

	return prefs.Clone()
}

// Current returns a copy of the in-memory preferences.
func (m *Manager) Current() RoutePreferences {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefs.Clone()
}

// Update applies patch in memory and persists the full merged object.
// A persistence failure is logged as a warning; the in-memory update stays applied.
func (m *Manager) Update(ctx context.Context, patch Patch) RoutePreferences {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	m.prefs = patch.Apply(m.prefs)
	merged := m.prefs.Clone()
	m.mu.Unlock()

	if err := storage.Set(ctx, m.store, storage.KeyPreferences, merged); err != nil {
		m.logger.Warn().Err(err).Msg("failed to persist preferences")
	}
	return merged
}
