// Package safezone manages the user's safe zones: places such as school,
// home or a trusted shop where a child can stop and ask for help.
package safezone

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/internal/storage"
)

// PolygonPoints is the vertex count used when rendering a zone boundary.
const PolygonPoints = 64

// ErrInvalidZone indicates a safe zone failed validation.
var ErrInvalidZone = errors.New("invalid safe zone")

// Zone is a circular safe area.
type Zone struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Center       geo.Coordinate `json:"center"`
	RadiusMeters float64        `json:"radius"`
}

// Validate checks that the zone is usable.
func (z Zone) Validate() error {
	switch {
	case strings.TrimSpace(z.ID) == "":
		return fmt.Errorf("%w: id is required", ErrInvalidZone)
	case strings.TrimSpace(z.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidZone)
	case !z.Center.IsFinite() || !z.Center.InRange():
		return fmt.Errorf("%w: center is out of range", ErrInvalidZone)
	case z.RadiusMeters <= 0:
		return fmt.Errorf("%w: radius must be positive", ErrInvalidZone)
	}
	return nil
}

// Polygon returns the closed boundary ring of the zone.
func (z Zone) Polygon() []geo.Coordinate {
	return geo.CircleToPolygon(z.Center, z.RadiusMeters, PolygonPoints)
}

// OnRoute returns the zones whose center lies within the bounding box
// spanned by origin and destination, in their stored order.
func OnRoute(zones []Zone, origin, destination geo.Coordinate) []Zone {
	box := geo.BoundsOf(origin, destination)

	var out []Zone
	for _, z := range zones {
		if box.Contains(z.Center) {
			out = append(out, z)
		}
	}
	return out
}

// Load reads the stored zones. A malformed stored value is treated as no zones.
func Load(ctx context.Context, store storage.Store, logger zerolog.Logger) ([]Zone, error) {
	zones, err := storage.Get[[]Zone](ctx, store, storage.KeySafeZones, nil)
	if errors.Is(err, storage.ErrMalformed) {
		logger.Warn().Err(err).Msg("safe zones are malformed, treating as empty")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return zones, nil
}

// Save validates and replaces the stored zones.
func Save(ctx context.Context, store storage.Store, zones []Zone) error {
	seen := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		if err := z.Validate(); err != nil {
			return err
		}
		if _, dup := seen[z.ID]; dup {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidZone, z.ID)
		}
		seen[z.ID] = struct{}{}
	}
	if zones == nil {
		zones = []Zone{}
	}
	return storage.Set(ctx, store, storage.KeySafeZones, zones)
}
