// Package models provides request and response models for the KidRoute API.
package models

import (
	"fmt"
	"time"

	"github.com/kidroute/kidroute/internal/geo"
)

// Point is a geographic coordinate in a request or response.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinate converts p to a geo.Coordinate.
func (p Point) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// ValidatePoint reports field errors for a missing or out-of-range point.
func ValidatePoint(field string, p *Point) []FieldError {
	if p == nil {
		return []FieldError{{Field: field, Message: "is required", Code: "required"}}
	}
	c := p.Coordinate()
	if !c.IsFinite() || !c.InRange() {
		return []FieldError{{
			Field:   field,
			Message: fmt.Sprintf("(%g, %g) is not a valid coordinate", p.Lat, p.Lon),
			Code:    "out_of_range",
		}}
	}
	return nil
}

// HealthStatus is the health of the service or one of its dependencies.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time.Time that marshals as RFC 3339.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be an RFC 3339 string")
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
