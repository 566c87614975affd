package models

import (
	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/learning"
	"github.com/kidroute/kidroute/internal/safezone"
)

// JourneyListResponse is the response of GET /v1/me/journeys.
type JourneyListResponse struct {
	Journeys []journey.Journey `json:"journeys"`
}

// LearningResponse is the response of GET /v1/me/learning.
type LearningResponse struct {
	Entries []learning.Entry `json:"entries"`
}

// SafeZoneResponse is a safe zone with its encoded boundary polygon.
type SafeZoneResponse struct {
	safezone.Zone
	Polygon string `json:"polygon"`
}

// SafeZonesRequest is the body of PUT /v1/me/safe-zones.
type SafeZonesRequest struct {
	Zones []safezone.Zone `json:"zones"`
}

// SafeZonesResponse is the response of the safe zone endpoints.
type SafeZonesResponse struct {
	Zones []SafeZoneResponse `json:"zones"`
}
