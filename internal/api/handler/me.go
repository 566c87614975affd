package handler

import (
	"errors"
	"net/http"
	"slices"

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/api/middleware"
	"github.com/kidroute/kidroute/internal/api/models"
	"github.com/kidroute/kidroute/internal/api/response"
	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/safezone"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/pkg/polyline"
)

// MeHandler handles the authenticated user's preferences, journeys,
// learning log and safe zones.
type MeHandler struct {
	engines *smartroute.Registry
	logger  zerolog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(engines *smartroute.Registry, logger zerolog.Logger) *MeHandler {
	return &MeHandler{
		engines: engines,
		logger:  logger,
	}
}

// GetPreferences handles GET /v1/me/preferences.
func (h *MeHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, engine.Preferences())
}

// UpdatePreferences handles PATCH /v1/me/preferences - partial update.
func (h *MeHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var patch preferences.Patch
	if err := response.Decode(r, &patch); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := models.ValidatePreferencesPatch(patch); len(errs) > 0 {
		response.BadRequest(w, r, "invalid preferences", errs)
		return
	}

	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, engine.UpdatePreferences(r.Context(), patch))
}

// Recommendations handles GET /v1/me/recommendations.
func (h *MeHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.RecommendationsResponse{
		Recommendations: engine.PersonalizedRecommendations(),
	})
}

// ListJourneys handles GET /v1/me/journeys - newest first.
func (h *MeHandler) ListJourneys(w http.ResponseWriter, r *http.Request) {
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	journeys := engine.History()
	slices.Reverse(journeys)
	response.JSON(w, r, http.StatusOK, models.JourneyListResponse{Journeys: journeys})
}

// RecordJourney handles POST /v1/me/journeys - record a completed journey.
func (h *MeHandler) RecordJourney(w http.ResponseWriter, r *http.Request) {
	var input journey.Journey
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}

	recorded, err := engine.RecordJourney(r.Context(), input)
	if err != nil {
		if errors.Is(err, journey.ErrInvalidJourney) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Msg("failed to record journey")
		response.InternalError(w, r, "failed to record journey")
		return
	}
	response.Created(w, r, "", recorded)
}

// Learning handles GET /v1/me/learning - the learning log, oldest first.
func (h *MeHandler) Learning(w http.ResponseWriter, r *http.Request) {
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	entries, err := engine.LearningEntries(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to read learning log")
		response.InternalError(w, r, "failed to read learning log")
		return
	}
	response.JSON(w, r, http.StatusOK, models.LearningResponse{Entries: entries})
}

// GetSafeZones handles GET /v1/me/safe-zones.
func (h *MeHandler) GetSafeZones(w http.ResponseWriter, r *http.Request) {
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, safeZonesResponse(engine.SafeZones()))
}

// ReplaceSafeZones handles PUT /v1/me/safe-zones - replace the whole set.
func (h *MeHandler) ReplaceSafeZones(w http.ResponseWriter, r *http.Request) {
	var input models.SafeZonesRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}

	if err := engine.ReplaceSafeZones(r.Context(), input.Zones); err != nil {
		if errors.Is(err, safezone.ErrInvalidZone) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		h.logger.Error().Err(err).Msg("failed to store safe zones")
		response.InternalError(w, r, "failed to store safe zones")
		return
	}
	response.JSON(w, r, http.StatusOK, safeZonesResponse(engine.SafeZones()))
}

// Reload handles POST /v1/me/engine:reload - re-read history and safe zones from storage.
func (h *MeHandler) Reload(w http.ResponseWriter, r *http.Request) {
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}
	if err := engine.Reload(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to reload engine")
		response.ServiceUnavailable(w, r, "failed to reload user state")
		return
	}
	response.NoContent(w, r)
}

func safeZonesResponse(zones []safezone.Zone) models.SafeZonesResponse {
	out := models.SafeZonesResponse{Zones: make([]models.SafeZoneResponse, 0, len(zones))}
	for _, z := range zones {
		out.Zones = append(out.Zones, models.SafeZoneResponse{
			Zone:    z,
			Polygon: polyline.Encode(z.Polygon()),
		})
	}
	return out
}
