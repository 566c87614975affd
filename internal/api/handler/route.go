package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/api/middleware"
	"github.com/kidroute/kidroute/internal/api/models"
	"github.com/kidroute/kidroute/internal/api/response"
	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/smartroute"
	"github.com/kidroute/kidroute/internal/weather"
	"github.com/kidroute/kidroute/pkg/polyline"
)

// RouteHandler handles route computation.
type RouteHandler struct {
	engines *smartroute.Registry
	weather *weather.Service
	logger  zerolog.Logger
}

// NewRouteHandler creates a new RouteHandler. weatherSvc may be nil, in which
// case routes use the default weather.
func NewRouteHandler(engines *smartroute.Registry, weatherSvc *weather.Service, logger zerolog.Logger) *RouteHandler {
	return &RouteHandler{
		engines: engines,
		weather: weatherSvc,
		logger:  logger,
	}
}

// ComputeRoutes handles POST /v1/me/routes:compute - generate ranked route options.
func (h *RouteHandler) ComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.RouteComputeRequest
	if err := response.Decode(r, &input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if errs := input.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid route request", errs)
		return
	}

	ctx := r.Context()
	engine, ok := engineFor(w, r, h.engines, h.logger)
	if !ok {
		return
	}

	origin := input.Origin.Coordinate()
	destination := input.Destination.Coordinate()

	overrides := input.Context.Overrides()
	if h.weather != nil {
		overrides = h.weather.FillContext(ctx, origin, overrides)
	}

	result, err := engine.Generate(ctx, origin, destination, overrides)
	if err != nil {
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(ctx)).
			Msg("route generation failed")
		response.InternalError(w, r, "failed to generate routes")
		return
	}

	resp := models.RouteComputeResponse{
		GeneratedAt:     models.Timestamp(time.Now()),
		LearningEntryID: result.LearningEntryID,
		Context:         result.Context,
		Routes:          make([]models.RouteOption, 0, len(result.Routes)),
	}
	for _, rt := range result.Routes {
		resp.Routes = append(resp.Routes, models.RouteOption{
			SmartRoute: rt,
			Insights:   engine.RouteInsights(rt, result.Context),
			Polyline:   polyline.Encode(stepPath(rt)),
		})
	}

	response.JSON(w, r, http.StatusOK, resp)
}

func stepPath(rt route.SmartRoute) []geo.Coordinate {
	path := make([]geo.Coordinate, 0, len(rt.Steps))
	for _, s := range rt.Steps {
		path = append(path, s.Location)
	}
	return path
}

// engineFor resolves the engine of the authenticated user, writing a problem response on failure.
func engineFor(w http.ResponseWriter, r *http.Request, engines *smartroute.Registry, logger zerolog.Logger) (*smartroute.Engine, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "authentication required")
		return nil, false
	}
	engine, err := engines.ForUser(r.Context(), userID)
	if err != nil {
		logger.Error().Err(err).Str("user_id", userID).Msg("failed to load route engine")
		response.InternalError(w, r, "failed to load user state")
		return nil, false
	}
	return engine, true
}
