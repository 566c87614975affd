// Package handler provides HTTP handlers for the KidRoute API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/kidroute/kidroute/internal/api/models"
	"github.com/kidroute/kidroute/internal/api/response"
	"github.com/kidroute/kidroute/internal/provider/resilience"
)

const pingTimeout = 2 * time.Second

// Pinger checks that a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	store     Pinger
	providers *resilience.Registry
	logger    zerolog.Logger
}

// OpsConfig holds the dependencies of an OpsHandler. Store and Providers are optional.
type OpsConfig struct {
	Version   string
	BuildTime string
	Store     Pinger
	Providers *resilience.Registry
	Logger    zerolog.Logger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		store:     cfg.Store,
		providers: cfg.Providers,
		logger:    cfg.Logger,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.pingStore(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("readiness check failed")
		response.ServiceUnavailable(w, r, "storage is not reachable")
		return
	}
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status - storage and provider status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Providers: []resilience.ProviderStatus{},
	}

	storeStatus := models.SubsystemStatus{Name: "storage", Status: models.HealthStatusOK}
	if err := h.pingStore(r.Context()); err != nil {
		storeStatus.Status = models.HealthStatusFail
		storeStatus.Detail = err.Error()
		status.Status = models.HealthStatusFail
	}
	status.Subsystems = []models.SubsystemStatus{storeStatus}

	if h.providers != nil {
		status.Providers = h.providers.Status()
		for _, p := range status.Providers {
			if !p.Healthy() && status.Status == models.HealthStatusOK {
				status.Status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) pingStore(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}
