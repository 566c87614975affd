package models

import "github.com/kidroute/kidroute/internal/provider/resilience"

// Health is the response of the liveness and readiness checks.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus reports subsystem and external provider status.
type SystemStatus struct {
	Status     HealthStatus                `json:"status"`
	Time       Timestamp                   `json:"time"`
	Subsystems []SubsystemStatus           `json:"subsystems"`
	Providers  []resilience.ProviderStatus `json:"providers"`
}

// SubsystemStatus is the status of an internal dependency.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}
