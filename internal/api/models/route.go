package models

import (
	"github.com/kidroute/kidroute/internal/route"
)

// ContextInput overrides parts of the derived route context.
type ContextInput struct {
	CurrentTime      *Timestamp     `json:"currentTime,omitempty"`
	WeatherCondition *route.Weather `json:"weatherCondition,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	IsRushHour       *bool          `json:"isRushHour,omitempty"`
	IsWeekend        *bool          `json:"isWeekend,omitempty"`
	IsSchoolHours    *bool          `json:"isSchoolHours,omitempty"`
}

// Overrides converts the input to engine overrides. A nil input yields nil.
func (c *ContextInput) Overrides() *route.ContextOverrides {
	if c == nil {
		return nil
	}
	o := &route.ContextOverrides{
		WeatherCondition: c.WeatherCondition,
		Temperature:      c.Temperature,
		IsRushHour:       c.IsRushHour,
		IsWeekend:        c.IsWeekend,
		IsSchoolHours:    c.IsSchoolHours,
	}
	if c.CurrentTime != nil {
		t := c.CurrentTime.Time()
		o.CurrentTime = &t
	}
	return o
}

// RouteComputeRequest is the body of POST /v1/me/routes:compute.
type RouteComputeRequest struct {
	Origin      *Point        `json:"origin"`
	Destination *Point        `json:"destination"`
	Context     *ContextInput `json:"context,omitempty"`
}

// Validate returns the field errors of the request.
func (r *RouteComputeRequest) Validate() []FieldError {
	var errs []FieldError
	errs = append(errs, ValidatePoint("origin", r.Origin)...)
	errs = append(errs, ValidatePoint("destination", r.Destination)...)
	if r.Context != nil && r.Context.WeatherCondition != nil && !r.Context.WeatherCondition.Valid() {
		errs = append(errs, FieldError{
			Field:   "context.weatherCondition",
			Message: "must be one of sunny, rainy, snowy, cloudy",
			Code:    "enum",
		})
	}
	return errs
}

// RouteOption is a ranked route with its insights and encoded step path.
type RouteOption struct {
	route.SmartRoute
	Insights []string `json:"insights"`
	Polyline string   `json:"polyline"`
}

// RouteComputeResponse is the response of POST /v1/me/routes:compute.
type RouteComputeResponse struct {
	GeneratedAt     Timestamp     `json:"generatedAt"`
	LearningEntryID string        `json:"learningEntryId"`
	Context         route.Context `json:"context"`
	Routes          []RouteOption `json:"routes"`
}
