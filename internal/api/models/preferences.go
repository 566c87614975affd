package models

import (
	"fmt"

	"github.com/kidroute/kidroute/internal/preferences"
)

// ValidatePreferencesPatch checks the bounds of a partial preferences update.
func ValidatePreferencesPatch(p preferences.Patch) []FieldError {
	var errs []FieldError
	intRange := func(field string, v *int, lo, hi int) {
		if v != nil && (*v < lo || *v > hi) {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("must be between %d and %d", lo, hi),
				Code:    "out_of_range",
			})
		}
	}

	intRange("childAge", p.ChildAge, 1, 18)
	intRange("maxWalkingDistance", p.MaxWalkingDistance, 0, 10000)
	intRange("maxTransferCount", p.MaxTransferCount, 0, 10)

	if p.TimePreference != nil && !p.TimePreference.Valid() {
		errs = append(errs, FieldError{
			Field:   "timePreference",
			Message: "must be one of safest, fastest, easiest, scenic",
			Code:    "enum",
		})
	}
	for i, t := range p.PreferredTransitTypes {
		if !t.Valid() {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("preferredTransitTypes[%d]", i),
				Message: fmt.Sprintf("unknown transit type %q", t),
				Code:    "enum",
			})
		}
	}
	return errs
}

// RecommendationsResponse is the response of GET /v1/me/recommendations.
type RecommendationsResponse struct {
	Recommendations []string `json:"recommendations"`
}
