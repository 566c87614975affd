// Package route defines the smart route data model shared by the generators,
// the scoring engine and the API.
package route

import (
	"time"

	"github.com/kidroute/kidroute/internal/geo"
)

// Kind identifies which generator produced a route.
type Kind string

const (
	KindSafest  Kind = "safest"
	KindFastest Kind = "fastest"
	KindEasiest Kind = "easiest"
	KindScenic  Kind = "scenic"
)

// Kinds lists every route kind in generation order. Ties in ranking keep this order.
var Kinds = []Kind{KindSafest, KindFastest, KindEasiest, KindScenic}

// Valid reports whether k is a known route kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSafest, KindFastest, KindEasiest, KindScenic:
		return true
	}
	return false
}

// ID returns the stable route id for the kind, e.g. "route-safest".
func (k Kind) ID() string {
	return "route-" + string(k)
}

// Difficulty rates how demanding a route is for a child.
type Difficulty string

const (
	DifficultyEasy        Difficulty = "easy"
	DifficultyModerate    Difficulty = "moderate"
	DifficultyChallenging Difficulty = "challenging"
)

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyChallenging:
		return true
	}
	return false
}

// Weather is the coarse weather condition used for scoring.
type Weather string

const (
	WeatherSunny  Weather = "sunny"
	WeatherRainy  Weather = "rainy"
	WeatherSnowy  Weather = "snowy"
	WeatherCloudy Weather = "cloudy"
)

// Valid reports whether w is a known weather condition.
func (w Weather) Valid() bool {
	switch w {
	case WeatherSunny, WeatherRainy, WeatherSnowy, WeatherCloudy:
		return true
	}
	return false
}

// StepType is the kind of action a step asks the traveller to perform.
type StepType string

const (
	StepWalk        StepType = "walk"
	StepTransit     StepType = "transit"
	StepTransfer    StepType = "transfer"
	StepWait        StepType = "wait"
	StepSafetyCheck StepType = "safety-check"
)

// TransitInfo describes the vehicle taken during a transit step.
type TransitInfo struct {
	Line      string `json:"line"`
	Direction string `json:"direction"`
	Stops     int    `json:"stops"`
}

// Step is one ordered instruction within a route.
type Step struct {
	ID              string         `json:"id"`
	Type            StepType       `json:"type"`
	Instruction     string         `json:"instruction"`
	KidFriendlyText string         `json:"kidFriendlyInstruction"`
	DurationMinutes int            `json:"duration"`
	DistanceMeters  *float64       `json:"distance,omitempty"`
	Location        geo.Coordinate `json:"coordinates"`
	Transit         *TransitInfo   `json:"transitInfo,omitempty"`
	SafetyTip       string         `json:"safetyTip,omitempty"`
	Landmark        string         `json:"landmark,omitempty"`
	VoiceGuidance   string         `json:"voiceGuidance"`
}

// Accessibility flags.
type Accessibility struct {
	WheelchairFriendly bool `json:"wheelchairFriendly"`
	StrollerFriendly   bool `json:"strollerFriendly"`
	ElevatorAccess     bool `json:"elevatorAccess"`
}

// SmartRoute is one synthesized route candidate.
type SmartRoute struct {
	ID                    string        `json:"id"`
	Kind                  Kind          `json:"kind"`
	Name                  string        `json:"name"`
	Description           string        `json:"description"`
	Score                 float64       `json:"aiScore"`
	EstimatedMinutes      int           `json:"estimatedDuration"`
	WalkingDistanceMeters float64       `json:"walkingDistance"`
	Steps                 []Step        `json:"steps"`
	SafetyFeatures        []string      `json:"safetyFeatures"`
	AIRecommendations     []string      `json:"aiRecommendations"`
	Difficulty            Difficulty    `json:"difficultyLevel"`
	KidFriendlyScore      int           `json:"kidFriendlyScore"`
	Accessibility         Accessibility `json:"accessibility"`
}

// Context is the situational snapshot used to bias scoring.
type Context struct {
	CurrentTime      time.Time `json:"currentTime"`
	WeatherCondition Weather   `json:"weatherCondition"`
	Temperature      float64   `json:"temperature"`
	IsRushHour       bool      `json:"isRushHour"`
	IsWeekend        bool      `json:"isWeekend"`
	IsSchoolHours    bool      `json:"isSchoolHours"`
}

// ContextOverrides carries caller-supplied context fields. Nil fields fall
// back to values derived from the clock or to the defaults.
type ContextOverrides struct {
	CurrentTime      *time.Time `json:"currentTime,omitempty"`
	WeatherCondition *Weather   `json:"weatherCondition,omitempty"`
	Temperature      *float64   `json:"temperature,omitempty"`
	IsRushHour       *bool      `json:"isRushHour,omitempty"`
	IsWeekend        *bool      `json:"isWeekend,omitempty"`
	IsSchoolHours    *bool      `json:"isSchoolHours,omitempty"`
}
