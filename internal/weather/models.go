package weather

import (
	"errors"
	"time"

	"github.com/kidroute/kidroute/internal/route"
)

// Weather errors.
var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation is the current weather at a point.
type Observation struct {
	Lat float64
	Lon float64

	// Temperature in Celsius.
	Temperature float64
	Humidity    float64
	WindSpeed   float64 // m/s

	Condition   Condition
	Description string

	ObservedAt time.Time
	FetchedAt  time.Time
}

// Condition is the provider-independent weather condition.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// RouteWeather maps the condition onto the four conditions used for route scoring.
func (c Condition) RouteWeather() route.Weather {
	switch c {
	case ConditionClear:
		return route.WeatherSunny
	case ConditionRain, ConditionDrizzle, ConditionThunderstorm:
		return route.WeatherRainy
	case ConditionSnow:
		return route.WeatherSnowy
	default:
		return route.WeatherCloudy
	}
}
