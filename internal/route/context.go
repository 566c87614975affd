package route

import "time"

// Context defaults applied when the caller supplies no weather data.
const (
	DefaultWeather     = WeatherCloudy
	DefaultTemperature = 20.0
)

// BuildContext derives a Context from now and applies overrides on top.
// Hour and weekday are read in now's location. When overrides carry a
// CurrentTime, the derived flags are computed from that time instead.
func BuildContext(now time.Time, o *ContextOverrides) Context {
	if o != nil && o.CurrentTime != nil {
		now = *o.CurrentTime
	}

	c := Context{
		CurrentTime:      now,
		WeatherCondition: DefaultWeather,
		Temperature:      DefaultTemperature,
		IsRushHour:       IsRushHour(now),
		IsWeekend:        IsWeekend(now),
		IsSchoolHours:    IsSchoolHours(now),
	}

	if o == nil {
		return c
	}
	if o.WeatherCondition != nil {
		c.WeatherCondition = *o.WeatherCondition
	}
	if o.Temperature != nil {
		c.Temperature = *o.Temperature
	}
	if o.IsRushHour != nil {
		c.IsRushHour = *o.IsRushHour
	}
	if o.IsWeekend != nil {
		c.IsWeekend = *o.IsWeekend
	}
	if o.IsSchoolHours != nil {
		c.IsSchoolHours = *o.IsSchoolHours
	}

	return c
}

// IsRushHour reports whether t falls within 07:00-09:59 or 17:00-19:59.
func IsRushHour(t time.Time) bool {
	h := t.Hour()
	return (h >= 7 && h <= 9) || (h >= 17 && h <= 19)
}

// IsWeekend reports whether t is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	d := t.Weekday()
	return d == time.Saturday || d == time.Sunday
}

// IsSchoolHours reports whether t is between 08:00 and 15:59 on a weekday.
func IsSchoolHours(t time.Time) bool {
	h := t.Hour()
	return !IsWeekend(t) && h >= 8 && h <= 15
}
