package smartroute

import (
	"fmt"
	"math"

	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/route"
)

// MsgStartHistory is the only recommendation given when there is no journey history.
const MsgStartHistory = "Start building your journey history for personalized suggestions!"

// Insights returns human-readable callouts for r.
func Insights(r route.SmartRoute, rc route.Context, prefs preferences.RoutePreferences) []string {
	var out []string

	switch {
	case prefs.ChildAge < 6:
		out = append(out, "This route is designed for young children with extra safety measures")
	case prefs.ChildAge < 10:
		out = append(out, "Great learning opportunity for building independence")
	default:
		out = append(out, "This route helps develop navigation skills")
	}

	if rc.IsRushHour {
		out = append(out, "⚠️ Rush hour - expect crowds. Stay extra close to your grown-up!")
	}

	switch rc.WeatherCondition {
	case route.WeatherRainy:
		out = append(out, "🌧️ Rainy weather - bring an umbrella and watch for puddles")
	case route.WeatherSnowy:
		out = append(out, "❄️ Snowy weather - wear warm boots and walk slowly on icy paths")
	}

	if len(r.SafetyFeatures) > 3 {
		out = append(out, "✅ This route has excellent safety features")
	}

	if r.Accessibility.WheelchairFriendly {
		out = append(out, "♿ Fully accessible route with elevators")
	}

	return out
}

// Recommendations summarizes the journey history.
func Recommendations(history []journey.Journey, prefs preferences.RoutePreferences) []string {
	if len(history) == 0 {
		return []string{MsgStartHistory}
	}

	var total, completed int
	for _, j := range history {
		total += j.DurationMinutes
		if j.Completed {
			completed++
		}
	}
	avg := math.Ceil(float64(total) / float64(len(history)))

	out := []string{
		fmt.Sprintf("Based on your history, you typically prefer %s routes", prefs.TimePreference),
		fmt.Sprintf("Your average journey takes %d minutes", int(avg)),
	}

	if rate := float64(completed) / float64(len(history)) * 100; rate > 90 {
		out = append(out, "🌟 Great job! You complete almost all your journeys successfully!")
	}

	return out
}
