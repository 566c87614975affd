package smartroute_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/smartroute"
)

func TestInsights_AgeBands(t *testing.T) {
	r := route.SmartRoute{}
	rc := quietContext()

	tests := []struct {
		age  int
		want string
	}{
		{5, "This route is designed for young children with extra safety measures"},
		{6, "Great learning opportunity for building independence"},
		{9, "Great learning opportunity for building independence"},
		{10, "This route helps develop navigation skills"},
	}

	for _, tt := range tests {
		got := smartroute.Insights(r, rc, prefsWith(func(p *preferences.RoutePreferences) { p.ChildAge = tt.age }))
		assert.Equal(t, []string{tt.want}, got, "age %d", tt.age)
	}
}

func TestInsights_ContextAndRoute(t *testing.T) {
	r := route.SmartRoute{
		SafetyFeatures: []string{"a", "b", "c", "d"},
		Accessibility:  route.Accessibility{WheelchairFriendly: true},
	}
	rc := route.Context{WeatherCondition: route.WeatherRainy, IsRushHour: true}

	got := smartroute.Insights(r, rc, preferences.Defaults())

	assert.Equal(t, []string{
		"Great learning opportunity for building independence",
		"⚠️ Rush hour - expect crowds. Stay extra close to your grown-up!",
		"🌧️ Rainy weather - bring an umbrella and watch for puddles",
		"✅ This route has excellent safety features",
		"♿ Fully accessible route with elevators",
	}, got)
}

func TestInsights_ThreeSafetyFeaturesIsNotEnough(t *testing.T) {
	r := route.SmartRoute{SafetyFeatures: []string{"a", "b", "c"}}

	got := smartroute.Insights(r, quietContext(), preferences.Defaults())

	assert.NotContains(t, got, "✅ This route has excellent safety features")
}

func TestRecommendations_EmptyHistory(t *testing.T) {
	got := smartroute.Recommendations(nil, preferences.Defaults())

	assert.Len(t, got, 1)
	assert.Contains(t, got[0], "Start building")
}

func TestRecommendations_Summary(t *testing.T) {
	history := []journey.Journey{
		{DurationMinutes: 10, Completed: true},
		{DurationMinutes: 15, Completed: true},
		{DurationMinutes: 12, Completed: false},
	}

	got := smartroute.Recommendations(history, preferences.Defaults())

	assert.Equal(t, []string{
		"Based on your history, you typically prefer safest routes",
		"Your average journey takes 13 minutes",
	}, got)
}

func TestRecommendations_HighCompletionRate(t *testing.T) {
	history := make([]journey.Journey, 10)
	for i := range history {
		history[i] = journey.Journey{DurationMinutes: 20, Completed: true}
	}

	got := smartroute.Recommendations(history, prefsWith(func(p *preferences.RoutePreferences) {
		p.TimePreference = route.KindScenic
	}))

	assert.Equal(t, []string{
		"Based on your history, you typically prefer scenic routes",
		"Your average journey takes 20 minutes",
		"🌟 Great job! You complete almost all your journeys successfully!",
	}, got)
}

func TestRecommendations_NinetyPercentIsNotEnough(t *testing.T) {
	history := make([]journey.Journey, 10)
	for i := range history {
		history[i] = journey.Journey{DurationMinutes: 20, Completed: i > 0}
	}

	got := smartroute.Recommendations(history, preferences.Defaults())

	assert.Len(t, got, 2)
}
