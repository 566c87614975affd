package smartroute

import (
	"math"
	"sort"

	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/preferences"
	"github.com/kidroute/kidroute/internal/route"
)

// Scoring adjustments. All are additive.
const (
	preferenceBonus      = 10.0
	youngChildBonus      = 5.0
	rainyShortWalkBonus  = 5.0
	rushHourSafestBonus  = 5.0
	historyBonusMax      = 10.0
	youngChildAge        = 8
	rainyWalkLimitMeters = 500.0
	similarWindowMinutes = 10
)

// Snapshot is the per-user state scoring reads.
type Snapshot struct {
	Preferences preferences.RoutePreferences
	History     []journey.Journey
}

// Score returns a copy of r with its score adjusted for rc and s, clamped to [0,100].
func Score(r route.SmartRoute, rc route.Context, s Snapshot) route.SmartRoute {
	score := r.Score

	// Only the safest and fastest preferences carry a matching bonus.
	switch {
	case s.Preferences.TimePreference == route.KindSafest && r.Kind == route.KindSafest:
		score += preferenceBonus
	case s.Preferences.TimePreference == route.KindFastest && r.Kind == route.KindFastest:
		score += preferenceBonus
	}

	if s.Preferences.ChildAge < youngChildAge && r.Difficulty == route.DifficultyEasy {
		score += youngChildBonus
	}

	if rc.WeatherCondition == route.WeatherRainy && r.WalkingDistanceMeters < rainyWalkLimitMeters {
		score += rainyShortWalkBonus
	}

	if rc.IsRushHour && r.Kind == route.KindSafest {
		score += rushHourSafestBonus
	}

	if similar := FindSimilarJourneys(r, s.History); len(similar) > 0 {
		completed := 0
		for _, j := range similar {
			if j.Completed {
				completed++
			}
		}
		score += historyBonusMax * float64(completed) / float64(len(similar))
	}

	r.Score = clampScore(score)
	return r
}

// FindSimilarJourneys returns the journeys whose duration is within
// 10 minutes (exclusive) of the route's estimate and whose difficulty matches.
func FindSimilarJourneys(r route.SmartRoute, history []journey.Journey) []journey.Journey {
	var out []journey.Journey
	for _, j := range history {
		delta := j.DurationMinutes - r.EstimatedMinutes
		if delta < 0 {
			delta = -delta
		}
		if delta < similarWindowMinutes && j.DifficultyLevel == r.Difficulty {
			out = append(out, j)
		}
	}
	return out
}

// Rank sorts routes by descending score. Equal scores keep their input order.
func Rank(routes []route.SmartRoute) {
	sort.SliceStable(routes, func(i, j int) bool {
		return routes[i].Score > routes[j].Score
	})
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}
