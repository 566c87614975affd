package smartroute

import (
	"fmt"
	"math"

	"github.com/kidroute/kidroute/internal/geo"
	"github.com/kidroute/kidroute/internal/route"
	"github.com/kidroute/kidroute/internal/safezone"
)

// Walking paces in meters per minute.
const (
	SafestPace  = 80.0
	FastestPace = 100.0
	EasiestPace = 60.0
	ScenicPace  = 70.0
)

// Distance factors applied to the straight-line distance. Both are tunable
// heuristics, not calibrated against real networks.
const (
	// FastestWalkingFactor models walking replaced by transit on the fastest route.
	FastestWalkingFactor = 0.6
	// ScenicDistanceFactor models the detour taken by the scenic route.
	ScenicDistanceFactor = 1.2
)

// Input is what every generator receives.
type Input struct {
	Origin      geo.Coordinate
	Destination geo.Coordinate
	Context     route.Context
	// SafeZones are the user's zones; generators pick the ones on the route.
	SafeZones []safezone.Zone
}

// Generator builds one unscored route candidate.
type Generator func(in Input) (route.SmartRoute, error)

type kindGenerator struct {
	kind route.Kind
	gen  Generator
}

// defaultGenerators returns the four generators in ranking tie-break order.
func defaultGenerators() []kindGenerator {
	return []kindGenerator{
		{route.KindSafest, GenerateSafest},
		{route.KindFastest, GenerateFastest},
		{route.KindEasiest, GenerateEasiest},
		{route.KindScenic, GenerateScenic},
	}
}

// Duration returns the walking time in whole minutes, rounded up.
func Duration(distanceMeters, pace float64) int {
	if distanceMeters <= 0 {
		return 0
	}
	return int(math.Ceil(distanceMeters / pace))
}

func straightLine(in Input) (float64, error) {
	if !in.Origin.IsFinite() || !in.Destination.IsFinite() {
		return 0, fmt.Errorf("%w: origin %v, destination %v", ErrInvalidCoordinates, in.Origin, in.Destination)
	}
	return geo.Distance(in.Origin, in.Destination), nil
}

func arrivalStep(n int, dest geo.Coordinate) route.Step {
	return route.Step{
		ID:              stepID(n),
		Type:            route.StepWalk,
		Instruction:     "Arrive at your destination",
		KidFriendlyText: "You made it! High five!",
		DurationMinutes: 0,
		Location:        dest,
		VoiceGuidance:   "You have arrived. Great job!",
	}
}

func stepID(n int) string {
	return fmt.Sprintf("step-%d", n)
}

func meters(v float64) *float64 {
	return &v
}

// GenerateSafest builds the route that passes the most safe zones.
func GenerateSafest(in Input) (route.SmartRoute, error) {
	distance, err := straightLine(in)
	if err != nil {
		return route.SmartRoute{}, err
	}
	duration := Duration(distance, SafestPace)
	onRoute := safezone.OnRoute(in.SafeZones, in.Origin, in.Destination)

	steps := []route.Step{{
		ID:              stepID(1),
		Type:            route.StepWalk,
		Instruction:     "Start your journey",
		KidFriendlyText: "Let's begin our adventure! Stay with your grown-up.",
		DurationMinutes: duration,
		DistanceMeters:  meters(distance),
		Location:        in.Origin,
		SafetyTip:       "Always hold hands when crossing streets",
		VoiceGuidance:   "Starting your journey. Remember to stay close to your grown-up.",
	}}
	for _, z := range onRoute {
		steps = append(steps, route.Step{
			ID:              stepID(len(steps) + 1),
			Type:            route.StepSafetyCheck,
			Instruction:     fmt.Sprintf("Pass %s", z.Name),
			KidFriendlyText: fmt.Sprintf("This is %s, a safe place. You can ask for help here!", z.Name),
			Location:        z.Center,
			SafetyTip:       "If you get lost, go to a safe place and ask a grown-up who works there",
			Landmark:        z.Name,
			VoiceGuidance:   fmt.Sprintf("You are passing %s. This is a safe zone.", z.Name),
		})
	}
	steps = append(steps, arrivalStep(len(steps)+1, in.Destination))

	zoneFeature := "Passes busy, well-watched streets"
	if n := len(onRoute); n == 1 {
		zoneFeature = "Passes through 1 safe zone"
	} else if n > 1 {
		zoneFeature = fmt.Sprintf("Passes through %d safe zones", n)
	}

	return route.SmartRoute{
		ID:                    route.KindSafest.ID(),
		Kind:                  route.KindSafest,
		Name:                  "🛡️ Safest Route",
		Description:           "Maximum safety with multiple safe zones",
		Score:                 95,
		EstimatedMinutes:      duration,
		WalkingDistanceMeters: distance,
		Steps:                 steps,
		SafetyFeatures: []string{
			zoneFeature,
			"Well-lit streets",
			"Minimal street crossings",
			"Police station nearby",
			"Emergency contacts available",
		},
		AIRecommendations: []string{
			"This route is perfect for first-time journeys",
			"Great for younger children",
			"Safe zones every 5 minutes",
		},
		Difficulty:       route.DifficultyEasy,
		KidFriendlyScore: 98,
		Accessibility: route.Accessibility{
			WheelchairFriendly: true,
			StrollerFriendly:   true,
			ElevatorAccess:     true,
		},
	}, nil
}

// GenerateFastest builds the express transit route.
func GenerateFastest(in Input) (route.SmartRoute, error) {
	distance, err := straightLine(in)
	if err != nil {
		return route.SmartRoute{}, err
	}
	duration := Duration(distance, FastestPace)

	steps := []route.Step{
		{
			ID:              stepID(1),
			Type:            route.StepTransit,
			Instruction:     "Take the express train",
			KidFriendlyText: "Time to hop on the fast train!",
			DurationMinutes: duration,
			Location:        in.Origin,
			Transit: &route.TransitInfo{
				Line:      "Express Line",
				Direction: "Downtown",
				Stops:     3,
			},
			SafetyTip:     "Stand behind the yellow line until the train stops",
			VoiceGuidance: "Get ready to board the express train",
		},
		arrivalStep(2, in.Destination),
	}

	return route.SmartRoute{
		ID:                    route.KindFastest.ID(),
		Kind:                  route.KindFastest,
		Name:                  "⚡ Fastest Route",
		Description:           "Quickest way with minimal transfers",
		Score:                 85,
		EstimatedMinutes:      duration,
		WalkingDistanceMeters: distance * FastestWalkingFactor,
		Steps:                 steps,
		SafetyFeatures:        []string{"Express service", "Fewer stops means faster", "Direct route"},
		AIRecommendations: []string{
			"Best for older children",
			"Good when running late",
			"Requires some rush",
		},
		Difficulty:       route.DifficultyModerate,
		KidFriendlyScore: 75,
		Accessibility: route.Accessibility{
			WheelchairFriendly: true,
			StrollerFriendly:   false,
			ElevatorAccess:     true,
		},
	}, nil
}

// GenerateEasiest builds the slow, step-free route.
func GenerateEasiest(in Input) (route.SmartRoute, error) {
	distance, err := straightLine(in)
	if err != nil {
		return route.SmartRoute{}, err
	}
	duration := Duration(distance, EasiestPace)

	steps := []route.Step{
		{
			ID:              stepID(1),
			Type:            route.StepWalk,
			Instruction:     "Walk along the step-free path",
			KidFriendlyText: "Nice and easy! No stairs on this path.",
			DurationMinutes: duration,
			DistanceMeters:  meters(distance),
			Location:        in.Origin,
			VoiceGuidance:   "Follow the step-free path. Take your time.",
		},
		arrivalStep(2, in.Destination),
	}

	return route.SmartRoute{
		ID:                    route.KindEasiest.ID(),
		Kind:                  route.KindEasiest,
		Name:                  "😊 Easiest Route",
		Description:           "Simple, straightforward, no complicated transfers",
		Score:                 90,
		EstimatedMinutes:      duration,
		WalkingDistanceMeters: distance,
		Steps:                 steps,
		SafetyFeatures: []string{
			"No stairs required",
			"Elevator access throughout",
			"Simple navigation",
			"Clear signage",
		},
		AIRecommendations: []string{
			"Perfect for children with mobility aids",
			"Great for strollers",
			"No rushing needed",
		},
		Difficulty:       route.DifficultyEasy,
		KidFriendlyScore: 95,
		Accessibility: route.Accessibility{
			WheelchairFriendly: true,
			StrollerFriendly:   true,
			ElevatorAccess:     true,
		},
	}, nil
}

// GenerateScenic builds the longer route through parks and landmarks.
func GenerateScenic(in Input) (route.SmartRoute, error) {
	straight, err := straightLine(in)
	if err != nil {
		return route.SmartRoute{}, err
	}
	distance := straight * ScenicDistanceFactor
	duration := Duration(distance, ScenicPace)

	steps := []route.Step{
		{
			ID:              stepID(1),
			Type:            route.StepWalk,
			Instruction:     "Walk through the park",
			KidFriendlyText: "Let's explore! Look out for birds and trees.",
			DurationMinutes: duration,
			DistanceMeters:  meters(distance),
			Location:        in.Origin,
			SafetyTip:       "Stay on the path where your grown-up can see you",
			Landmark:        "City park",
			VoiceGuidance:   "Enjoy the walk through the park. Stay on the path.",
		},
		arrivalStep(2, in.Destination),
	}

	return route.SmartRoute{
		ID:                    route.KindScenic.ID(),
		Kind:                  route.KindScenic,
		Name:                  "🌳 Scenic Route",
		Description:           "Beautiful journey with parks and landmarks",
		Score:                 80,
		EstimatedMinutes:      duration,
		WalkingDistanceMeters: distance,
		Steps:                 steps,
		SafetyFeatures:        []string{"Park pathways", "Historical landmarks", "Photo opportunities"},
		AIRecommendations: []string{
			"Great for educational trips",
			"Perfect for nice weather",
			"Lots to see and learn",
		},
		Difficulty:       route.DifficultyEasy,
		KidFriendlyScore: 88,
		Accessibility: route.Accessibility{
			WheelchairFriendly: true,
			StrollerFriendly:   true,
			ElevatorAccess:     false,
		},
	}, nil
}
