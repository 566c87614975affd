// Package worker consumes journey-completion events and records them against
// the user's route engine.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kidroute/kidroute/internal/journey"
	"github.com/kidroute/kidroute/internal/smartroute"
)

const meterName = "github.com/kidroute/kidroute/internal/worker"

// EventJourneyCompleted is the event type of a finished journey.
const EventJourneyCompleted = "journey_completed"

// ErrMalformed marks an event that can never be processed. Sources drop such
// events instead of redelivering them.
var ErrMalformed = errors.New("malformed event")

// Event is the message payload published when a child finishes a journey.
type Event struct {
	Type    string          `json:"type"`
	UserID  string          `json:"userId"`
	Journey journey.Journey `json:"journey"`
}

// Processor records journey events. It is safe for concurrent use.
type Processor struct {
	engines *smartroute.Registry
	logger  zerolog.Logger
	events  metric.Int64Counter
}

// NewProcessor creates a processor writing through engines.
func NewProcessor(engines *smartroute.Registry, logger zerolog.Logger) (*Processor, error) {
	events, err := otel.Meter(meterName).Int64Counter(
		"worker.events",
		metric.WithDescription("Journey events handled, by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create events counter: %w", err)
	}
	return &Processor{
		engines: engines,
		logger:  logger,
		events:  events,
	}, nil
}

// Process decodes and records one event. Errors wrapping ErrMalformed are
// permanent; any other error may succeed on redelivery. Unknown event types
// are skipped.
func (p *Processor) Process(ctx context.Context, data []byte) error {
	err := p.process(ctx, data)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrMalformed):
		outcome = "malformed"
	case err != nil:
		outcome = "failed"
	}
	p.events.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return err
}

func (p *Processor) process(ctx context.Context, data []byte) error {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if evt.Type != EventJourneyCompleted {
		p.logger.Debug().Str("type", evt.Type).Msg("ignoring unhandled event type")
		return nil
	}
	if evt.UserID == "" {
		return fmt.Errorf("%w: userId is required", ErrMalformed)
	}
	if err := evt.Journey.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	engine, err := p.engines.ForUser(ctx, evt.UserID)
	if err != nil {
		return fmt.Errorf("load engine for %s: %w", evt.UserID, err)
	}
	// Dropped after writing so the next event reloads from storage.
	defer p.engines.Evict(evt.UserID)

	recorded, err := engine.RecordJourney(ctx, evt.Journey)
	if err != nil {
		return fmt.Errorf("record journey: %w", err)
	}

	p.logger.Info().
		Str("user_id", evt.UserID).
		Str("journey_id", recorded.ID).
		Str("route_id", recorded.RouteID).
		Bool("completed", recorded.Completed).
		Msg("journey recorded")
	return nil
}
