package smartroute

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/kidroute/kidroute/internal/smartroute"

type engineMetrics struct {
	generateDuration metric.Float64Histogram
	routesGenerated  metric.Int64Counter
	learningFailures metric.Int64Counter
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter(instrumentationName)

	generateDuration, err := meter.Float64Histogram(
		"smartroute.generate.duration",
		metric.WithDescription("Duration of smart route generation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	routesGenerated, err := meter.Int64Counter(
		"smartroute.routes.generated",
		metric.WithDescription("Number of route candidates generated"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return nil, err
	}

	learningFailures, err := meter.Int64Counter(
		"smartroute.learning.failures",
		metric.WithDescription("Number of learning log appends that failed"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &engineMetrics{
		generateDuration: generateDuration,
		routesGenerated:  routesGenerated,
		learningFailures: learningFailures,
	}, nil
}
