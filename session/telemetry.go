package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/hydrotwin/session")
var meter = otel.Meter("github.com/go-digitaltwin/hydrotwin/session")

// modelAttr is the attribute key carrying the fingerprint of the model a span
// worked on.
const modelAttr = "model"

var (
	// compilationDuration measures the duration of a single compilation of the
	// active model into solver input.
	compilationDuration metric.Float64Histogram
	// alignmentFailures counts the sensors that could not be aligned onto the
	// canonical timeline.
	alignmentFailures metric.Int64Counter
)

func init() {
	var err error
	compilationDuration, err = meter.Float64Histogram(
		"session.compilation.duration",
		metric.WithDescription("The duration of a single compilation of a model into solver input."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("session: failed to init 'session.compilation.duration' instrument")
	}

	alignmentFailures, err = meter.Int64Counter(
		"session.alignment.failures",
		metric.WithDescription("The number of sensors whose readings could not be aligned."),
	)
	if err != nil {
		panic("session: failed to init 'session.alignment.failures' instrument")
	}
}

func measureCompilation(ctx context.Context, d time.Duration) {
	// Floating-point division keeps sub-millisecond precision.
	compilationDuration.Record(ctx, float64(d)/float64(time.Millisecond))
}

func measureAlignment(ctx context.Context, failures int) {
	if failures > 0 {
		alignmentFailures.Add(ctx, int64(failures))
	}
}
