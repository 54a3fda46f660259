package solver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/hydrotwin/solver")
var meter = otel.Meter("github.com/go-digitaltwin/hydrotwin/solver")

var (
	// solveDuration measures the duration of a single successful solve,
	// including the time spent waiting for a remote solver.
	solveDuration metric.Float64Histogram
	// solveFailures counts the solves that have failed.
	solveFailures metric.Int64Counter
	// replacedRequests counts the pending requests that were superseded by a
	// newer one before they started.
	replacedRequests metric.Int64Counter
)

func init() {
	var err error
	solveDuration, err = meter.Float64Histogram(
		"solver.solve.duration",
		metric.WithDescription("The duration of a single successful solve."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic("solver: failed to init 'solver.solve.duration' instrument")
	}

	solveFailures, err = meter.Int64Counter(
		"solver.solve.failures",
		metric.WithDescription("The number of solves that have failed."),
	)
	if err != nil {
		panic("solver: failed to init 'solver.solve.failures' instrument")
	}

	replacedRequests, err = meter.Int64Counter(
		"solver.requests.replaced",
		metric.WithDescription("The number of pending requests superseded before they started."),
	)
	if err != nil {
		panic("solver: failed to init 'solver.requests.replaced' instrument")
	}
}

// measureSolve records the duration of a successful solve, or counts a failed
// one.
func measureSolve(ctx context.Context, succeeded bool, d time.Duration) {
	if succeeded {
		// We use floating-point division here for higher precision (instead of the
		// Millisecond method).
		solveDuration.Record(ctx, float64(d)/float64(time.Millisecond))
	} else {
		solveFailures.Add(ctx, 1)
	}
}

func measureReplacement(ctx context.Context) {
	replacedRequests.Add(ctx, 1)
}
