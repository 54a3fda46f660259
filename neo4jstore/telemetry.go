package neo4jstore

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/go-digitaltwin/hydrotwin/neo4jstore")
var meter = otel.Meter("github.com/go-digitaltwin/hydrotwin/neo4jstore")

var (
	// saveDuration measures how long a model takes to be written, excluding the
	// time spent encoding it.
	saveDuration metric.Float64Histogram
	// savedFeatures counts the features written across all saved models.
	savedFeatures metric.Int64Counter
)

func init() {
	// We're initiating the metric instruments on the otel meter. Encounter an error
	// during an instrument's initialisation, triggering a panic.
	var err error
	saveDuration, err = meter.Float64Histogram(
		"neo4jstore.save.duration",
		metric.WithDescription("The duration of writing a model to neo4j."),
		metric.WithUnit("ms"),
	)
	if err != nil {
		panic(fmt.Sprintf("neo4jstore: failed to init 'neo4jstore.save.duration' instrument: %v", err))
	}

	savedFeatures, err = meter.Int64Counter(
		"neo4jstore.features.saved",
		metric.WithDescription("The number of features written to neo4j."),
	)
	if err != nil {
		panic(fmt.Sprintf("neo4jstore: failed to init 'neo4jstore.features.saved' instrument: %v", err))
	}
}

func measureSave(ctx context.Context, features int, d time.Duration) {
	saveDuration.Record(ctx, float64(d)/float64(time.Millisecond))
	savedFeatures.Add(ctx, int64(features))
}
