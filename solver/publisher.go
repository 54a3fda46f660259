package solver

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
	"golang.org/x/sync/errgroup"
)

// Metadata keys set on published messages.
const (
	MetadataRequestID = "requestID"
	MetadataSensorID  = "sensorID"
)

// SensorResult is the simulated pressure series of one sensor, as published
// by a Publisher. A failed solve is published as a single SensorResult with
// an empty SensorID and Error set.
type SensorResult struct {
	RequestID string
	SensorID  string
	Pressures []float64
	Error     string
	// The time, in UTC, the result was published.
	Timestamp time.Time
}

// Publisher fans solver results out to a topic, one message per sensor.
type Publisher struct {
	sink *pubsub.Topic
}

// NewPublisher returns a Publisher sending to sink.
func NewPublisher(sink *pubsub.Topic) *Publisher {
	return &Publisher{sink: sink}
}

// Publish sends one gob-encoded SensorResult per sensor of res, concurrently.
// It fails if any message could not be sent.
func (p *Publisher) Publish(ctx context.Context, res Result) error {
	ctx, span := tracer.Start(ctx, "Publisher.Publish", trace.WithAttributes(
		attribute.String("request.id", res.RequestID),
		attribute.Int("sensors", len(res.Sensors)),
	))
	defer span.End()

	now := time.Now().UTC()
	if res.Err != nil {
		err := p.send(ctx, SensorResult{RequestID: res.RequestID, Error: res.Err.Error(), Timestamp: now})
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	for id, series := range res.Sensors {
		g.Go(func() error {
			return p.send(ctx, SensorResult{RequestID: res.RequestID, SensorID: id, Pressures: series, Timestamp: now})
		})
	}
	// Ensures that any goroutines started by the error group are allowed to finish
	// and that their errors are handled before the function can return.
	if err := g.Wait(); err != nil {
		err = fmt.Errorf("send sensor results: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, r SensorResult) error {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(r); err != nil {
		return fmt.Errorf("encode gob: %w", err)
	}
	// The sensor id is carried as metadata so brokers that partition by key
	// keep the results of one sensor in order.
	msg := &pubsub.Message{Body: b.Bytes(), Metadata: map[string]string{
		MetadataRequestID: r.RequestID,
		MetadataSensorID:  r.SensorID,
	}}
	if err := p.sink.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	return nil
}

// Handler adapts p into a ResultHandler for a Runner. Publication failures
// are logged; the runner carries on with the next request.
func (p *Publisher) Handler() ResultHandler {
	return func(ctx context.Context, res Result) {
		if err := p.Publish(ctx, res); err != nil {
			component.Logger(ctx).Error("Couldn't publish solver result",
				slog.String("request", res.RequestID),
				slog.Any("error", err),
			)
		}
	}
}

// DecodeSensorResult decodes a message sent by a Publisher.
func DecodeSensorResult(msg *pubsub.Message) (SensorResult, error) {
	var r SensorResult
	if err := gob.NewDecoder(bytes.NewReader(msg.Body)).Decode(&r); err != nil {
		return SensorResult{}, fmt.Errorf("decode gob: %w", err)
	}
	return r, nil
}
