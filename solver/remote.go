package solver

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"github.com/klauspost/compress/zstd"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gocloud.dev/pubsub"
)

// Compiled solver input is repetitive text that compresses well, and pubsub
// brokers cap message sizes; request and reply bodies are therefore zstd
// compressed. EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
)

// reply is the wire form of a solve outcome.
type reply struct {
	RequestID string
	Pressures Pressures
	Error     string
}

// Remote is a Solver executing requests in another process. Requests are sent
// to one topic and the matching reply awaited on a subscription; replies to
// other requests, left over from superseded solves, are acknowledged and
// dropped.
//
// A Remote handles one request at a time, which is what a Runner guarantees.
type Remote struct {
	requests *pubsub.Topic
	replies  *pubsub.Subscription
}

// NewRemote returns a Remote sending requests to requests and awaiting their
// replies on replies.
func NewRemote(requests *pubsub.Topic, replies *pubsub.Subscription) *Remote {
	return &Remote{requests: requests, replies: replies}
}

// Solve sends req and blocks until its reply arrives or ctx is done.
func (r *Remote) Solve(ctx context.Context, req Request) (Pressures, error) {
	ctx, span := tracer.Start(ctx, "Remote.Solve", trace.WithAttributes(
		attribute.String("request.id", req.ID),
	))
	defer span.End()

	body, err := encode(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	msg := &pubsub.Message{Body: body, Metadata: map[string]string{MetadataRequestID: req.ID}}
	if err := r.requests.Send(ctx, msg); err != nil {
		err = fmt.Errorf("send: %w", err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	logger := component.Logger(ctx)
	for {
		msg, err := r.replies.Receive(ctx)
		if err != nil {
			return nil, fmt.Errorf("receive: %w", err)
		}
		msg.Ack()
		if id := msg.Metadata[MetadataRequestID]; id != req.ID {
			logger.Debug("Dropping stale solver reply", slog.String("reply", id), slog.String("request", req.ID))
			continue
		}
		var rep reply
		if err := decode(msg.Body, &rep); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if rep.Error != "" {
			err := errors.New(rep.Error)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		return rep.Pressures, nil
	}
}

// Serve returns a component.Proc that answers the requests a Remote sends:
// each request received from requests is solved with s and the outcome sent to
// replies.
func Serve(requests *pubsub.Subscription, replies *pubsub.Topic, s Solver) component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context())
		for l.Continue() {
			msg, err := requests.Receive(l.Context())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					return
				}
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			msg.Ack()

			out, err := answer(l.Context(), msg.Body, s)
			if err != nil {
				logger.Error("Couldn't answer solver request", slog.String("msg.id", msg.LoggableID), slog.Any("error", err))
				continue
			}
			if err := replies.Send(l.Context(), out); err != nil {
				l.Fatal(fmt.Errorf("send reply: %w", err))
			}
		}
	}
}

// answer solves the request encoded in body and returns the reply message.
// A failed solve is still answered, with the error in the reply.
func answer(ctx context.Context, body []byte, s Solver) (*pubsub.Message, error) {
	var req Request
	if err := decode(body, &req); err != nil {
		return nil, err
	}
	rep := reply{RequestID: req.ID}
	p, err := s.Solve(ctx, req)
	if err != nil {
		rep.Error = err.Error()
	} else {
		rep.Pressures = p
	}
	out, err := encode(rep)
	if err != nil {
		return nil, err
	}
	return &pubsub.Message{Body: out, Metadata: map[string]string{MetadataRequestID: req.ID}}, nil
}

func encode(v any) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(v); err != nil {
		return nil, fmt.Errorf("encode gob: %w", err)
	}
	return encoder.EncodeAll(b.Bytes(), nil), nil
}

func decode(p []byte, v any) error {
	raw, err := decoder.DecodeAll(p, nil)
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decode gob: %w", err)
	}
	return nil
}
