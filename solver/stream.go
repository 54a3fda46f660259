package solver

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielorbach/go-component"
	"gocloud.dev/pubsub"

	"github.com/go-digitaltwin/hydrotwin"
)

// Calibration properties are free-form, so gob needs to know the dynamic types
// that may appear inside them.
func init() {
	gob.Register([]any{})
	gob.Register(map[string]any{})
	gob.Register(hydrotwin.Properties{})
}

// RequestBuilder turns a calibration list into a solver request, typically by
// compiling a session's model with it.
type RequestBuilder func(ctx context.Context, calibrations []hydrotwin.CalibrationAction) (Request, error)

// EncodeCalibrations gob-encodes a calibration list as carried by the
// messages Stream consumes.
func EncodeCalibrations(actions []hydrotwin.CalibrationAction) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(actions); err != nil {
		return nil, fmt.Errorf("encode gob: %w", err)
	}
	return b.Bytes(), nil
}

// DecodeCalibrations reverses EncodeCalibrations.
func DecodeCalibrations(p []byte) ([]hydrotwin.CalibrationAction, error) {
	var actions []hydrotwin.CalibrationAction
	if err := gob.NewDecoder(bytes.NewReader(p)).Decode(&actions); err != nil {
		return nil, fmt.Errorf("decode gob: %w", err)
	}
	return actions, nil
}

// Stream returns a component.Proc that receives calibration lists from sub,
// builds a request from each with build and submits it to r.
//
// Every message is acknowledged, even one that cannot be decoded or built:
// a bad calibration list is logged and skipped, and the next one supersedes
// it anyway.
func Stream(sub *pubsub.Subscription, build RequestBuilder, r *Runner) component.Proc {
	return func(l *component.L) {
		logger := component.Logger(l.Context())
		for l.Continue() {
			msg, err := sub.Receive(l.Context())
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					// we're shutting down
					return
				}
				l.Fatal(fmt.Errorf("receive: %w", err))
			}
			// always ack, even if we fail to decode.
			// otherwise, we might get stuck processing
			// the same failed message
			msg.Ack()

			logger := logger.With(slog.String("msg.id", msg.LoggableID))
			ctx := component.InjectLogger(l.Context(), logger)
			if err := submit(ctx, msg.Body, build, r); err != nil {
				logger.Error("Skipping calibration message", slog.Any("error", err))
			}
		}
	}
}

// submit decodes a calibration list, builds a request from it and submits the
// request to r.
func submit(ctx context.Context, body []byte, build RequestBuilder, r *Runner) error {
	actions, err := DecodeCalibrations(body)
	if err != nil {
		return err
	}
	req, err := build(ctx, actions)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if r.Submit(ctx, req) {
		component.Logger(ctx).Debug("Solver request superseded a pending one", slog.String("request", req.ID))
	}
	return nil
}
