package solver

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-digitaltwin/hydrotwin"
)

func TestCalibrations_roundTrip(t *testing.T) {
	actions := []hydrotwin.CalibrationAction{
		hydrotwin.RoughnessAction(1, -0.5, "P1", "P2"),
		hydrotwin.ThrottleAction(2, 25, "V1"),
	}
	body, err := EncodeCalibrations(actions)
	if err != nil {
		t.Fatalf("EncodeCalibrations() error = %v", err)
	}
	got, err := DecodeCalibrations(body)
	if err != nil {
		t.Fatalf("DecodeCalibrations() error = %v", err)
	}
	if diff := cmp.Diff(actions, got); diff != "" {
		t.Errorf("calibrations mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit(t *testing.T) {
	actions := []hydrotwin.CalibrationAction{hydrotwin.RoughnessAction(1, 1, "P1")}
	body, err := EncodeCalibrations(actions)
	if err != nil {
		t.Fatal(err)
	}

	var built [][]hydrotwin.CalibrationAction
	build := func(_ context.Context, a []hydrotwin.CalibrationAction) (Request, error) {
		built = append(built, a)
		return Request{ID: "r"}, nil
	}
	// The runner is never started, so submitted requests stay in its slots.
	r := NewRunner(SolverFunc(nil), nil)
	ctx := context.Background()

	for range 3 {
		if err := submit(ctx, body, build, r); err != nil {
			t.Fatalf("submit() error = %v", err)
		}
	}
	if len(built) != 3 {
		t.Fatalf("built %d requests, want 3", len(built))
	}
	if diff := cmp.Diff(actions, built[0]); diff != "" {
		t.Errorf("builder input mismatch (-want +got):\n%s", diff)
	}
	if got := r.State(); got != RunningPending {
		t.Errorf("State() = %v, want %v", got, RunningPending)
	}
}

func TestSubmit_errors(t *testing.T) {
	errBuild := errors.New("unknown feature")
	body, err := EncodeCalibrations(nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		body  []byte
		build RequestBuilder
	}{
		{
			name: "Undecodable",
			body: []byte("not gob"),
			build: func(context.Context, []hydrotwin.CalibrationAction) (Request, error) {
				t.Error("builder called for an undecodable message")
				return Request{}, nil
			},
		},
		{
			name: "BuildFailure",
			body: body,
			build: func(context.Context, []hydrotwin.CalibrationAction) (Request, error) {
				return Request{}, errBuild
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRunner(SolverFunc(nil), nil)
			if err := submit(context.Background(), tt.body, tt.build, r); err == nil {
				t.Error("submit() succeeded, want error")
			}
			if got := r.State(); got != Idle {
				t.Errorf("State() = %v, want %v", got, Idle)
			}
		})
	}
}
