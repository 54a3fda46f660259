// Package solver is the boundary between calibration sessions and the
// external hydraulic solver.
//
// The solver itself is opaque: it consumes compiled solver input and returns,
// for every simulated timestep, the pressure at every node. This package
// defines that contract ([Solver]), maps results back onto sensors
// ([MapResults]), and schedules solves so that at most one runs at a time and
// only the most recent request is ever waiting ([Runner]).
//
// Requests and results travel over gocloud pubsub: [Stream] turns calibration
// updates into requests, [Publisher] fans results out per sensor and [Remote]
// reaches a solver running in another process.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/go-digitaltwin/hydrotwin"
)

// Request is one unit of work for the solver.
type Request struct {
	// ID correlates a request with its result.
	ID string
	// Input is the compiled solver input.
	Input string
	// Points lists the sensors to read back from the result.
	Points []hydrotwin.LiveDataPoint
	// Model is the fingerprint of the model Input was compiled from.
	Model hydrotwin.ModelHash
}

// NewRequest returns a request with a fresh id.
func NewRequest(input string, points []hydrotwin.LiveDataPoint) Request {
	return Request{ID: uuid.NewString(), Input: input, Points: points}
}

// Pressures is the raw output of a solve, indexed [timestep][node], where
// node is the solver index of a junction.
type Pressures [][]float64

// Solver runs the hydraulic simulation of a request.
type Solver interface {
	Solve(ctx context.Context, req Request) (Pressures, error)
}

// The SolverFunc type is an adapter to allow the use of ordinary functions as
// solvers.
type SolverFunc func(ctx context.Context, req Request) (Pressures, error)

// Solve calls f(ctx, req).
func (f SolverFunc) Solve(ctx context.Context, req Request) (Pressures, error) {
	return f(ctx, req)
}

// Result is the outcome of a request.
type Result struct {
	RequestID string
	// Sensors holds the simulated pressure series of every requested sensor,
	// keyed by live-data id.
	Sensors map[string][]float64
	// Err is a *SolveError when the solve failed, in which case Sensors is
	// nil.
	Err error
}

// SolveError reports a failed solve. It is never retried; the next request
// supersedes it.
type SolveError struct {
	RequestID string
	Err       error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("solve %s: %v", e.RequestID, e.Err)
}

func (e *SolveError) Unwrap() error { return e.Err }

// ErrNoResults is the cause of a SolveError for a solver that returned no
// timesteps.
var ErrNoResults = errors.New("solver returned no results")

// MapResults extracts the pressure series of each point from p. A point whose
// node is missing from a timestep reads NaN at that step.
func MapResults(p Pressures, points []hydrotwin.LiveDataPoint) map[string][]float64 {
	out := make(map[string][]float64, len(points))
	for _, pt := range points {
		series := make([]float64, len(p))
		for t, nodes := range p {
			if pt.SolverIndex < 0 || pt.SolverIndex >= len(nodes) {
				series[t] = math.NaN()
				continue
			}
			series[t] = nodes[pt.SolverIndex]
		}
		out[pt.LiveDataID] = series
	}
	return out
}
