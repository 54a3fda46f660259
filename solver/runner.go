package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielorbach/go-component"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// State is the scheduling state of a Runner.
type State int

const (
	// Idle means no solve is in flight.
	Idle State = iota
	// Running means one solve is in flight and nothing is waiting.
	Running
	// RunningPending means one solve is in flight and one request waits in
	// the pending slot.
	RunningPending
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case RunningPending:
		return "running+pending"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ResultHandler receives the outcome of every solve, in completion order.
type ResultHandler func(ctx context.Context, res Result)

// Runner schedules solves one at a time with a single pending slot.
//
// Submitting while idle starts a solve at once. Submitting while a solve is
// in flight parks the request in the pending slot, replacing (and so
// cancelling) any request already waiting there: only the latest request is
// solved next. When a solve finishes its result is delivered and the pending
// request, if any, starts. Failed solves are delivered as a *SolveError and
// never retried.
//
// A Runner is safe for concurrent use. Solves happen on the goroutine calling
// Run.
type Runner struct {
	solver  Solver
	deliver ResultHandler

	mu       sync.Mutex
	state    State
	inflight *Request
	pending  *Request
	wake     chan struct{}
}

// NewRunner returns an idle Runner solving with s and delivering results to h.
func NewRunner(s Solver, h ResultHandler) *Runner {
	return &Runner{
		solver:  s,
		deliver: h,
		wake:    make(chan struct{}, 1),
	}
}

// State returns the current scheduling state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Submit schedules req. It reports whether req replaced a request that was
// waiting in the pending slot.
func (r *Runner) Submit(ctx context.Context, req Request) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case Idle:
		r.inflight = &req
		r.state = Running
		select {
		case r.wake <- struct{}{}:
		default:
		}
	case Running:
		r.pending = &req
		r.state = RunningPending
	case RunningPending:
		component.Logger(ctx).Debug("Pending solver request replaced",
			slog.String("replaced", r.pending.ID),
			slog.String("request", req.ID),
		)
		r.pending = &req
		replaced = true
		measureReplacement(ctx)
	}
	return replaced
}

// Run solves submitted requests until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.wake:
		}
		for req, ok := r.next(); ok; req, ok = r.advance() {
			r.execute(ctx, req)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// next returns the request marked in flight by Submit.
func (r *Runner) next() (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight == nil {
		return Request{}, false
	}
	return *r.inflight, true
}

// advance retires the request in flight and promotes the pending one.
func (r *Runner) advance() (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		r.inflight = nil
		r.state = Idle
		return Request{}, false
	}
	r.inflight, r.pending = r.pending, nil
	r.state = Running
	return *r.inflight, true
}

func (r *Runner) execute(ctx context.Context, req Request) {
	ctx, span := tracer.Start(ctx, "Runner.Solve", trace.WithAttributes(
		attribute.String("request.id", req.ID),
		attribute.Stringer("model", req.Model),
		attribute.Int("points", len(req.Points)),
	))
	defer span.End()

	logger := component.Logger(ctx).With(slog.String("request", req.ID))
	logger.Debug("Solving request...")

	start := time.Now()
	res := Result{RequestID: req.ID}
	p, err := r.solver.Solve(ctx, req)
	if err == nil && len(p) == 0 {
		err = ErrNoResults
	}
	measureSolve(ctx, err == nil, time.Since(start))
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// shutting down; nobody is waiting for this result
			return
		}
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Solve failed", slog.Any("error", err))
		res.Err = &SolveError{RequestID: req.ID, Err: err}
	} else {
		res.Sensors = MapResults(p, req.Points)
		logger.Debug("Request solved", slog.Int("timesteps", len(p)))
	}
	r.deliver(ctx, res)
}

// Proc returns a component.Proc running r until the component shuts down.
func (r *Runner) Proc() component.Proc {
	return func(l *component.L) {
		err := r.Run(l.Context())
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			l.Fatal(fmt.Errorf("run: %w", err))
		}
	}
}
