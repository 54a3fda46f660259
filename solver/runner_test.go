package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/go-digitaltwin/hydrotwin"
)

// gatedSolver blocks every solve until released, reporting each request it
// starts.
type gatedSolver struct {
	started chan string
	release chan error
}

func newGatedSolver() *gatedSolver {
	return &gatedSolver{started: make(chan string, 10), release: make(chan error)}
}

func (g *gatedSolver) Solve(ctx context.Context, req Request) (Pressures, error) {
	g.started <- req.ID
	select {
	case err := <-g.release:
		if err != nil {
			return nil, err
		}
		return Pressures{{1, 2}, {3, 4}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var testPoints = []hydrotwin.LiveDataPoint{
	{NodeID: "J1", LiveDataID: "S1", SolverIndex: 1},
}

func startRunner(t *testing.T, s Solver) (*Runner, <-chan Result) {
	t.Helper()
	results := make(chan Result, 10)
	r := NewRunner(s, func(_ context.Context, res Result) { results <- res })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want %v", err, context.Canceled)
		}
	})
	return r, results
}

func receive[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting on channel")
		panic("unreachable")
	}
}

func waitState(t *testing.T, r *Runner, want State) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for r.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("State() = %v, want %v", r.State(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunner_latestWins(t *testing.T) {
	g := newGatedSolver()
	r, results := startRunner(t, g)
	ctx := context.Background()

	if replaced := r.Submit(ctx, Request{ID: "a", Points: testPoints}); replaced {
		t.Error("Submit(a) replaced a request on an idle runner")
	}
	if id := receive(t, g.started); id != "a" {
		t.Fatalf("started %q, want a", id)
	}
	waitState(t, r, Running)

	if replaced := r.Submit(ctx, Request{ID: "b", Points: testPoints}); replaced {
		t.Error("Submit(b) replaced a request, but none was pending")
	}
	if got := r.State(); got != RunningPending {
		t.Errorf("State() after Submit(b) = %v, want %v", got, RunningPending)
	}
	if replaced := r.Submit(ctx, Request{ID: "c", Points: testPoints}); !replaced {
		t.Error("Submit(c) did not replace the pending request")
	}

	g.release <- nil
	res := receive(t, results)
	want := Result{RequestID: "a", Sensors: map[string][]float64{"S1": {2, 4}}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Errorf("first result mismatch (-want +got):\n%s", diff)
	}

	// b was replaced while waiting, so c runs next.
	if id := receive(t, g.started); id != "c" {
		t.Fatalf("started %q, want c", id)
	}
	g.release <- nil
	if res := receive(t, results); res.RequestID != "c" {
		t.Errorf("second result is for %q, want c", res.RequestID)
	}
	waitState(t, r, Idle)

	select {
	case id := <-g.started:
		t.Errorf("replaced request %q was solved", id)
	default:
	}
}

func TestRunner_failure(t *testing.T) {
	tests := []struct {
		name    string
		solve   SolverFunc
		wantErr error
	}{
		{
			name: "SolverError",
			solve: func(context.Context, Request) (Pressures, error) {
				return nil, errBoom
			},
			wantErr: errBoom,
		},
		{
			name: "NoResults",
			solve: func(context.Context, Request) (Pressures, error) {
				return Pressures{}, nil
			},
			wantErr: ErrNoResults,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, results := startRunner(t, tt.solve)
			r.Submit(context.Background(), Request{ID: "a"})

			res := receive(t, results)
			var solveErr *SolveError
			if !errors.As(res.Err, &solveErr) {
				t.Fatalf("result error = %v, want a *SolveError", res.Err)
			}
			if solveErr.RequestID != "a" || !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("result error = %v, want %v for request a", res.Err, tt.wantErr)
			}
			if res.Sensors != nil {
				t.Errorf("failed result carries sensors: %v", res.Sensors)
			}
			waitState(t, r, Idle)
		})
	}
}

func TestRunner_shutdown(t *testing.T) {
	g := newGatedSolver()
	delivered := make(chan Result, 1)
	r := NewRunner(g, func(_ context.Context, res Result) { delivered <- res })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	r.Submit(ctx, Request{ID: "a"})
	receive(t, g.started)
	cancel()

	if err := receive(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want %v", err, context.Canceled)
	}
	select {
	case res := <-delivered:
		t.Errorf("delivered %+v after shutdown", res)
	default:
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		Idle:           "idle",
		Running:        "running",
		RunningPending: "running+pending",
		State(7):       "State(7)",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

var errBoom = errors.New("boom")
