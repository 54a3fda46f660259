/*
Package storetest provides a suite of tests designed to assess hydrotwin model
stores (e.g. in-memory, neo4j).

The tests operate on the specific store via the [hydrotwin.Store] interface to
check functional correctness and compliance with the behaviours defined by that
interface.

Call storetest.Run in its own test to invoke the test-suite:

	func TestStore(t *testing.T) {
		driver := dbtest.SetupNeo4j(t)
		storetest.Run(t, neo4jstore.NewStore(driver, "neo4j"))
	}

The test cases in this suite focus on the basic store operations:

  - Saving models and loading them back unchanged.
  - Replacing and deleting saved models.
  - Loading a model while it is being replaced.

So, specific stores are encouraged to perform additional tests which are
specific to the underlying storage.
*/
package storetest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"

	"github.com/go-digitaltwin/hydrotwin"
)

type testCase struct {
	// Subtest name.
	name string
	// A path leading to the test-case's file and line in the source code.
	location string
	// An operation executes a single modification on the tested store.
	operation func(ctx context.Context, s hydrotwin.Store) error
	// The error the operation is expected to match with errors.Is, if any.
	wantErr error
	// The models expected to be saved after the operation, by name. This
	// takes into account the order and the successful execution of previous
	// test-cases. A nil model means the name must hold nothing.
	saved map[string]*hydrotwin.Model
}

var (
	north        = sampleModel("north", 3)
	northUpdated = sampleModel("north", 5)
	south        = sampleModel("south", 2)
)

var cases = []testCase{
	{
		name:     "load-nonexistent-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			_, err := s.LoadModel(ctx, "north")
			return err
		},
		wantErr: hydrotwin.ErrModelNotFound,
		saved:   map[string]*hydrotwin.Model{"north": nil},
	},
	{
		name:     "delete-nonexistent-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			return s.DeleteModel(ctx, "north")
		},
		wantErr: hydrotwin.ErrModelNotFound,
		saved:   map[string]*hydrotwin.Model{"north": nil},
	},
	{
		name:     "save-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			return s.SaveModel(ctx, "north", north)
		},
		saved: map[string]*hydrotwin.Model{"north": north},
	},
	{
		name:     "save-another-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			return s.SaveModel(ctx, "south", south)
		},
		saved: map[string]*hydrotwin.Model{"north": north, "south": south},
	},
	{
		name:     "replace-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			return s.SaveModel(ctx, "north", northUpdated)
		},
		saved: map[string]*hydrotwin.Model{"north": northUpdated, "south": south},
	},
	{
		name:     "delete-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			return s.DeleteModel(ctx, "north")
		},
		saved: map[string]*hydrotwin.Model{"north": nil, "south": south},
	},
	{
		name:     "save-deleted-model",
		location: locateSource(),
		operation: func(ctx context.Context, s hydrotwin.Store) error {
			return s.SaveModel(ctx, "north", north)
		},
		saved: map[string]*hydrotwin.Model{"north": north, "south": south},
	},
}

// Run executes the test-suite against the given store. The store must not
// hold models named "north", "south" or "churn" beforehand.
func Run(t *testing.T, store hydrotwin.Store) {
	t.Helper()

	// We deliberately use the background context because this test-suite does not
	// check performance.
	ctx := context.Background()

	// All test-cases run in-order, on the same store, because each case's
	// expectations depend on the previous operations.
	for _, c := range cases {
		// We encourage developers to read the source code directly, especially when
		// failures are not clear enough.
		t.Logf("Read the source for test-case %v at %v", c.name, c.location)

		err := c.operation(ctx, store)
		if c.wantErr != nil {
			if !errors.Is(err, c.wantErr) {
				t.Fatalf("%v: error = %v, want %v", c.name, err, c.wantErr)
			}
		} else if err != nil {
			t.Fatalf("%v failed: %v", c.name, err)
		}

		for name, want := range c.saved {
			checkSaved(t, ctx, store, c.name, name, want)
		}
	}

	checkConcurrentReplace(t, ctx, store)
}

// checkConcurrentReplace keeps replacing one model with alternating versions
// while loading it, and checks every load returns one version whole.
func checkConcurrentReplace(t *testing.T, ctx context.Context, store hydrotwin.Store) {
	t.Helper()
	const name, rounds = "churn", 10

	versions := map[hydrotwin.ModelHash]bool{
		hydrotwin.MustFingerprint(north):        true,
		hydrotwin.MustFingerprint(northUpdated): true,
	}
	if err := store.SaveModel(ctx, name, north); err != nil {
		t.Fatalf("concurrent-replace: SaveModel() failed: %v", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for i := range rounds {
			m := north
			if i%2 == 0 {
				m = northUpdated
			}
			if err := store.SaveModel(ctx, name, m); err != nil {
				return fmt.Errorf("save round %d: %w", i, err)
			}
		}
		return nil
	})
	for range 2 {
		g.Go(func() error {
			for i := range rounds {
				m, err := store.LoadModel(ctx, name)
				if err != nil {
					return fmt.Errorf("load round %d: %w", i, err)
				}
				if h := hydrotwin.MustFingerprint(m); !versions[h] {
					return fmt.Errorf("load round %d: got a model mixing two versions (%v)", i, h)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Errorf("concurrent-replace: %v", err)
	}
	if err := store.DeleteModel(context.Background(), name); err != nil {
		t.Errorf("concurrent-replace: DeleteModel() failed: %v", err)
	}
}

func checkSaved(t *testing.T, ctx context.Context, store hydrotwin.Store, caseName, name string, want *hydrotwin.Model) {
	t.Helper()

	got, err := store.LoadModel(ctx, name)
	if want == nil {
		if !errors.Is(err, hydrotwin.ErrModelNotFound) {
			t.Errorf("Check %v after %v: LoadModel() error = %v, want %v", name, caseName, err, hydrotwin.ErrModelNotFound)
		}
		return
	}
	if err != nil {
		t.Errorf("Check %v after %v: LoadModel() failed: %v", name, caseName, err)
		return
	}
	if diff := cmp.Diff(want.Features, got.Features); diff != "" {
		t.Errorf("Check %v after %v: features mismatch (-want +got):\n%s", name, caseName, diff)
	}
	// The fingerprint covers the whole payload, including the order of its
	// keyed collections.
	if wantHash, gotHash := hydrotwin.MustFingerprint(want), hydrotwin.MustFingerprint(got); wantHash != gotHash {
		t.Errorf("Check %v after %v: fingerprint = %v, want %v", name, caseName, gotHash, wantHash)
	}
}

// sampleModel returns a chain of n junctions fed by a fixed head, with a
// sensor on the last junction and one calibration action.
func sampleModel(name string, n int) *hydrotwin.Model {
	var b hydrotwin.ModelBuilder
	b.Start("01/03/24")
	b.Point(hydrotwin.TableFixedHead, name+"-R", 0, 0, hydrotwin.Properties{
		"levels": []any{[]any{0.0, 50.0}},
	})
	prev := name + "-R"
	for i := range n {
		id := fmt.Sprintf("%s-J%d", name, i)
		props := hydrotwin.Properties{"z": float64(10 + i)}
		if i == n-1 {
			props["live_data_point_id"] = name + "-S"
		}
		b.Point(hydrotwin.TableNode, id, float64(i+1), 0, props)
		b.Link(hydrotwin.TablePipe, fmt.Sprintf("%s-P%d", name, i), prev, id, hydrotwin.Properties{
			"length":    100.0,
			"diameter":  150.0,
			"k":         0.1,
			"pipe_type": "DI",
		})
		b.Demand(id, hydrotwin.Demand{CategoryID: "DOM", SpecConsumption: 150, NoOfProperties: float64(i + 1)})
		prev = id
	}
	b.Profile("DOM", []float64{0.5, 1, 1.5})
	b.LiveData(name+"-S", hydrotwin.LiveDataRecord{
		PressureOffset: "1.5",
		TimeOffset:     "0",
		Readings: hydrotwin.Readings{
			Date:     "01/03/2024",
			Time:     "00:00",
			Interval: "15",
			Values:   []float64{30, 31, 32},
		},
	})
	b.Calibrate(hydrotwin.RoughnessAction(1, -0.5, name+"-P0"))
	return b.Build()
}

func locateSource() (path string) {
	_, file, line, ok := runtime.Caller(1)
	if !ok {
		panic("runtime.Caller failed")
	}
	return fmt.Sprintf("%v:%v", file, line)
}
