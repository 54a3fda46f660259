package solver

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-digitaltwin/hydrotwin"
)

func TestMapResults(t *testing.T) {
	p := Pressures{
		{10, 20, 30},
		{11, 21},
	}
	points := []hydrotwin.LiveDataPoint{
		{NodeID: "J1", LiveDataID: "S1", SolverIndex: 0},
		{NodeID: "J3", LiveDataID: "S3", SolverIndex: 2},
		{NodeID: "J9", LiveDataID: "S9", SolverIndex: -1},
	}
	want := map[string][]float64{
		"S1": {10, 11},
		"S3": {30, math.NaN()},
		"S9": {math.NaN(), math.NaN()},
	}
	got := MapResults(p, points)
	if diff := cmp.Diff(want, got, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("MapResults() mismatch (-want +got):\n%s", diff)
	}
}

func TestMapResults_noPoints(t *testing.T) {
	got := MapResults(Pressures{{1}}, nil)
	if len(got) != 0 {
		t.Errorf("MapResults() = %v, want empty", got)
	}
}

func TestNewRequest(t *testing.T) {
	a := NewRequest("input", nil)
	b := NewRequest("input", nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("NewRequest() ids %q and %q are not unique", a.ID, b.ID)
	}
	if a.Input != "input" {
		t.Errorf("NewRequest().Input = %q, want %q", a.Input, "input")
	}
}
