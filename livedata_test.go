package hydrotwin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLiveDataPoints(t *testing.T) {
	var b ModelBuilder
	b.Point(TableFixedHead, "R", 0, 0, nil)
	b.Point(TableNode, "J1", 1, 0, Properties{"live_data_point_id": "Z"})
	b.Point(TableTransferNode, "T1", 2, 0, Properties{"live_data_point_id": "T"})
	b.Point(TableHydrant, "H1", 3, 0, nil)
	b.Link(TablePipe, "P1", "R", "J1", Properties{"live_data_point_id": "P"})
	b.Point(TableNode, "J2", 4, 0, Properties{"live_data_point_id": "A"})

	want := []LiveDataPoint{
		{NodeID: "J2", LiveDataID: "A", SolverIndex: 3},
		{NodeID: "J1", LiveDataID: "Z", SolverIndex: 0},
	}
	if diff := cmp.Diff(want, LiveDataPoints(b.Build())); diff != "" {
		t.Errorf("LiveDataPoints() mismatch (-want +got):\n%s", diff)
	}
}
