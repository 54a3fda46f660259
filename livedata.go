package hydrotwin

import (
	"slices"
	"strings"
)

// LiveDataPoint ties a sensor to the junction it is attached to and to that
// junction's index in the solver's node table.
type LiveDataPoint struct {
	NodeID      string `json:"nodeId"`
	LiveDataID  string `json:"liveDataId"`
	SolverIndex int    `json:"solverIndex"`
}

// LiveDataPoints lists the sensors whose simulated pressure can be read back
// from the solver, sorted by live-data id.
//
// The solver numbers junctions in the order they are compiled, so the index
// of a point is its position among the junction-kind features of m. Transfer
// nodes are numbered but never reported.
func LiveDataPoints(m *Model) []LiveDataPoint {
	var points []LiveDataPoint
	i := 0
	for _, f := range m.Features {
		if !f.IsJunction() {
			continue
		}
		if id := f.LiveDataID(); id != "" && f.Table() != TableTransferNode {
			points = append(points, LiveDataPoint{NodeID: f.ID(), LiveDataID: id, SolverIndex: i})
		}
		i++
	}
	slices.SortStableFunc(points, func(a, b LiveDataPoint) int {
		return strings.Compare(a.LiveDataID, b.LiveDataID)
	})
	return points
}
