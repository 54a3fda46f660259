package hydrotwin

import (
	"encoding/json"
	"maps"
	"slices"
	"unsafe"
)

// A ModelBuilder is used to safely and elegantly build a Model using fluent
// calls.
// The zero value is ready to use.
// Do not copy a non-zero ModelBuilder.
type ModelBuilder struct {
	features     []Feature
	demands      Ordered[[]Demand]
	profiles     Ordered[[]float64]
	liveData     Ordered[LiveDataRecord]
	runTime      Properties
	calibrations []CalibrationAction
	extra        map[string]json.RawMessage
	// address of receiver - to detect copies by value.
	// see copyCheck below for details.
	addr *ModelBuilder
}

// Build returns the accumulated Model. Links added without vertices run
// straight between the points at their ends.
func (b *ModelBuilder) Build() *Model {
	m := &Model{
		Features:       make([]Feature, len(b.features)),
		Demands:        b.demands.Clone(),
		DemandProfiles: b.profiles.Clone(),
		LiveData:       b.liveData.Clone(),
		RunTime:        b.runTime.Clone(),
		Calibrations:   slices.Clone(b.calibrations),
		Extra:          maps.Clone(b.extra),
	}

	points := make(map[string][]float64)
	for _, f := range b.features {
		if f.IsPoint() {
			points[f.ID()] = f.Geometry.Point
		}
	}
	for i, f := range b.features {
		f = f.Clone()
		if f.IsLink() && f.Geometry.Vertex == nil {
			us, ds := f.Ends()
			if p, q := points[us], points[ds]; p != nil && q != nil {
				f.Geometry.Vertex = [][]float64{slices.Clone(p), slices.Clone(q)}
			}
		}
		m.Features[i] = f
	}
	return m
}

// Reset resets the Builder to be empty.
func (b *ModelBuilder) Reset() {
	*b = ModelBuilder{}
}

// Hint grows b's feature list, if necessary, to guarantee space for n more
// features. If n is negative, Hint shall panic.
func (b *ModelBuilder) Hint(n int) {
	b.copyCheck()
	if n < 0 {
		panic("hydrotwin.ModelBuilder.Hint: negative feature count")
	}
	b.features = slices.Grow(b.features, n)
}

// Point shall append a node-like feature of the given table at (x, y).
func (b *ModelBuilder) Point(table, id string, x, y float64, props Properties) {
	b.copyCheck()
	p := props.Clone()
	p["id"], p["table"] = id, table
	b.features = append(b.features, Feature{
		Geometry:   &Geometry{Type: GeometryPoint, Point: []float64{x, y}},
		Properties: p,
	})
}

// Link shall append a link-like feature of the given table running from us
// to ds through the given vertices.
func (b *ModelBuilder) Link(table, id, us, ds string, props Properties, vertices ...[]float64) {
	b.copyCheck()
	p := props.Clone()
	p["id"], p["table"] = id, table
	p["us_node_id"], p["ds_node_id"] = us, ds
	b.features = append(b.features, Feature{
		Geometry:   &Geometry{Type: GeometryLineString, Vertex: vertices},
		Properties: p,
	})
}

// Features shall append the given features verbatim.
func (b *ModelBuilder) Features(f ...Feature) {
	b.copyCheck()
	b.features = append(b.features, f...)
}

// Demand shall append demands to the given node.
func (b *ModelBuilder) Demand(node string, d ...Demand) {
	b.copyCheck()
	existing, _ := b.demands.Get(node)
	b.demands.Set(node, append(slices.Clip(existing), d...))
}

// Profile shall set the multipliers of a demand category.
func (b *ModelBuilder) Profile(category string, multipliers []float64) {
	b.copyCheck()
	b.profiles.Set(category, multipliers)
}

// LiveData shall set the raw record of a sensor.
func (b *ModelBuilder) LiveData(id string, rec LiveDataRecord) {
	b.copyCheck()
	if rec.LiveDataPointID == "" {
		rec.LiveDataPointID = id
	}
	b.liveData.Set(id, rec)
}

// Start shall set the canonical start of the simulation ("dd/mm/yy").
func (b *ModelBuilder) Start(date string) {
	b.copyCheck()
	if b.runTime == nil {
		b.runTime = Properties{}
	}
	b.runTime["start_date_time"] = date
}

// Calibrate shall append calibration actions saved with the model.
func (b *ModelBuilder) Calibrate(a ...CalibrationAction) {
	b.copyCheck()
	b.calibrations = append(b.calibrations, a...)
}

// From shall seed b with the payload of m (demands, profiles, live data,
// run-time settings, calibrations and unrecognised members), leaving out its
// features.
func (b *ModelBuilder) From(m *Model) {
	b.copyCheck()
	b.demands = m.Demands.Clone()
	b.profiles = m.DemandProfiles.Clone()
	b.liveData = m.LiveData.Clone()
	b.runTime = m.RunTime.Clone()
	b.calibrations = slices.Clone(m.Calibrations)
	b.extra = maps.Clone(m.Extra)
}

// KeepDemands shall drop the demands of every node for which keep reports
// false.
func (b *ModelBuilder) KeepDemands(keep func(node string) bool) {
	b.copyCheck()
	b.demands = b.demands.Filter(keep)
}

// Noescape hides a pointer from escape analysis.
// It is the identity function, but escape analysis does not think the
// output depends on the input.
// Noescape is inlined and currently compiles down to zero instructions.
// USE CAREFULLY!
// This was copied from the runtime; see issues 23382 and 7921 (github.com/golang/go).
//
//go:nosplit
//go:nocheckptr
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0) //nolint:govet,staticcheck,gosec // copied from the standard library
}

func (b *ModelBuilder) copyCheck() {
	if b.addr == nil {
		// This hack works around a failing of Go's escape analysis
		// that was causing b to escape and be heap-allocated.
		// See issue 23382 (github.com/golang/go).
		// once issue 7921 is fixed, this should be reverted to just "b.addr = b".
		b.addr = (*ModelBuilder)(noescape(unsafe.Pointer(b)))
	} else if b.addr != b {
		panic("hydrotwin: illegal use of non-zero ModelBuilder copied by value")
	}
}
