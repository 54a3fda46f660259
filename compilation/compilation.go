/*
Package compilation serialises a hydrotwin.Model into the section-based text
input of the hydraulic solver.

A compilation is a pure function of the model and a set of calibration
overrides: the same pair always yields byte-identical text, so compiled output
can be compared, cached and diffed. Overrides are layered on top of the
model's properties for the duration of a single compilation only; the model
itself is never modified.

The solver reads the elements it is given in a fixed order of sections:

	[JUNCTIONS]   nodes, hydrants and transfer nodes
	[RESERVOIRS]  the fixed head
	[PIPES]       pipes, meters and non-return valves
	[VALVES]      throttle (TCV) then pressure-reducing (PRV) valves
	[DEMANDS]     per-node demand per category, then transfer nodes
	[STATUS]      valves left fully shut
	[PATTERNS]    head levels, transfer flows and demand profiles
	[COORDINATES] point locations
	[VERTICES]    link geometry
	[CONTROLS]    time-of-day set points of PRVs

followed by the fixed [TIMES] and [OPTIONS] blocks. Every element is
referenced by its dense index in the model's feature list, which the solver
uses as its element identifier; node ids have their spaces replaced by
underscores.
*/
package compilation

import (
	"strings"

	"github.com/go-digitaltwin/hydrotwin"
)

// Tail is the fixed timing and options block ending every compilation.
const Tail = `[TIMES]
Pattern Timestep 0:15
Duration 23:45:00
Hydraulic Timestep 0:15
Quality Timestep 0:15
Pattern Start 0:00
Report Timestep 0:15
Report Start 0:00
Start ClockTime 12:00 AM
Statistic None
[OPTIONS]
Units LPS
Headloss D-W
Trials 500
Accuracy 0.01
UNBALANCED CONTINUE 999
[END]`

// Element is a feature as seen by a compilation: its properties merged with
// any override, and its dense index in the model's feature list.
type Element struct {
	hydrotwin.Feature
	Index int
}

// Merge layers overrides onto the features of m. Every element receives its
// feature-order index as property "i"; an override, keyed by feature id, is
// shallow-merged on top and wins on conflict. The features of m are not
// modified.
func Merge(m *hydrotwin.Model, overrides map[string]hydrotwin.Properties) []Element {
	elems := make([]Element, len(m.Features))
	for i, f := range m.Features {
		props := f.Properties.Merge(hydrotwin.Properties{"i": float64(i)})
		if o, ok := overrides[f.ID()]; ok {
			props = props.Merge(o)
		}
		elems[i] = Element{
			Feature: hydrotwin.Feature{Geometry: f.Geometry, Properties: props},
			Index:   i,
		}
	}
	return elems
}

// Compile serialises m, with overrides applied, into solver input.
func Compile(m *hydrotwin.Model, overrides map[string]hydrotwin.Properties) string {
	c := &compilation{model: m, elems: Merge(m, overrides)}

	var b strings.Builder
	for _, s := range sections {
		b.WriteString("[" + s.name + "]\n")
		b.WriteString(s.body(c))
		b.WriteByte('\n')
	}
	b.WriteString(Tail)
	return b.String()
}

// compilation carries the merged elements of one Compile call.
type compilation struct {
	model *hydrotwin.Model
	elems []Element
}

// filter returns the elements for which keep reports true, in feature order.
func (c *compilation) filter(keep func(Element) bool) []Element {
	var out []Element
	for _, e := range c.elems {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func inTable(tables ...string) func(Element) bool {
	return func(e Element) bool {
		t := e.Table()
		for _, want := range tables {
			if t == want {
				return true
			}
		}
		return false
	}
}

// solverID makes an id safe for the whitespace-separated solver format.
func solverID(id string) string {
	return strings.ReplaceAll(id, " ", "_")
}

// index returns the solver identifier of an element: its merged "i".
func (e Element) index() string {
	return e.Properties.String("i")
}

// lines joins the rendering of each element with newlines.
func lines(elems []Element, render func(Element) string) string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = render(e)
	}
	return strings.Join(out, "\n")
}
