package compilation

import (
	"strings"

	"github.com/go-digitaltwin/hydrotwin"
)

// A section renders the body of one bracketed block of solver input.
type section struct {
	name string
	body func(c *compilation) string
}

// sections lists the blocks of solver input in the order the solver expects.
var sections = []section{
	{"JUNCTIONS", junctions},
	{"RESERVOIRS", reservoirs},
	{"PIPES", pipes},
	{"VALVES", valves},
	{"DEMANDS", demands},
	{"STATUS", status},
	{"PATTERNS", patterns},
	{"COORDINATES", coordinates},
	{"VERTICES", vertices},
	{"CONTROLS", controls},
}

func junctions(c *compilation) string {
	nodes := c.filter(inTable(hydrotwin.TableNode, hydrotwin.TableHydrant, hydrotwin.TableTransferNode))
	return lines(nodes, func(e Element) string {
		return solverID(e.ID()) + " " + FormatFixed(e.Properties.FloatOr("z", 0), 12)
	})
}

func reservoirs(c *compilation) string {
	heads := c.filter(inTable(hydrotwin.TableFixedHead))
	return lines(heads, func(e Element) string {
		var level float64
		if levels := e.Properties.Column("levels", 1); len(levels) > 0 {
			level = levels[0]
		}
		id := solverID(e.ID())
		return id + " " + FormatFixed(level, 6) + " " + id
	})
}

func pipes(c *compilation) string {
	links := c.filter(inTable(hydrotwin.TablePipe, hydrotwin.TableMeter, hydrotwin.TableNonReturnValve))
	return lines(links, func(e Element) string {
		tail := ""
		if e.Table() == hydrotwin.TableNonReturnValve {
			tail = " CV"
		}
		us, ds := e.Ends()
		return strings.Join([]string{
			e.index(),
			solverID(us),
			solverID(ds),
			FormatFixed(e.Properties.FloatOr("length", 0), 6),
			FormatFixed(e.Properties.FloatOr("diameter", 0), 6),
			FormatFixed(e.Properties.FloatOr("k", 0), 6),
			"0.000000",
			tail,
		}, " ")
	})
}

func isPRV(e Element) bool {
	return e.Table() == hydrotwin.TableValve && e.Properties.String("mode") == "PRV"
}

func isTCV(e Element) bool {
	return e.Table() == hydrotwin.TableValve && e.Properties.String("mode") != "PRV"
}

func valves(c *compilation) string {
	tcv := lines(c.filter(isTCV), func(e Element) string {
		us, ds := e.Ends()
		return strings.Join([]string{
			e.index(),
			solverID(us),
			solverID(ds),
			FormatFixed(e.Properties.FloatOr("diameter", 0), 6),
			"TCV",
			FormatFixed(openingLossCoefficient(e.Properties), 6),
			"0.000100",
		}, " ")
	})
	prv := lines(c.filter(isPRV), func(e Element) string {
		us, ds := e.Ends()
		return strings.Join([]string{
			e.index(),
			solverID(us),
			solverID(ds),
			FormatFixed(e.Properties.FloatOr("diameter", 0), 6),
			"PRV",
			FormatFixed(setPressure(e.Properties), 6),
			"1.500000",
		}, " ")
	})
	return tcv + "\n" + prv
}

// setPressure returns the initial set point of a PRV: the first row of its
// profile when it has one, otherwise its pressure property.
func setPressure(p hydrotwin.Properties) float64 {
	if rows := p.Rows("profile"); len(rows) > 0 && len(rows[0]) > 8 {
		v, _ := hydrotwin.ParseFloat(rows[0][8])
		return v
	}
	return p.FloatOr("pressure", 0)
}

// openingLossCoefficient reads the opening of a valve, numeric or textual,
// and converts it to a loss coefficient. A null opening counts as shut; an
// absent or unreadable one as fully open.
func openingLossCoefficient(p hydrotwin.Properties) float64 {
	v, present := p["opening"]
	switch {
	case !present:
		return LossCoefficient(nil)
	case v == nil:
		return LossCoefficient(ptr(0))
	}
	if opening, ok := p.Float("opening"); ok {
		return LossCoefficient(&opening)
	}
	return LossCoefficient(nil)
}

func ptr(v float64) *float64 { return &v }

func status(c *compilation) string {
	shut := c.filter(func(e Element) bool {
		// Only the literal text "0." marks a shut valve; a numeric 0 does not.
		opening, ok := e.Properties["opening"].(string)
		return e.Table() == hydrotwin.TableValve && ok && opening == "0."
	})
	return lines(shut, func(e Element) string {
		return e.index() + " CLOSED"
	})
}

func demands(c *compilation) string {
	var nodes []string
	for node, ds := range c.model.Demands.All() {
		nodes = append(nodes, sumDemands(node, ds))
	}
	transfer := lines(c.filter(inTable(hydrotwin.TableTransferNode)), func(e Element) string {
		id := solverID(e.ID())
		return id + " 1.000000 " + id
	})
	return strings.Join(nodes, "\n") + "\n" + transfer
}

// sumDemands renders the demand of a node, one line per category, in litres
// per second.
func sumDemands(node string, ds []hydrotwin.Demand) string {
	var sums hydrotwin.Ordered[float64]
	for _, d := range ds {
		sum, _ := sums.Get(d.CategoryID)
		sums.Set(d.CategoryID, sum+d.Flow())
	}
	var out []string
	for category, sum := range sums.All() {
		out = append(out, solverID(node)+" "+FormatFixed(sum, 6)+" "+solverID(category))
	}
	return strings.Join(out, "\n")
}

func patterns(c *compilation) string {
	heads := lines(c.filter(inTable(hydrotwin.TableFixedHead)), func(e Element) string {
		levels := e.Properties.Column("levels", 1)
		normalised := make([]float64, len(levels))
		for i, l := range levels {
			normalised[i] = l / levels[0]
		}
		return pattern(e.ID(), normalised)
	})
	transfer := lines(c.filter(inTable(hydrotwin.TableTransferNode)), func(e Element) string {
		return pattern(e.ID(), e.Properties.Column("flows", 1))
	})
	var profiles []string
	for category, multipliers := range c.model.DemandProfiles.All() {
		profiles = append(profiles, pattern(category, multipliers))
	}
	return heads + "\n" + transfer + "\n" + strings.Join(profiles, "\n")
}

// patternWidth is the number of multipliers per pattern line.
const patternWidth = 6

// pattern renders a series of multipliers in lines of six. A short final
// line carries only the multipliers that remain.
func pattern(id string, values []float64) string {
	id = solverID(id)
	var out []string
	for start := 0; start < len(values); start += patternWidth {
		end := min(start+patternWidth, len(values))
		var b strings.Builder
		b.WriteString(id)
		for _, v := range values[start:end] {
			b.WriteByte(' ')
			b.WriteString(FormatFixed(v, 6))
		}
		out = append(out, b.String())
	}
	return strings.Join(out, "\n")
}

func coordinates(c *compilation) string {
	points := c.filter(func(e Element) bool { return e.IsPoint() })
	return lines(points, func(e Element) string {
		return solverID(e.ID()) + " " + formatPoint(e.Geometry.Point)
	})
}

func vertices(c *compilation) string {
	links := c.filter(func(e Element) bool { return e.IsLink() })
	return lines(links, func(e Element) string {
		out := make([]string, len(e.Geometry.Vertex))
		for i, v := range e.Geometry.Vertex {
			out[i] = e.index() + " " + formatPoint(v)
		}
		return strings.Join(out, "\n")
	})
}

func formatPoint(p []float64) string {
	var x, y float64
	if len(p) > 0 {
		x = p[0]
	}
	if len(p) > 1 {
		y = p[1]
	}
	return FormatFixed(x, 6) + " " + FormatFixed(y, 6)
}
