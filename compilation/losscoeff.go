package compilation

import "math"

const (
	// ShutLossCoefficient is the loss coefficient of a fully shut valve.
	ShutLossCoefficient = 1e12
	// OpenLossCoefficient is the loss coefficient of a fully open valve.
	OpenLossCoefficient = 0.0001
	// DefaultLossCoefficient applies to a valve without an opening. It
	// equals OpenLossCoefficient: a valve nobody set is assumed open.
	DefaultLossCoefficient = 0.0001
)

// gateValve maps the percentage opening of a gate valve to its loss
// coefficient, in ascending order of opening.
var gateValve = [...]struct{ opening, coeff float64 }{
	{0, 1e12},
	{1, 10000},
	{2, 3000},
	{3, 1200},
	{5, 420},
	{10, 150},
	{15, 60},
	{20, 35},
	{25, 19},
	{30, 10},
	{35, 6},
	{40, 4.6},
	{45, 3},
	{50, 2.06},
	{55, 1.4},
	{60, 0.98},
	{65, 0.6},
	{70, 0.44},
	{75, 0.28},
	{80, 0.17},
	{85, 0.11},
	{90, 0.06},
	{95, 0.01},
	{100, 0.0001},
}

// LossCoefficient converts the percentage opening of a throttle valve into a
// loss coefficient for the solver, interpolating the gate-valve curve.
//
// A nil opening yields DefaultLossCoefficient. Openings below 0 are shut and
// openings of 100 or more fully open. An opening on an anchor of the curve
// yields the anchor's value exactly; between anchors the coefficient is
// interpolated geometrically, as after^f * before^(1-f), where f is the
// fractional position of the opening between the two anchors.
func LossCoefficient(opening *float64) float64 {
	if opening == nil || math.IsNaN(*opening) {
		return DefaultLossCoefficient
	}
	o := *opening
	switch {
	case o < 0:
		return ShutLossCoefficient
	case o >= 100:
		return OpenLossCoefficient
	}
	for i, anchor := range gateValve {
		if anchor.opening == o {
			return anchor.coeff
		}
		if anchor.opening > o {
			before := gateValve[i-1]
			a := o - before.opening
			b := anchor.opening - o
			f := a / (a + b)
			return math.Pow(anchor.coeff, f) * math.Pow(before.coeff, 1-f)
		}
	}
	return OpenLossCoefficient // unreachable: o < 100 always finds an anchor
}
