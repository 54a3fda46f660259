package compilation

import (
	"math"
	"testing"
)

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		name   string
		x      float64
		digits int
		want   string
	}{
		{"Integer", 3, 6, "3.000000"},
		{"Zero", 0, 2, "0.00"},
		{"NegativeZero", math.Copysign(0, -1), 2, "0.00"},
		{"NoDigits", 12.25, 0, "12"},
		{"TieAwayFromZero", 0.5, 0, "1"},
		{"TieAboveTwo", 2.5, 0, "3"},
		{"NegativeTie", -1.5, 0, "-2"},
		{"ExactTie", 0.125, 2, "0.13"},
		{"BinaryBelowTie", 1.005, 2, "1.00"},
		{"NegativeRoundsToZero", -0.0001, 2, "-0.00"},
		{"Carry", 9.9999, 3, "10.000"},
		{"Elevation", 10.5, 12, "10.500000000000"},
		{"Demand", 50.0 / 86400, 6, "0.000579"},
		{"Shut", 1e12, 6, "1000000000000.000000"},
		{"Huge", 1e21, 2, "1e+21"},
		{"NaN", math.NaN(), 6, "NaN"},
		{"Infinity", math.Inf(1), 6, "Infinity"},
		{"NegativeInfinity", math.Inf(-1), 6, "-Infinity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFixed(tt.x, tt.digits); got != tt.want {
				t.Errorf("FormatFixed(%v, %d) = %q, want %q", tt.x, tt.digits, got, tt.want)
			}
		})
	}
}
