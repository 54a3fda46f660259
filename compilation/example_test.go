package compilation_test

import (
	"fmt"
	"strings"

	"github.com/go-digitaltwin/hydrotwin"
	"github.com/go-digitaltwin/hydrotwin/compilation"
)

func ExampleCompile() {
	var b hydrotwin.ModelBuilder
	b.Start("01/03/24")
	b.Point(hydrotwin.TableFixedHead, "Main Tank", 0, 0, hydrotwin.Properties{
		"levels": []any{[]any{"00:00", 40.0}, []any{"00:15", 42.0}},
	})
	b.Point(hydrotwin.TableNode, "J1", 10, 0, hydrotwin.Properties{"z": 3.25})
	b.Link(hydrotwin.TableValve, "V1", "Main Tank", "J1", hydrotwin.Properties{
		"mode":     "THV",
		"diameter": 150.0,
		"opening":  80.0,
	})
	m := b.Build()

	// Calibration overrides apply to this compilation only.
	overrides := hydrotwin.Overrides([]hydrotwin.CalibrationAction{
		hydrotwin.ThrottleAction(1, 45, "V1"),
	})
	input := compilation.Compile(m, overrides)

	// Print everything up to the patterns.
	head, _, _ := strings.Cut(input, "[PATTERNS]")
	fmt.Print(head)
	// Output:
	// [JUNCTIONS]
	// J1 3.250000000000
	// [RESERVOIRS]
	// Main_Tank 40.000000 Main_Tank
	// [PIPES]
	//
	// [VALVES]
	// 2 Main_Tank J1 150.000000 TCV 3.000000 0.000100
	//
	// [DEMANDS]
	//
	//
	// [STATUS]
}

func ExampleLossCoefficient() {
	for _, opening := range []float64{-5, 0, 7.5, 50, 100} {
		fmt.Printf("%5.1f%% open: %.6f\n", opening, compilation.LossCoefficient(&opening))
	}
	fmt.Println("unknown:", compilation.LossCoefficient(nil))
	// Output:
	//  -5.0% open: 1000000000000.000000
	//   0.0% open: 1000000000000.000000
	//   7.5% open: 250.998008
	//  50.0% open: 2.060000
	// 100.0% open: 0.000100
	// unknown: 0.0001
}

func ExampleFormatFixed() {
	fmt.Println(compilation.FormatFixed(0.125, 2))
	fmt.Println(compilation.FormatFixed(1.005, 2))
	fmt.Println(compilation.FormatFixed(-0.0, 6))
	// Output:
	// 0.13
	// 1.00
	// 0.000000
}
