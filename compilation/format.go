package compilation

import (
	"math"
	"strconv"
	"strings"
)

// exactDigits is enough fractional digits to write any float64 exactly.
const exactDigits = 1100

// FormatFixed formats x with exactly digits fractional digits, the way the
// solver's existing input files were produced.
//
// Rounding is decided on the exact binary value of x, and ties round away
// from zero, so 1.005 (which is stored as 1.00499999999999989...) formats as
// "1.00" while 0.5 formats as "1" with no digits. Negative zero prints without
// a sign, NaN as "NaN" and infinities as "Infinity" and "-Infinity".
// Magnitudes of 1e21 and above are written in exponent form.
func FormatFixed(x float64, digits int) string {
	switch {
	case math.IsNaN(x):
		return "NaN"
	case math.IsInf(x, 1):
		return "Infinity"
	case math.IsInf(x, -1):
		return "-Infinity"
	case math.Abs(x) >= 1e21:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}

	neg := x < 0
	exact := strconv.FormatFloat(math.Abs(x), 'f', exactDigits, 64)
	whole, frac, _ := strings.Cut(exact, ".")

	kept := []byte(whole + frac[:digits])
	if frac[digits] >= '5' {
		roundUp(&kept)
	}
	n := len(kept) - digits
	s := string(kept[:n])
	if digits > 0 {
		s += "." + string(kept[n:])
	}
	if neg {
		s = "-" + s
	}
	return s
}

// roundUp adds one unit in the last place to a string of decimal digits,
// growing it by a leading 1 on overflow.
func roundUp(d *[]byte) {
	b := *d
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < '9' {
			b[i]++
			return
		}
		b[i] = '0'
	}
	*d = append([]byte{'1'}, b...)
}
