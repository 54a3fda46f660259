package hydrotwin

import (
	"math"
	"strconv"
	"strings"
)

// ParseFloat parses the longest numeric prefix of s, after leading white
// space, the way loosely typed extracts expect: "0." is 0, "1.5bar" is 1.5 and
// "Infinity" is +Inf. The bool result is false when s has no numeric prefix.
func ParseFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	n := numericPrefix(s)
	if n == 0 {
		rest := s
		sign := 1.0
		if strings.HasPrefix(rest, "-") {
			rest, sign = rest[1:], -1
		} else if strings.HasPrefix(rest, "+") {
			rest = rest[1:]
		}
		if strings.HasPrefix(rest, "Infinity") {
			return math.Inf(int(sign)), true
		}
		return 0, false
	}
	// The prefix is well formed, so the only possible error is ErrRange, for
	// which ParseFloat already returns the saturated value.
	f, _ := strconv.ParseFloat(s[:n], 64)
	return f, true
}

// numericPrefix returns the length of the longest prefix of s that forms a
// decimal literal: [+-] digits [. digits] [e [+-] digits], where at least one
// mantissa digit is required.
func numericPrefix(s string) int {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits > 0 || frac > 0 {
			i = j
			digits += frac
		}
	}
	if digits == 0 {
		return 0
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
		}
	}
	return i
}

// leadingInt parses the leading decimal digits of s, ignoring leading white
// space and an optional sign. It fails when there are no digits.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, v := 0, 0
	for n < len(s) && isDigit(s[n]) {
		v = v*10 + int(s[n]-'0')
		n++
	}
	if n == 0 {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

func isDigit(c byte) bool { return '0' <= c && c <= '9' }
