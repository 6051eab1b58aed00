// Package util provides small numeric and string helpers used across the
// aggregation packages.
package util

import (
	"math"
	"strconv"
)

// SafeDiv returns a/b, or def when b is zero or the result is not finite.
func SafeDiv(a, b, def float64) float64 {
	if b == 0 {
		return def
	}
	r := a / b
	if !Finite(r) {
		return def
	}
	return r
}

// Finite reports whether f is neither NaN nor infinite.
func Finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CeilSecond maps a millisecond timestamp to the index of the one-second
// tick that contains it.
func CeilSecond(ms float64) int {
	return int(math.Ceil(ms / 1000))
}

// TrimIDPrefix strips the single-letter prefix EI puts on map keys
// ("s1234", "b740", "d-12") and returns the numeric id. ok is false when
// the remainder is not an integer.
func TrimIDPrefix(key string) (int, bool) {
	if key == "" {
		return 0, false
	}
	s := key
	if c := s[0]; c < '0' || c > '9' {
		if c != '-' {
			s = s[1:]
		}
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return id, true
}
