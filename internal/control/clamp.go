package control

import "math"

// Clamp bounds x to [lo, hi]. A NaN x stays NaN.
func Clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
