// Package indicators implements the primitive technical indicators used by the
// composite signal engine.
//
// Every function takes whole series and returns a slice aligned to its input:
// out[i] describes the same candle as in[i]. Rows without enough history hold
// NaN; callers decide when to neutralise them.
package indicators

import "math"

// NaNs returns a slice of length n filled with NaN.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Shift lags values by n rows. Positive n looks backwards, the vacated leading
// rows become NaN. Negative n looks forwards.
func Shift(values []float64, n int) []float64 {
	out := NaNs(len(values))
	for i := range values {
		j := i - n
		if j >= 0 && j < len(values) {
			out[i] = values[j]
		}
	}
	return out
}

// Diff returns the first difference values[i] - values[i-1].
func Diff(values []float64) []float64 {
	out := NaNs(len(values))
	for i := 1; i < len(values); i++ {
		out[i] = values[i] - values[i-1]
	}
	return out
}

// Abs returns the element-wise absolute value.
func Abs(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Abs(v)
	}
	return out
}

// Sign returns -1, 0 or 1. NaN stays NaN and infinities keep their sign.
func Sign(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return math.NaN()
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Clip bounds v to [lo, hi]. NaN passes through untouched.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FillNaN replaces NaN with fill.
func FillNaN(v, fill float64) float64 {
	if math.IsNaN(v) {
		return fill
	}
	return v
}

func hasNaN(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
