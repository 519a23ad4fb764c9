package indicators

import "math"

// MACD defaults.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// EMA calculates the recursive exponential moving average with smoothing
// factor 2/(span+1), seeded with the first defined observation. Rows before
// that seed are NaN; every later row is defined.
//
// The update is written as a normalised weighted pair,
// (w*prev + alpha*x) / (w + alpha), so results match other recursive
// implementations bit for bit instead of drifting by the rounding of w+alpha.
// A NaN row carries the previous average and decays its weight, so the next
// observation counts for more. An observation equal to the average leaves it
// untouched.
func EMA(values []float64, span int) []float64 {
	out := NaNs(len(values))
	if len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	decay := 1.0 - alpha

	weighted := values[0]
	oldWeight := 1.0
	out[0] = weighted
	for i := 1; i < len(values); i++ {
		v := values[i]
		observed := !math.IsNaN(v)

		switch {
		case !math.IsNaN(weighted):
			oldWeight *= decay
			if observed {
				if weighted != v {
					weighted = (oldWeight*weighted + alpha*v) / (oldWeight + alpha)
				}
				oldWeight = 1.0
			}
		case observed:
			weighted = v
		}
		out[i] = weighted
	}

	return out
}

// MACDResult holds the three MACD series.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD calculates EMA(fast) - EMA(slow), its EMA(signal) signal line and the
// histogram between the two.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)

	line := make([]float64, len(prices))
	for i := range line {
		line[i] = fastEMA[i] - slowEMA[i]
	}

	signalLine := EMA(line, signal)

	histogram := make([]float64, len(prices))
	for i := range histogram {
		histogram[i] = line[i] - signalLine[i]
	}

	return MACDResult{
		MACD:      line,
		Signal:    signalLine,
		Histogram: histogram,
	}
}
