package indicators

import "math"

// DefaultATRPeriod is the conventional ATR lookback.
const DefaultATRPeriod = 14

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|). On the
// first row there is no previous close and the range is high-low.
func TrueRange(high, low, close []float64) []float64 {
	prevClose := Shift(close, 1)

	out := make([]float64, len(close))
	for i := range out {
		out[i] = maxDefined(
			high[i]-low[i],
			math.Abs(high[i]-prevClose[i]),
			math.Abs(low[i]-prevClose[i]),
		)
	}

	return out
}

// ATR calculates the Average True Range as a simple rolling mean of the true
// range.
func ATR(high, low, close []float64, period int) []float64 {
	return RollingMean(TrueRange(high, low, close), period)
}

// maxDefined ignores NaN candidates and is NaN only if all of them are.
func maxDefined(candidates ...float64) float64 {
	best := math.NaN()
	for _, v := range candidates {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(best) || v > best {
			best = v
		}
	}
	return best
}
