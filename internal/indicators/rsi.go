package indicators

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI calculates the Relative Strength Index from simple rolling averages of
// gains and losses.
//
// The undefined first delta counts as a zero move, so the first RSI value
// appears on row period-1. A window with no movement at all is NaN; a window
// with gains and no losses is 100.
func RSI(prices []float64, period int) []float64 {
	delta := Diff(prices)

	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))
	for i, d := range delta {
		if d > 0 {
			gains[i] = d
		}
		if d < 0 {
			losses[i] = -d
		}
	}

	avgGain := RollingMean(gains, period)
	avgLoss := RollingMean(losses, period)

	out := make([]float64, len(prices))
	for i := range out {
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - (100 / (1 + rs))
	}

	return out
}
