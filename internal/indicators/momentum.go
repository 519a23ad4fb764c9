package indicators

// Momentum and rate-of-change defaults.
const (
	DefaultMomentumPeriod = 10
	DefaultROCPeriod      = 12
)

// Momentum returns price - price[period rows ago].
func Momentum(prices []float64, period int) []float64 {
	prev := Shift(prices, period)

	out := make([]float64, len(prices))
	for i := range out {
		out[i] = prices[i] - prev[i]
	}

	return out
}

// ROC returns the percentage change against price[period rows ago].
func ROC(prices []float64, period int) []float64 {
	prev := Shift(prices, period)

	out := make([]float64, len(prices))
	for i := range out {
		out[i] = ((prices[i] - prev[i]) / prev[i]) * 100
	}

	return out
}
