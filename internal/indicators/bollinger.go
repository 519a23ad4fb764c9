package indicators

// Bollinger defaults.
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
)

// BollingerBands holds the upper, middle and lower bands.
type BollingerBands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger calculates SMA(period) +/- numStd sample standard deviations.
func Bollinger(prices []float64, period int, numStd float64) BollingerBands {
	middle := RollingMean(prices, period)
	std := RollingStd(prices, period)

	upper := make([]float64, len(prices))
	lower := make([]float64, len(prices))
	for i := range prices {
		upper[i] = middle[i] + (std[i] * numStd)
		lower[i] = middle[i] - (std[i] * numStd)
	}

	return BollingerBands{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
	}
}
