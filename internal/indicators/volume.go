package indicators

// DefaultVolumePeriod is the default volume SMA lookback.
const DefaultVolumePeriod = 20

// VolumeSMA is the plain rolling mean of volume.
func VolumeSMA(volume []float64, period int) []float64 {
	return RollingMean(volume, period)
}

// OBV calculates On-Balance Volume. The first row seeds with the first volume;
// each later row adds its volume on an up close, subtracts it on a down close
// and carries the previous total otherwise.
func OBV(close, volume []float64) []float64 {
	out := make([]float64, len(close))
	if len(close) == 0 {
		return out
	}

	out[0] = volume[0]
	for i := 1; i < len(close); i++ {
		switch {
		case close[i] > close[i-1]:
			out[i] = out[i-1] + volume[i]
		case close[i] < close[i-1]:
			out[i] = out[i-1] - volume[i]
		default:
			out[i] = out[i-1]
		}
	}

	return out
}
