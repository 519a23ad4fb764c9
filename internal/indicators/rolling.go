package indicators

import "math"

// RollingMean is the trailing simple moving average over period rows.
// A window needs period defined values; otherwise the row is NaN.
//
// The sum is carried forward with compensated add and remove steps, so row i
// only ever sees rows up to i. A window whose values are all identical
// returns that value exactly.
func RollingMean(values []float64, period int) []float64 {
	out := NaNs(len(values))
	if period <= 0 {
		return out
	}

	var w meanWindow
	for i, v := range values {
		if i >= period {
			w.remove(values[i-period])
		}
		w.add(v)
		if i >= period-1 {
			out[i] = w.mean(period)
		}
	}

	return out
}

// meanWindow is a running sum over the defined values of a sliding window.
type meanWindow struct {
	sum        float64
	addComp    float64
	removeComp float64
	count      int
	negatives  int
	sameRun    int
	last       float64
}

func (w *meanWindow) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	w.count++
	y := v - w.addComp
	t := w.sum + y
	w.addComp = t - w.sum - y
	w.sum = t
	if math.Signbit(v) {
		w.negatives++
	}

	if w.count > 1 && v == w.last {
		w.sameRun++
	} else {
		w.sameRun = 1
	}
	w.last = v
}

func (w *meanWindow) remove(v float64) {
	if math.IsNaN(v) {
		return
	}
	w.count--
	y := -v - w.removeComp
	t := w.sum + y
	w.removeComp = t - w.sum - y
	w.sum = t
	if math.Signbit(v) {
		w.negatives--
	}
}

func (w *meanWindow) mean(minCount int) float64 {
	if w.count < minCount || w.count == 0 {
		return math.NaN()
	}

	result := w.sum / float64(w.count)
	switch {
	case w.sameRun >= w.count:
		result = w.last
	case w.negatives == 0 && result < 0:
		result = 0
	case w.negatives == w.count && result > 0:
		result = 0
	}
	return result
}

// RollingStd is the trailing sample standard deviation (ddof=1).
func RollingStd(values []float64, period int) []float64 {
	return rollingApply(values, period, sampleStdDev)
}

// RollingMax is the trailing maximum over period rows.
func RollingMax(values []float64, period int) []float64 {
	return rollingApply(values, period, maximum)
}

// rollingApply evaluates fn on every complete window. Windows containing NaN
// are undefined.
func rollingApply(values []float64, period int, fn func(window []float64) float64) []float64 {
	out := NaNs(len(values))
	if period <= 0 {
		return out
	}

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		if hasNaN(window) {
			continue
		}
		out[i] = fn(window)
	}

	return out
}

func mean(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

func sampleStdDev(window []float64) float64 {
	if len(window) < 2 {
		return math.NaN()
	}

	if allEqual(window) {
		return 0
	}

	m := mean(window)
	variance := 0.0
	for _, v := range window {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(window) - 1)

	return math.Sqrt(variance)
}

func maximum(window []float64) float64 {
	best := window[0]
	for _, v := range window[1:] {
		if v > best {
			best = v
		}
	}
	return best
}

func allEqual(window []float64) bool {
	for _, v := range window[1:] {
		if v != window[0] {
			return false
		}
	}
	return true
}
