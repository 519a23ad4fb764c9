package composite

import (
	"math"

	"github.com/irfndi/celebrum-signals/internal/indicators"
)

// epsilon guards every ratio whose denominator can reach zero.
const epsilon = 1e-6

const histogramNormWindow = 20

const maxATRRatio = 0.1

const expectedBandWidth = 0.1

// Weighted terms are wrapped in float64 conversions so the compiler cannot
// fuse them into FMA instructions; sums must round the same way on every
// platform.

// finalize neutralizes undefined rows and bounds the score to [-1, 1].
func finalize(score []float64) []float64 {
	for i, v := range score {
		score[i] = indicators.Clip(indicators.FillNaN(v, 0), -1, 1)
	}
	return score
}

// MomentumScore folds RSI, the MACD histogram, momentum and ROC into one
// bounded score.
func MomentumScore(rsi, histogram, momentum, roc []float64) []float64 {
	absHist := indicators.Abs(histogram)
	histMax := indicators.RollingMax(absHist, histogramNormWindow)

	score := make([]float64, len(rsi))
	for i := range score {
		rsiSignal := (rsi[i] - 50) / 50
		macdSignal := indicators.Sign(histogram[i]) * (absHist[i] / (histMax[i] + epsilon))
		momentumSignal := indicators.Sign(momentum[i])
		rocSignal := indicators.Sign(roc[i])

		score[i] = float64(0.35*rsiSignal) + float64(0.35*macdSignal) + float64(0.20*momentumSignal) + float64(0.10*rocSignal)
	}

	return finalize(score)
}

// TrendScore measures where the close sits relative to the lookback SMA and
// the lower Bollinger band, plus the alignment of the short and long SMAs.
func TrendScore(close, smaShort, smaLong, bollingerLower, bollingerMid []float64) []float64 {
	score := make([]float64, len(close))
	for i := range score {
		closeToMid := indicators.Clip((close[i]-smaShort[i])/(smaShort[i]+epsilon), -1, 1)
		closeToLower := indicators.Clip((close[i]-bollingerLower[i])/(bollingerMid[i]+epsilon), -1, 1)
		alignment := indicators.Sign(smaShort[i] - smaLong[i])

		score[i] = float64(0.40*closeToMid) + float64(0.30*closeToLower) + float64(0.30*alignment)
	}

	return finalize(score)
}

// VolumeScore combines a log-scaled volume surge with the direction of OBV
// against its moving average.
func VolumeScore(volumeRatio, obv, obvSMA []float64) []float64 {
	log3 := math.Log(3)

	score := make([]float64, len(volumeRatio))
	for i := range score {
		surge := indicators.Clip(math.Log(volumeRatio[i]+1)/log3, -1, 1)
		obvTrend := indicators.Sign(obv[i] - obvSMA[i])

		score[i] = float64(0.60*surge) + float64(0.40*obvTrend)
	}

	return finalize(score)
}

// VolatilityScore averages the ATR-to-price ratio and the normalized band
// width. It carries magnitude only, never direction.
func VolatilityScore(atr, close, bandWidth []float64) []float64 {
	score := make([]float64, len(atr))
	for i := range score {
		atrRatio := indicators.Clip(atr[i]/close[i], 0, maxATRRatio)
		width := bandWidth[i] / expectedBandWidth

		score[i] = (atrRatio + width) / 2
	}

	return finalize(score)
}
