// Package composite fuses the primitive indicators into four bounded component
// scores and a lagged BUY/SELL/HOLD signal with a strength.
package composite

import (
	"fmt"

	"github.com/irfndi/celebrum-signals/internal/indicators"
)

// longSMAPeriod is the slow trend average. It does not follow the lookback.
const longSMAPeriod = 50

// Config parameterizes one engine run.
type Config struct {
	// Lookback drives the short SMA, the volume SMA and the OBV SMA.
	Lookback int
	// VolumeThreshold, MomentumThreshold and TrendStrength are carried for
	// callers and reporting. The decision rules use fixed thresholds.
	VolumeThreshold   float64
	MomentumThreshold float64
	TrendStrength     float64
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Lookback:          20,
		VolumeThreshold:   1.2,
		MomentumThreshold: 0.5,
		TrendStrength:     0.6,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Lookback < 1 {
		return fmt.Errorf("lookback must be at least 1, got %d", c.Lookback)
	}
	return nil
}

// MinRows is the row count below which some columns stay undefined for the
// whole frame.
func (c Config) MinRows() int {
	if c.Lookback > longSMAPeriod {
		return c.Lookback
	}
	return longSMAPeriod
}

// Calculate builds the indicator frame for a candle series. The output has one
// row per input candle and every input column. Short series are not rejected;
// their undefined windows surface as NaN columns and neutral scores.
func Calculate(series Series, cfg Config) (*Frame, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	frame, err := NewFrame(series)
	if err != nil {
		return nil, err
	}

	closes := frame.MustColumn(ColumnClose)
	highs := frame.MustColumn(ColumnHigh)
	lows := frame.MustColumn(ColumnLow)
	volumes := frame.MustColumn(ColumnVolume)
	n := frame.Len()

	// Momentum
	rsi := indicators.RSI(closes, indicators.DefaultRSIPeriod)
	macd := indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal)
	momentum := indicators.Momentum(closes, indicators.DefaultMomentumPeriod)
	roc := indicators.ROC(closes, indicators.DefaultROCPeriod)

	// Trend
	smaShort := indicators.RollingMean(closes, cfg.Lookback)
	smaLong := indicators.RollingMean(closes, longSMAPeriod)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = (smaShort[i] - smaLong[i]) / smaLong[i]
	}

	// Volatility
	atr := indicators.ATR(highs, lows, closes, indicators.DefaultATRPeriod)
	bands := indicators.Bollinger(closes, indicators.DefaultBollingerPeriod, indicators.DefaultBollingerStdDev)
	volatility := make([]float64, n)
	for i := range volatility {
		volatility[i] = (bands.Upper[i] - bands.Lower[i]) / bands.Middle[i]
	}

	// Volume
	volumeSMA := indicators.VolumeSMA(volumes, cfg.Lookback)
	volumeRatio := make([]float64, n)
	for i := range volumeRatio {
		volumeRatio[i] = volumes[i] / volumeSMA[i]
	}
	obv := indicators.OBV(closes, volumes)
	obvSMA := indicators.RollingMean(obv, cfg.Lookback)

	momentumScore := MomentumScore(rsi, macd.Histogram, momentum, roc)
	trendScore := TrendScore(closes, smaShort, smaLong, bands.Lower, bands.Middle)
	volumeScore := VolumeScore(volumeRatio, obv, obvSMA)
	volatilityScore := VolatilityScore(atr, closes, volatility)

	signals := GenerateSignals(momentumScore, trendScore, volumeScore, volatilityScore)
	signalColumn := make([]float64, n)
	for i, s := range signals {
		signalColumn[i] = s.Float()
	}
	strength := SignalStrength(momentumScore, trendScore, volumeScore)

	for _, col := range []struct {
		name   string
		values []float64
	}{
		{ColumnRSI, rsi},
		{ColumnMACD, macd.MACD},
		{ColumnSignalLine, macd.Signal},
		{ColumnHistogram, macd.Histogram},
		{ColumnMomentum, momentum},
		{ColumnROC, roc},
		{ColumnSMA20, smaShort},
		{ColumnSMA50, smaLong},
		{ColumnTrend, trend},
		{ColumnATR, atr},
		{ColumnBollingerUpper, bands.Upper},
		{ColumnBollingerMid, bands.Middle},
		{ColumnBollingerLower, bands.Lower},
		{ColumnVolatility, volatility},
		{ColumnVolumeSMA, volumeSMA},
		{ColumnVolumeRatio, volumeRatio},
		{ColumnOBV, obv},
		{ColumnOBVSMA, obvSMA},
		{ColumnMomentumScore, momentumScore},
		{ColumnTrendScore, trendScore},
		{ColumnVolumeScore, volumeScore},
		{ColumnVolatilityScore, volatilityScore},
		{ColumnSignal, signalColumn},
		{ColumnSignalStrength, strength},
	} {
		if err := frame.Set(col.name, col.values); err != nil {
			return nil, fmt.Errorf("failed to assemble %s: %w", col.name, err)
		}
	}

	return frame, nil
}
