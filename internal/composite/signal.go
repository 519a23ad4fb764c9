package composite

import (
	"math"

	"github.com/irfndi/celebrum-signals/internal/indicators"
)

// Signal is the ternary trading decision for one candle.
type Signal int8

const (
	Sell Signal = -1
	Hold Signal = 0
	Buy  Signal = 1
)

// String returns BUY, SELL or HOLD.
func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Float returns the numeric column value of the signal.
func (s Signal) Float() float64 {
	return float64(s)
}

// SignalFromFloat maps a signal column value back to a Signal. Anything that
// is not exactly +1 or -1 is HOLD.
func SignalFromFloat(v float64) Signal {
	switch v {
	case 1:
		return Buy
	case -1:
		return Sell
	default:
		return Hold
	}
}

// ParseSignal parses BUY, SELL or HOLD.
func ParseSignal(s string) (Signal, bool) {
	switch s {
	case "BUY":
		return Buy, true
	case "SELL":
		return Sell, true
	case "HOLD":
		return Hold, true
	default:
		return Hold, false
	}
}

// Decision thresholds. These are fixed literals; Config's threshold fields do
// not feed them.
const (
	buyComposite  = 0.4
	sellComposite = -0.4
	minVolume     = 0.2
	buyMomentum   = 0.2
	sellMomentum  = -0.2
	buyTrendFloor = -0.3
	sellTrendCeil = 0.3
)

// Scores are the four component scores of one candle.
type Scores struct {
	Momentum   float64
	Trend      float64
	Volume     float64
	Volatility float64
}

// Composite returns the weighted fusion of the four scores, summed left to
// right.
func (s Scores) Composite() float64 {
	return float64(0.35*s.Momentum) + float64(0.35*s.Trend) + float64(0.20*s.Volume) + float64(0.10*s.Volatility)
}

// Classify decides the signal of the candle that follows the one these scores
// describe. Undefined scores never satisfy a comparison and yield HOLD.
func (s Scores) Classify() Signal {
	composite := s.Composite()

	if composite > buyComposite && s.Volume > minVolume && s.Momentum > buyMomentum && s.Trend > buyTrendFloor {
		return Buy
	}
	if composite < sellComposite && s.Volume > minVolume && s.Momentum < sellMomentum && s.Trend < sellTrendCeil {
		return Sell
	}
	return Hold
}

// Strength is the confidence attached to the following candle, in [0, 1].
// It is defined for every candle whatever the signal.
func (s Scores) Strength() float64 {
	agreement := (math.Abs(s.Momentum) + math.Abs(s.Trend)) / 2
	volumeBoost := (s.Volume + 1) / 2

	return indicators.Clip(indicators.FillNaN(agreement*volumeBoost, 0), 0, 1)
}

// priorScores returns the scores of row i-1, or NaN scores for the first row.
func priorScores(momentum, trend, volume, volatility []float64, i int) Scores {
	if i == 0 {
		nan := math.NaN()
		return Scores{Momentum: nan, Trend: nan, Volume: nan, Volatility: nan}
	}
	return Scores{
		Momentum:   momentum[i-1],
		Trend:      trend[i-1],
		Volume:     volume[i-1],
		Volatility: volatility[i-1],
	}
}

// GenerateSignals classifies every row from the previous row's scores. The
// first row has no predecessor and is always HOLD.
func GenerateSignals(momentum, trend, volume, volatility []float64) []Signal {
	signals := make([]Signal, len(momentum))
	for i := range signals {
		signals[i] = priorScores(momentum, trend, volume, volatility, i).Classify()
	}
	return signals
}

// SignalStrength computes the strength of every row from the previous row's
// scores. The first row is 0.
func SignalStrength(momentum, trend, volume []float64) []float64 {
	strength := make([]float64, len(momentum))
	for i := 1; i < len(strength); i++ {
		prev := Scores{Momentum: momentum[i-1], Trend: trend[i-1], Volume: volume[i-1]}
		strength[i] = prev.Strength()
	}
	return strength
}
