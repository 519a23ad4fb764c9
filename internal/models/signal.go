package models

import (
	"time"

	"github.com/irfndi/celebrum-signals/internal/composite"
)

// SignalPoint is one enriched candle as exposed to API and notification consumers
type SignalPoint struct {
	OpenTime        time.Time `json:"open_time"`
	Close           Float     `json:"close"`
	Volume          Float     `json:"volume"`
	RSI             Float     `json:"rsi"`
	MACD            Float     `json:"macd"`
	VolumeRatio     Float     `json:"volume_ratio"`
	MomentumScore   Float     `json:"momentum_score"`
	TrendScore      Float     `json:"trend_score"`
	VolumeScore     Float     `json:"volume_score"`
	VolatilityScore Float     `json:"volatility_score"`
	Signal          string    `json:"signal"` // "BUY", "SELL", "HOLD"
	Strength        Float     `json:"signal_strength"`
}

// NewSignalPoint reads row i of an engine frame.
func NewSignalPoint(frame *composite.Frame, i int) SignalPoint {
	return SignalPoint{
		OpenTime:        frame.OpenTimes()[i],
		Close:           Float(frame.Value(composite.ColumnClose, i)),
		Volume:          Float(frame.Value(composite.ColumnVolume, i)),
		RSI:             Float(frame.Value(composite.ColumnRSI, i)),
		MACD:            Float(frame.Value(composite.ColumnMACD, i)),
		VolumeRatio:     Float(frame.Value(composite.ColumnVolumeRatio, i)),
		MomentumScore:   Float(frame.Value(composite.ColumnMomentumScore, i)),
		TrendScore:      Float(frame.Value(composite.ColumnTrendScore, i)),
		VolumeScore:     Float(frame.Value(composite.ColumnVolumeScore, i)),
		VolatilityScore: Float(frame.Value(composite.ColumnVolatilityScore, i)),
		Signal:          composite.SignalFromFloat(frame.Value(composite.ColumnSignal, i)).String(),
		Strength:        Float(frame.Value(composite.ColumnSignalStrength, i)),
	}
}

// RecentSignalPoints returns the last n rows of the frame, oldest first.
func RecentSignalPoints(frame *composite.Frame, n int) []SignalPoint {
	if n > frame.Len() {
		n = frame.Len()
	}
	points := make([]SignalPoint, 0, n)
	for i := frame.Len() - n; i < frame.Len(); i++ {
		points = append(points, NewSignalPoint(frame, i))
	}
	return points
}

// SideStats summarises the signals of one side (BUY or SELL)
type SideStats struct {
	Count       int     `json:"count"`
	Evaluated   int     `json:"evaluated"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"` // percent of evaluated signals
	AvgStrength float64 `json:"avg_strength"`
}

// SignalSummary aggregates the signals of a frame
type SignalSummary struct {
	TotalRows       int         `json:"total_rows"`
	BuySignals      int         `json:"buy_signals"`
	SellSignals     int         `json:"sell_signals"`
	HoldSignals     int         `json:"hold_signals"`
	SignalFrequency float64     `json:"signal_frequency"` // percent of rows with BUY or SELL
	AvgStrength     float64     `json:"avg_strength"`
	StrongThreshold float64     `json:"strong_threshold"`
	StrongSignals   int         `json:"strong_signals"`
	StrongAvg       float64     `json:"strong_avg_strength"`
	Buy             SideStats   `json:"buy"`
	Sell            SideStats   `json:"sell"`
	Latest          SignalPoint `json:"latest"`
}

// AnalysisResult is the outcome of one engine run for a symbol and timeframe
type AnalysisResult struct {
	RunID        string        `json:"run_id"`
	Symbol       string        `json:"symbol"`
	Timeframe    string        `json:"timeframe"`
	Rows         int           `json:"rows"`
	Latest       SignalPoint   `json:"latest"`
	Recent       []SignalPoint `json:"recent"`
	Summary      SignalSummary `json:"summary"`
	CalculatedAt time.Time     `json:"calculated_at"`
	Cached       bool          `json:"cached"`
}
