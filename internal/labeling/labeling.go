// Package labeling turns engine output into labeled training rows for a
// downstream signal classifier.
package labeling

import (
	"math"
	"time"

	"github.com/irfndi/celebrum-signals/internal/composite"
	"github.com/irfndi/celebrum-signals/internal/models"
	"github.com/irfndi/celebrum-signals/internal/utils"
)

const (
	DefaultHoldPeriod      = 3
	DefaultProfitThreshold = 0.0005
)

// FeatureColumns is the classifier input vector, in order.
var FeatureColumns = []string{
	composite.ColumnRSI,
	composite.ColumnMACD,
	composite.ColumnHistogram,
	composite.ColumnMomentum,
	composite.ColumnMomentumScore,
	composite.ColumnTrendScore,
	composite.ColumnVolumeScore,
	composite.ColumnVolatilityScore,
	composite.ColumnVolumeRatio,
	composite.ColumnATR,
	composite.ColumnROC,
}

// LabeledSignal is one BUY or SELL row with its forward outcome.
type LabeledSignal struct {
	Row         int                     `json:"row"`
	OpenTime    time.Time               `json:"open_time"`
	Signal      string                  `json:"signal"`
	Close       float64                 `json:"close"`
	FutureClose float64                 `json:"future_close"`
	ReturnPct   float64                 `json:"return_pct"`
	Label       int                     `json:"label"`
	Features    map[string]models.Float `json:"features,omitempty"`
}

// Stats counts labels.
type Stats struct {
	Total int     `json:"total"`
	True  int     `json:"true"`
	False int     `json:"false"`
	Ratio float64 `json:"true_ratio"`
}

// PrepareSignals returns the rows whose signal is BUY or SELL.
func PrepareSignals(frame *composite.Frame) []int {
	var rows []int
	for i, s := range frame.Signals() {
		if s != composite.Hold {
			rows = append(rows, i)
		}
	}
	return rows
}

// LabelSignals labels each signal by the close holdPeriod candles later.
// Signals without a future candle are dropped.
func LabelSignals(frame *composite.Frame, holdPeriod int, profitThreshold float64) ([]LabeledSignal, error) {
	if holdPeriod < 1 {
		return nil, utils.NewValidationErrorf("hold_period", "must be at least 1, got %d", holdPeriod)
	}

	closes := frame.MustColumn(composite.ColumnClose)
	signals := frame.Signals()
	openTimes := frame.OpenTimes()

	labeled := make([]LabeledSignal, 0)
	for _, row := range PrepareSignals(frame) {
		ahead := row + holdPeriod
		if ahead >= frame.Len() || math.IsNaN(closes[ahead]) {
			continue
		}

		entry, future := closes[row], closes[ahead]
		var ret float64
		if signals[row] == composite.Buy {
			ret = (future - entry) / entry
		} else {
			ret = (entry - future) / entry
		}

		label := 0
		if ret > profitThreshold {
			label = 1
		}

		labeled = append(labeled, LabeledSignal{
			Row:         row,
			OpenTime:    openTimes[row],
			Signal:      signals[row].String(),
			Close:       entry,
			FutureClose: future,
			ReturnPct:   ret,
			Label:       label,
		})
	}
	return labeled, nil
}

// ExtractFeatures returns the FeatureColumns values of each row. Missing
// columns read as NaN.
func ExtractFeatures(frame *composite.Frame, rows []int) [][]float64 {
	features := make([][]float64, len(rows))
	for i, row := range rows {
		vector := make([]float64, len(FeatureColumns))
		for j, name := range FeatureColumns {
			vector[j] = frame.Value(name, row)
		}
		features[i] = vector
	}
	return features
}

// AttachFeatures fills the Features map of every labeled signal.
func AttachFeatures(frame *composite.Frame, labeled []LabeledSignal) {
	rows := make([]int, len(labeled))
	for i, l := range labeled {
		rows[i] = l.Row
	}
	for i, vector := range ExtractFeatures(frame, rows) {
		named := make(map[string]models.Float, len(FeatureColumns))
		for j, name := range FeatureColumns {
			named[name] = models.Float(vector[j])
		}
		labeled[i].Features = named
	}
}

// LabelStats counts true and false labels.
func LabelStats(labeled []LabeledSignal) Stats {
	stats := Stats{Total: len(labeled)}
	for _, l := range labeled {
		if l.Label == 1 {
			stats.True++
		} else {
			stats.False++
		}
	}
	if stats.Total > 0 {
		stats.Ratio = float64(stats.True) / float64(stats.Total)
	}
	return stats
}
