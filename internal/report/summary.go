// Package report summarises and renders the output of an engine run.
package report

import (
	"math"

	"github.com/irfndi/celebrum-signals/internal/composite"
	"github.com/irfndi/celebrum-signals/internal/models"
)

// DefaultStrongThreshold is the strength above which a row counts as a strong signal.
const DefaultStrongThreshold = 0.7

// Summarize aggregates the signals of a frame. A BUY wins when the next close
// is higher, a SELL when it is lower; the last row has no next candle and is
// left out of the win rates.
func Summarize(frame *composite.Frame, strongThreshold float64) models.SignalSummary {
	summary := models.SignalSummary{
		TotalRows:       frame.Len(),
		StrongThreshold: strongThreshold,
	}
	if frame.Len() == 0 {
		return summary
	}

	signals := frame.Signals()
	closes := frame.MustColumn(composite.ColumnClose)
	strength, _ := frame.Column(composite.ColumnSignalStrength)
	if strength == nil {
		strength = make([]float64, frame.Len())
	}

	var activeSum, strongSum, buySum, sellSum float64
	for i, signal := range signals {
		s := strength[i]
		if !math.IsNaN(s) && s > strongThreshold {
			summary.StrongSignals++
			strongSum += s
		}

		switch signal {
		case composite.Buy:
			summary.BuySignals++
			buySum += s
			activeSum += s
			evaluate(&summary.Buy, closes, i, 1)
		case composite.Sell:
			summary.SellSignals++
			sellSum += s
			activeSum += s
			evaluate(&summary.Sell, closes, i, -1)
		default:
			summary.HoldSignals++
		}
	}

	active := summary.BuySignals + summary.SellSignals
	summary.SignalFrequency = float64(active) / float64(summary.TotalRows) * 100
	summary.AvgStrength = mean(activeSum, active)
	summary.StrongAvg = mean(strongSum, summary.StrongSignals)

	summary.Buy.Count = summary.BuySignals
	summary.Buy.AvgStrength = mean(buySum, summary.BuySignals)
	summary.Buy.WinRate = rate(summary.Buy.Wins, summary.Buy.Evaluated)
	summary.Sell.Count = summary.SellSignals
	summary.Sell.AvgStrength = mean(sellSum, summary.SellSignals)
	summary.Sell.WinRate = rate(summary.Sell.Wins, summary.Sell.Evaluated)

	summary.Latest = models.NewSignalPoint(frame, frame.Len()-1)
	return summary
}

// evaluate scores row i against the next close. A row without a next close is
// not evaluated rather than counted as a loss.
func evaluate(stats *models.SideStats, closes []float64, i int, direction float64) {
	if i+1 >= len(closes) || math.IsNaN(closes[i]) || math.IsNaN(closes[i+1]) {
		return
	}
	stats.Evaluated++
	if (closes[i+1]-closes[i])*direction > 0 {
		stats.Wins++
	}
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func rate(wins, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(wins) / float64(n) * 100
}
