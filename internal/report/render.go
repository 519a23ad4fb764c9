package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/irfndi/celebrum-signals/internal/composite"
	"github.com/irfndi/celebrum-signals/internal/models"
)

const ruleWidth = 80

// Render writes the last rows of the frame followed by the signal statistics
// and the current status block.
func Render(w io.Writer, symbol, timeframe string, frame *composite.Frame, summary models.SignalSummary, rows int) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", ruleWidth)
	thin := strings.Repeat("-", ruleWidth)

	points := models.RecentSignalPoints(frame, rows)

	if _, err := p.Fprintf(w, "%s\nSIGNAL ANALYSIS FOR %s (%s)\n%s\n\nLast %d Candles:\n", rule, symbol, timeframe, rule, len(points)); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "open_time\tclose\tvolume\tmomentum\ttrend\tvolume_score\tvolatility\tsignal\tstrength\t")
	for _, pt := range points {
		p.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			pt.OpenTime.UTC().Format(time.DateTime),
			number(p, float64(pt.Close), 2),
			number(p, float64(pt.Volume), 2),
			number(p, float64(pt.MomentumScore), 3),
			number(p, float64(pt.TrendScore), 3),
			number(p, float64(pt.VolumeScore), 3),
			number(p, float64(pt.VolatilityScore), 3),
			pt.Signal,
			number(p, float64(pt.Strength), 3),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	active := summary.BuySignals + summary.SellSignals
	p.Fprintf(w, "\n%s\nSIGNAL STATISTICS\n%s\n", thin, thin)
	p.Fprintf(w, "Total Rows: %d\n", summary.TotalRows)
	p.Fprintf(w, "Total Signals Generated: %d\n", active)
	p.Fprintf(w, "Buy Signals: %d\n", summary.BuySignals)
	p.Fprintf(w, "Sell Signals: %d\n", summary.SellSignals)
	p.Fprintf(w, "Hold Signals: %d\n", summary.HoldSignals)
	p.Fprintf(w, "Average Signal Strength: %.3f\n", summary.AvgStrength)
	p.Fprintf(w, "Signal Frequency: %.2f%%\n", summary.SignalFrequency)
	p.Fprintf(w, "Strong Signals (>%.2f): %d (avg %.3f)\n", summary.StrongThreshold, summary.StrongSignals, summary.StrongAvg)
	p.Fprintf(w, "Buy Win Rate: %.1f%% (%d/%d)\n", summary.Buy.WinRate, summary.Buy.Wins, summary.Buy.Evaluated)
	p.Fprintf(w, "Sell Win Rate: %.1f%% (%d/%d)\n", summary.Sell.WinRate, summary.Sell.Wins, summary.Sell.Evaluated)

	latest := summary.Latest
	p.Fprintf(w, "\n%s\nCURRENT STATUS\n%s\n", thin, thin)
	p.Fprintf(w, "Latest Close Price: %s\n", number(p, float64(latest.Close), 2))
	p.Fprintf(w, "Current RSI: %s\n", number(p, float64(latest.RSI), 2))
	p.Fprintf(w, "Current MACD: %s\n", number(p, float64(latest.MACD), 6))
	p.Fprintf(w, "Current Trend Score: %s\n", number(p, float64(latest.TrendScore), 3))
	p.Fprintf(w, "Current Volume Ratio: %s\n", number(p, float64(latest.VolumeRatio), 3))
	p.Fprintf(w, "Last Signal: %s\n", latest.Signal)
	_, err := p.Fprintf(w, "Last Signal Strength: %s\n", number(p, float64(latest.Strength), 3))
	return err
}

// number formats v with grouping separators; undefined values print as n/a.
func number(p *message.Printer, v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return p.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}
