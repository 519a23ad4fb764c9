package models

import (
	"time"

	"github.com/cinar/indicator/v2/asset"
	"github.com/shopspring/decimal"

	"github.com/irfndi/celebrum-signals/internal/composite"
)

// Candle represents one OHLCV bucket of a trading pair
type Candle struct {
	Symbol    string          `json:"symbol" db:"symbol"`
	Timeframe string          `json:"timeframe" db:"timeframe"`
	OpenTime  time.Time       `json:"open_time" db:"open_time"`
	Open      decimal.Decimal `json:"open" db:"open"`
	High      decimal.Decimal `json:"high" db:"high"`
	Low       decimal.Decimal `json:"low" db:"low"`
	Close     decimal.Decimal `json:"close" db:"close"`
	Volume    decimal.Decimal `json:"volume" db:"volume"`
}

// Snapshot converts the candle to the float representation the indicator
// engine works on.
func (c Candle) Snapshot() *asset.Snapshot {
	open, _ := c.Open.Float64()
	high, _ := c.High.Float64()
	low, _ := c.Low.Float64()
	closePrice, _ := c.Close.Float64()
	volume, _ := c.Volume.Float64()

	return &asset.Snapshot{
		Date:   c.OpenTime,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}
}

// CandlesToSeries converts chronologically ordered candles to an engine series.
func CandlesToSeries(candles []Candle) composite.Series {
	snapshots := make([]*asset.Snapshot, len(candles))
	for i, c := range candles {
		snapshots[i] = c.Snapshot()
	}
	return composite.SeriesFromSnapshots(snapshots)
}
