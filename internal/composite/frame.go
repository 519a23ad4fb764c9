package composite

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Column names of the indicator frame. These names are the schema consumers
// bind to.
const (
	ColumnOpenTime = "open_time"
	ColumnOpen     = "open"
	ColumnHigh     = "high"
	ColumnLow      = "low"
	ColumnClose    = "close"
	ColumnVolume   = "volume"

	ColumnRSI            = "rsi"
	ColumnMACD           = "macd"
	ColumnSignalLine     = "signal_line"
	ColumnHistogram      = "histogram"
	ColumnMomentum       = "momentum"
	ColumnROC            = "roc"
	ColumnSMA20          = "sma_20"
	ColumnSMA50          = "sma_50"
	ColumnTrend          = "trend"
	ColumnATR            = "atr"
	ColumnBollingerUpper = "bollinger_upper"
	ColumnBollingerMid   = "bollinger_mid"
	ColumnBollingerLower = "bollinger_lower"
	ColumnVolatility     = "volatility"
	ColumnVolumeSMA      = "volume_sma"
	ColumnVolumeRatio    = "volume_ratio"
	ColumnOBV            = "obv"
	ColumnOBVSMA         = "obv_sma"

	ColumnMomentumScore   = "momentum_score"
	ColumnTrendScore      = "trend_score"
	ColumnVolumeScore     = "volume_score"
	ColumnVolatilityScore = "volatility_score"
	ColumnSignal          = "signal"
	ColumnSignalStrength  = "signal_strength"
)

// Frame is a column-oriented table with a fixed row count. The open time
// column is kept typed; every other column is a float64 slice aligned to it.
type Frame struct {
	rows     int
	openTime []time.Time
	names    []string
	columns  map[string][]float64
}

// NewFrame copies the candle columns of s into a new frame.
func NewFrame(s Series) (*Frame, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	f := &Frame{
		rows:     s.Len(),
		openTime: append([]time.Time(nil), s.OpenTime...),
		columns:  make(map[string][]float64),
	}

	for _, col := range []struct {
		name   string
		values []float64
	}{
		{ColumnOpen, s.Open},
		{ColumnHigh, s.High},
		{ColumnLow, s.Low},
		{ColumnClose, s.Close},
		{ColumnVolume, s.Volume},
	} {
		if err := f.Set(col.name, append([]float64(nil), col.values...)); err != nil {
			return nil, err
		}
	}

	return f, nil
}

// Len returns the row count.
func (f *Frame) Len() int {
	return f.rows
}

// Columns returns the float column names in insertion order.
func (f *Frame) Columns() []string {
	return append([]string(nil), f.names...)
}

// OpenTimes returns the open time column.
func (f *Frame) OpenTimes() []time.Time {
	return f.openTime
}

// Column returns the named column. The slice is shared with the frame.
func (f *Frame) Column(name string) ([]float64, bool) {
	values, ok := f.columns[name]
	return values, ok
}

// MustColumn returns the named column or panics. It is meant for columns the
// engine itself guarantees.
func (f *Frame) MustColumn(name string) []float64 {
	values, ok := f.columns[name]
	if !ok {
		panic(fmt.Sprintf("composite: frame has no column %q", name))
	}
	return values
}

// Set adds or replaces a column. Replacing keeps the column's position.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != f.rows {
		return fmt.Errorf("%w: %s has %d rows, frame has %d", ErrColumnLength, name, len(values), f.rows)
	}

	if _, exists := f.columns[name]; !exists {
		f.names = append(f.names, name)
	}
	f.columns[name] = values

	return nil
}

// Signals returns the signal column as typed values. A frame without a signal
// column reports HOLD for every row.
func (f *Frame) Signals() []Signal {
	out := make([]Signal, f.rows)
	values, ok := f.columns[ColumnSignal]
	if !ok {
		return out
	}
	for i, v := range values {
		out[i] = SignalFromFloat(v)
	}
	return out
}

// Value returns one cell, or NaN when the column does not exist.
func (f *Frame) Value(name string, row int) float64 {
	values, ok := f.columns[name]
	if !ok || row < 0 || row >= f.rows {
		return math.NaN()
	}
	return values[row]
}

// Row returns a copy of one row keyed by column name.
func (f *Frame) Row(i int) map[string]float64 {
	row := make(map[string]float64, len(f.names))
	for _, name := range f.names {
		row[name] = f.columns[name][i]
	}
	return row
}

// Tail returns a new frame holding the last n rows.
func (f *Frame) Tail(n int) *Frame {
	if n > f.rows {
		n = f.rows
	}
	if n < 0 {
		n = 0
	}
	start := f.rows - n

	tail := &Frame{
		rows:     n,
		openTime: append([]time.Time(nil), f.openTime[start:]...),
		names:    append([]string(nil), f.names...),
		columns:  make(map[string][]float64, len(f.columns)),
	}
	for name, values := range f.columns {
		tail.columns[name] = append([]float64(nil), values[start:]...)
	}

	return tail
}

// MarshalJSON encodes the frame as an array of row objects. Undefined cells
// are encoded as null.
func (f *Frame) MarshalJSON() ([]byte, error) {
	rows := make([]map[string]interface{}, f.rows)
	for i := 0; i < f.rows; i++ {
		row := make(map[string]interface{}, len(f.names)+1)
		row[ColumnOpenTime] = f.openTime[i]
		for _, name := range f.names {
			v := f.columns[name][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[name] = nil
				continue
			}
			row[name] = v
		}
		rows[i] = row
	}
	return json.Marshal(rows)
}
