package composite

import (
	"errors"
	"fmt"
	"time"

	"github.com/cinar/indicator/v2/asset"
)

var (
	// ErrEmptySeries is returned when a calculation is requested on zero candles.
	ErrEmptySeries = errors.New("candle series is empty")
	// ErrColumnLength is returned when columns of one table disagree on row count.
	ErrColumnLength = errors.New("column length does not match row count")
)

// Series is the raw candle table in column form. Index position encodes
// chronological order; open times are expected to be strictly increasing but
// are not checked.
type Series struct {
	OpenTime []time.Time
	Open     []float64
	High     []float64
	Low      []float64
	Close    []float64
	Volume   []float64
}

// SeriesFromSnapshots builds a Series from indicator snapshots.
func SeriesFromSnapshots(snapshots []*asset.Snapshot) Series {
	s := Series{
		OpenTime: make([]time.Time, len(snapshots)),
		Open:     make([]float64, len(snapshots)),
		High:     make([]float64, len(snapshots)),
		Low:      make([]float64, len(snapshots)),
		Close:    make([]float64, len(snapshots)),
		Volume:   make([]float64, len(snapshots)),
	}

	for i, snapshot := range snapshots {
		s.OpenTime[i] = snapshot.Date
		s.Open[i] = snapshot.Open
		s.High[i] = snapshot.High
		s.Low[i] = snapshot.Low
		s.Close[i] = snapshot.Close
		s.Volume[i] = snapshot.Volume
	}

	return s
}

// Len returns the number of candles.
func (s Series) Len() int {
	return len(s.Close)
}

func (s Series) validate() error {
	n := s.Len()
	if n == 0 {
		return ErrEmptySeries
	}

	columns := map[string]int{
		ColumnOpenTime: len(s.OpenTime),
		ColumnOpen:     len(s.Open),
		ColumnHigh:     len(s.High),
		ColumnLow:      len(s.Low),
		ColumnVolume:   len(s.Volume),
	}
	for name, length := range columns {
		if length != n {
			return fmt.Errorf("%w: %s has %d rows, close has %d", ErrColumnLength, name, length, n)
		}
	}

	return nil
}
