package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/irfndi/celebrum-signals/internal/models"
)

var csvColumns = []string{"open_time", "open", "high", "low", "close", "volume"}

// loadCSV reads candles from a file with an open_time,open,high,low,close,volume
// header. Extra columns are ignored.
func loadCSV(path, symbol, timeframe string) ([]models.Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readCandles(f, symbol, timeframe)
}

func readCandles(r io.Reader, symbol, timeframe string) ([]models.Candle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv file is empty")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	positions := make([]int, len(csvColumns))
	for i, name := range csvColumns {
		pos, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("csv is missing column %q", name)
		}
		positions[i] = pos
	}

	var candles []models.Candle
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		fields := make([]string, len(positions))
		for i, pos := range positions {
			if pos >= len(record) {
				return nil, fmt.Errorf("line %d: missing %s", line, csvColumns[i])
			}
			fields[i] = strings.TrimSpace(record[pos])
		}

		openTime, err := parseOpenTime(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		values := make([]decimal.Decimal, 5)
		for i := range values {
			values[i], err = decimal.NewFromString(fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q", line, csvColumns[i+1], fields[i+1])
			}
		}

		candles = append(candles, models.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  openTime,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
	return candles, nil
}

// parseOpenTime accepts RFC 3339 timestamps and unix milliseconds.
func parseOpenTime(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid open_time %q", raw)
	}
	return t.UTC(), nil
}

// csvSource serves candles loaded from a file.
type csvSource struct {
	candles []models.Candle
}

func (s *csvSource) GetLatestCandles(_ context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	candles := s.candles
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
