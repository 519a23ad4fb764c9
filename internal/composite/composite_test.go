package composite

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/cinar/indicator/v2/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// risingSeries climbs one unit per candle on steadily growing volume.
func risingSeries(n int) Series {
	s := emptySeries(n)
	for i := 0; i < n; i++ {
		c := 100 + float64(i)
		s.Open[i] = c - 0.5
		s.High[i] = c + 1
		s.Low[i] = c - 1
		s.Close[i] = c
		s.Volume[i] = 1000 + 10*float64(i)
	}
	return s
}

// randomWalk is a reproducible noisy series.
func randomWalk(n int, seed int64) Series {
	rng := rand.New(rand.NewSource(seed))
	s := emptySeries(n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + (rng.Float64()-0.5)*0.04
		s.Open[i] = open
		s.Close[i] = price
		s.High[i] = math.Max(open, price) * (1 + rng.Float64()*0.01)
		s.Low[i] = math.Min(open, price) * (1 - rng.Float64()*0.01)
		s.Volume[i] = 500 + rng.Float64()*1500
	}
	return s
}

func emptySeries(n int) Series {
	s := Series{
		OpenTime: make([]time.Time, n),
		Open:     make([]float64, n),
		High:     make([]float64, n),
		Low:      make([]float64, n),
		Close:    make([]float64, n),
		Volume:   make([]float64, n),
	}
	for i := range s.OpenTime {
		s.OpenTime[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return s
}

func sameBits(t *testing.T, expected, actual []float64, column string) {
	t.Helper()
	require.Len(t, actual, len(expected), column)
	for i := range expected {
		if math.IsNaN(expected[i]) {
			assert.True(t, math.IsNaN(actual[i]), "%s[%d] expected NaN, got %v", column, i, actual[i])
			continue
		}
		assert.Equal(t, math.Float64bits(expected[i]), math.Float64bits(actual[i]), "%s[%d]", column, i)
	}
}

func TestCalculate_RangeInvariants(t *testing.T) {
	for _, seed := range []int64{1, 7, 42, 1234} {
		frame, err := Calculate(randomWalk(300, seed), DefaultConfig())
		require.NoError(t, err)

		for _, name := range []string{ColumnMomentumScore, ColumnTrendScore, ColumnVolumeScore, ColumnVolatilityScore} {
			for i, v := range frame.MustColumn(name) {
				assert.False(t, math.IsNaN(v), "%s[%d] is NaN", name, i)
				assert.GreaterOrEqual(t, v, -1.0, "%s[%d]", name, i)
				assert.LessOrEqual(t, v, 1.0, "%s[%d]", name, i)
			}
		}

		for i, v := range frame.MustColumn(ColumnSignalStrength) {
			assert.GreaterOrEqual(t, v, 0.0, "strength[%d]", i)
			assert.LessOrEqual(t, v, 1.0, "strength[%d]", i)
		}

		for i, v := range frame.MustColumn(ColumnSignal) {
			assert.Contains(t, []float64{-1, 0, 1}, v, "signal[%d]", i)
		}
	}
}

func TestCalculate_RowCountAndColumns(t *testing.T) {
	for _, n := range []int{1, 2, 13, 49, 50, 51, 120} {
		frame, err := Calculate(randomWalk(n, int64(n)), DefaultConfig())
		require.NoError(t, err)
		assert.Equal(t, n, frame.Len())

		for _, name := range frame.Columns() {
			assert.Len(t, frame.MustColumn(name), n, name)
		}
	}

	frame, err := Calculate(randomWalk(60, 3), DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{
		ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume,
		ColumnRSI, ColumnMACD, ColumnSignalLine, ColumnHistogram, ColumnMomentum, ColumnROC,
		ColumnSMA20, ColumnSMA50, ColumnTrend,
		ColumnATR, ColumnBollingerUpper, ColumnBollingerMid, ColumnBollingerLower, ColumnVolatility,
		ColumnVolumeSMA, ColumnVolumeRatio, ColumnOBV, ColumnOBVSMA,
		ColumnMomentumScore, ColumnTrendScore, ColumnVolumeScore, ColumnVolatilityScore,
		ColumnSignal, ColumnSignalStrength,
	}, frame.Columns())
}

func TestCalculate_InputColumnsPreserved(t *testing.T) {
	series := randomWalk(80, 5)
	frame, err := Calculate(series, DefaultConfig())
	require.NoError(t, err)

	sameBits(t, series.Close, frame.MustColumn(ColumnClose), ColumnClose)
	sameBits(t, series.Volume, frame.MustColumn(ColumnVolume), ColumnVolume)
	assert.Equal(t, series.OpenTime, frame.OpenTimes())

	// the frame owns its copy of the input
	frame.MustColumn(ColumnClose)[0] = -1
	assert.NotEqual(t, -1.0, series.Close[0])
}

func TestCalculate_NoLookAhead(t *testing.T) {
	base := randomWalk(150, 99)
	reference, err := Calculate(base, DefaultConfig())
	require.NoError(t, err)

	for _, cut := range []int{0, 10, 60, 100, 148} {
		mutated := randomWalk(150, 99)
		rng := rand.New(rand.NewSource(int64(cut)))
		for i := cut + 1; i < mutated.Len(); i++ {
			mutated.Close[i] *= 1 + (rng.Float64()-0.5)*0.5
			mutated.High[i] = mutated.Close[i] * 1.05
			mutated.Low[i] = mutated.Close[i] * 0.95
			mutated.Volume[i] *= 10
		}
		// gaps in later rows must not reroute earlier arithmetic either
		if gap := cut + 1; gap < mutated.Len() {
			mutated.Close[gap] = math.NaN()
			mutated.Volume[mutated.Len()-1] = math.NaN()
		}

		frame, err := Calculate(mutated, DefaultConfig())
		require.NoError(t, err)

		refSignal := reference.MustColumn(ColumnSignal)
		refStrength := reference.MustColumn(ColumnSignalStrength)
		signal := frame.MustColumn(ColumnSignal)
		strength := frame.MustColumn(ColumnSignalStrength)
		for i := 0; i <= cut; i++ {
			assert.Equal(t, refSignal[i], signal[i], "signal[%d] changed by mutating rows after %d", i, cut)
			assert.Equal(t, math.Float64bits(refStrength[i]), math.Float64bits(strength[i]),
				"strength[%d] changed by mutating rows after %d", i, cut)
		}
	}
}

func TestCalculate_FlatTailIsExact(t *testing.T) {
	series := randomWalk(200, 21)
	for i := 80; i < series.Len(); i++ {
		series.Open[i] = 123.456
		series.High[i] = 123.456
		series.Low[i] = 123.456
		series.Close[i] = 123.456
		series.Volume[i] = 1000
	}

	frame, err := Calculate(series, DefaultConfig())
	require.NoError(t, err)

	obv := frame.MustColumn(ColumnOBV)
	obvSMA := frame.MustColumn(ColumnOBVSMA)
	smaShort := frame.MustColumn(ColumnSMA20)
	smaLong := frame.MustColumn(ColumnSMA50)
	volumeScore := frame.MustColumn(ColumnVolumeScore)

	for i := 150; i < frame.Len(); i++ {
		require.Equalf(t, obv[i], obvSMA[i], "obv vs obv_sma on row %d", i)
		require.Equalf(t, 123.456, smaShort[i], "sma_20 on row %d", i)
		require.Equalf(t, 123.456, smaLong[i], "sma_50 on row %d", i)
		assert.InDeltaf(t, 0.6*math.Log(2)/math.Log(3), volumeScore[i], 1e-12, "volume_score on row %d", i)
	}
}

func TestCalculate_ShortSeriesIsNeutral(t *testing.T) {
	frame, err := Calculate(risingSeries(10), DefaultConfig())
	require.NoError(t, err)

	for _, name := range []string{ColumnRSI, ColumnSMA20, ColumnSMA50, ColumnATR, ColumnVolumeSMA, ColumnBollingerMid} {
		for i, v := range frame.MustColumn(name) {
			assert.True(t, math.IsNaN(v), "%s[%d] should be undefined, got %v", name, i, v)
		}
	}

	for _, name := range []string{ColumnTrendScore, ColumnVolumeScore, ColumnVolatilityScore, ColumnSignalStrength} {
		for i, v := range frame.MustColumn(name) {
			assert.Equal(t, 0.0, v, "%s[%d]", name, i)
		}
	}

	for i, s := range frame.Signals() {
		assert.Equal(t, Hold, s, "signal[%d]", i)
	}
}

func TestCalculate_OBVDirection(t *testing.T) {
	s := emptySeries(3)
	copy(s.Close, []float64{10, 12, 11})
	copy(s.Open, []float64{10, 12, 11})
	copy(s.High, []float64{10, 12, 11})
	copy(s.Low, []float64{10, 12, 11})
	copy(s.Volume, []float64{5, 7, 3})

	frame, err := Calculate(s, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 12, 9}, frame.MustColumn(ColumnOBV))
}

func TestCalculate_DeterministicReplay(t *testing.T) {
	series := randomWalk(200, 2024)
	first, err := Calculate(series, DefaultConfig())
	require.NoError(t, err)
	second, err := Calculate(series, DefaultConfig())
	require.NoError(t, err)

	require.Equal(t, first.Columns(), second.Columns())
	for _, name := range first.Columns() {
		sameBits(t, first.MustColumn(name), second.MustColumn(name), name)
	}
}

func TestCalculate_RisingSeriesBuys(t *testing.T) {
	frame, err := Calculate(risingSeries(120), DefaultConfig())
	require.NoError(t, err)

	signals := frame.Signals()
	assert.Equal(t, Hold, signals[0])
	assert.Equal(t, Buy, signals[len(signals)-1])

	last := frame.Len() - 1
	assert.Equal(t, 100.0, frame.Value(ColumnRSI, last))
	assert.Greater(t, frame.Value(ColumnTrendScore, last-1), 0.0)
	assert.Greater(t, frame.Value(ColumnSignalStrength, last), 0.0)
}

func TestCalculate_SignalUsesPriorRow(t *testing.T) {
	frame, err := Calculate(randomWalk(200, 11), DefaultConfig())
	require.NoError(t, err)

	m := frame.MustColumn(ColumnMomentumScore)
	tr := frame.MustColumn(ColumnTrendScore)
	v := frame.MustColumn(ColumnVolumeScore)
	vol := frame.MustColumn(ColumnVolatilityScore)
	signals := frame.Signals()
	strength := frame.MustColumn(ColumnSignalStrength)

	for i := 1; i < frame.Len(); i++ {
		prev := Scores{Momentum: m[i-1], Trend: tr[i-1], Volume: v[i-1], Volatility: vol[i-1]}
		assert.Equal(t, prev.Classify(), signals[i], "row %d", i)
		assert.Equal(t, prev.Strength(), strength[i], "row %d", i)
	}
}

func TestCalculate_Errors(t *testing.T) {
	_, err := Calculate(Series{}, DefaultConfig())
	assert.ErrorIs(t, err, ErrEmptySeries)

	s := randomWalk(10, 1)
	s.Volume = s.Volume[:9]
	_, err = Calculate(s, DefaultConfig())
	assert.ErrorIs(t, err, ErrColumnLength)

	cfg := DefaultConfig()
	cfg.Lookback = 0
	_, err = Calculate(randomWalk(10, 1), cfg)
	assert.Error(t, err)
}

func TestCalculate_LookbackDrivesShortWindows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lookback = 5

	frame, err := Calculate(risingSeries(30), cfg)
	require.NoError(t, err)

	sma := frame.MustColumn(ColumnSMA20)
	assert.True(t, math.IsNaN(sma[3]))
	assert.InDelta(t, 102.0, sma[4], 1e-9)
	assert.False(t, math.IsNaN(frame.Value(ColumnVolumeSMA, 4)))
	assert.True(t, math.IsNaN(frame.Value(ColumnSMA50, 29)))
	assert.Equal(t, 50, cfg.MinRows())
}

func TestScores_CompositeBelowThresholdHolds(t *testing.T) {
	s := Scores{Momentum: 0.3, Trend: 0.0, Volume: 0.3, Volatility: 0.2}

	assert.InDelta(t, 0.185, s.Composite(), 1e-12)
	assert.Equal(t, Hold, s.Classify())
	// strength is reported even though the row holds
	assert.InDelta(t, 0.0975, s.Strength(), 1e-12)
}

func TestScores_Buy(t *testing.T) {
	s := Scores{Momentum: 0.5, Trend: 0.5, Volume: 0.5, Volatility: 0.5}

	assert.InDelta(t, 0.5, s.Composite(), 1e-12)
	assert.Equal(t, Buy, s.Classify())
	assert.InDelta(t, 0.375, s.Strength(), 1e-12)
}

func TestScores_Sell(t *testing.T) {
	s := Scores{Momentum: -0.9, Trend: -0.9, Volume: 0.5, Volatility: 0}
	assert.Equal(t, Sell, s.Classify())

	// weak volume blocks the sell
	s.Volume = 0.1
	assert.Equal(t, Hold, s.Classify())

	// composite is low enough but momentum is not
	s = Scores{Momentum: -0.15, Trend: -1, Volume: 0.5, Volatility: -1}
	assert.Less(t, s.Composite(), -0.4)
	assert.Equal(t, Hold, s.Classify())
}

func TestScores_UndefinedHolds(t *testing.T) {
	nan := math.NaN()
	s := Scores{Momentum: nan, Trend: nan, Volume: nan, Volatility: nan}
	assert.Equal(t, Hold, s.Classify())
	assert.Equal(t, 0.0, s.Strength())
}

func TestGenerateSignalsAndStrength(t *testing.T) {
	momentum := []float64{0.5, 0, -0.9}
	trend := []float64{0.5, 0, -0.9}
	volume := []float64{0.5, 0, 0.5}
	volatility := []float64{0.5, 0, 0}

	assert.Equal(t, []Signal{Hold, Buy, Hold}, GenerateSignals(momentum, trend, volume, volatility))

	strength := SignalStrength(momentum, trend, volume)
	assert.Equal(t, 0.0, strength[0])
	assert.InDelta(t, 0.375, strength[1], 1e-12)
	assert.Equal(t, 0.0, strength[2])
}

func TestScoreComponents(t *testing.T) {
	nan := math.NaN()

	rsi := make([]float64, 20)
	histogram := make([]float64, 20)
	mom := make([]float64, 20)
	roc := make([]float64, 20)
	for i := range rsi {
		rsi[i], histogram[i], mom[i], roc[i] = 75, 1, 2, -1
	}
	rsi[0] = nan
	histogram[19] = 0.5

	momentum := MomentumScore(rsi, histogram, mom, roc)
	// the histogram normaliser needs 20 rows
	assert.Equal(t, 0.0, momentum[0])
	assert.Equal(t, 0.0, momentum[18])
	// 0.35*0.5 + 0.35*0.5 + 0.2 - 0.1
	assert.InDelta(t, 0.45, momentum[19], 1e-6)

	trend := TrendScore([]float64{110}, []float64{100}, []float64{90}, []float64{80}, []float64{100})
	// 0.4*0.1 + 0.3*0.3 + 0.3
	assert.InDelta(t, 0.43, trend[0], 1e-6)

	volume := VolumeScore([]float64{2, nan}, []float64{10, 10}, []float64{5, 5})
	assert.InDelta(t, 1.0, volume[0], 1e-12)
	assert.Equal(t, 0.0, volume[1])

	volatility := VolatilityScore([]float64{5, 50}, []float64{100, 100}, []float64{0.05, 0.5})
	// (0.05 + 0.5) / 2, then the ATR ratio is capped at 0.1 and the width overflows
	assert.InDelta(t, 0.275, volatility[0], 1e-12)
	assert.Equal(t, 1.0, volatility[1])
}

func TestSignal_String(t *testing.T) {
	assert.Equal(t, "BUY", Buy.String())
	assert.Equal(t, "SELL", Sell.String())
	assert.Equal(t, "HOLD", Hold.String())
	assert.Equal(t, Sell, SignalFromFloat(-1))
	assert.Equal(t, Hold, SignalFromFloat(math.NaN()))

	parsed, ok := ParseSignal("SELL")
	assert.True(t, ok)
	assert.Equal(t, Sell, parsed)
	_, ok = ParseSignal("short")
	assert.False(t, ok)
}

func TestFrame(t *testing.T) {
	frame, err := NewFrame(risingSeries(4))
	require.NoError(t, err)

	err = frame.Set("extra", []float64{1, 2})
	assert.ErrorIs(t, err, ErrColumnLength)

	require.NoError(t, frame.Set("extra", []float64{1, math.NaN(), 3, 4}))
	require.NoError(t, frame.Set(ColumnOpen, []float64{9, 9, 9, 9}))
	assert.Equal(t, []string{ColumnOpen, ColumnHigh, ColumnLow, ColumnClose, ColumnVolume, "extra"}, frame.Columns())

	_, ok := frame.Column("missing")
	assert.False(t, ok)
	assert.Panics(t, func() { frame.MustColumn("missing") })
	assert.True(t, math.IsNaN(frame.Value("missing", 0)))

	for _, s := range frame.Signals() {
		assert.Equal(t, Hold, s)
	}

	row := frame.Row(2)
	assert.Equal(t, 102.0, row[ColumnClose])
	assert.Equal(t, 3.0, row["extra"])

	tail := frame.Tail(2)
	assert.Equal(t, 2, tail.Len())
	assert.Equal(t, []float64{102, 103}, tail.MustColumn(ColumnClose))
	assert.Equal(t, start.Add(2*time.Hour), tail.OpenTimes()[0])
	assert.Equal(t, 4, frame.Tail(10).Len())

	raw, err := json.Marshal(frame.Tail(3))
	require.NoError(t, err)

	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &rows))
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0]["extra"])
	assert.Equal(t, 3.0, rows[1]["extra"])
	assert.Equal(t, "2024-01-01T03:00:00Z", rows[2][ColumnOpenTime])
}

func TestSeriesFromSnapshots(t *testing.T) {
	snapshots := []*asset.Snapshot{
		{Date: start, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		{Date: start.Add(time.Hour), Open: 1.5, High: 3, Low: 1, Close: 2.5, Volume: 20},
	}

	s := SeriesFromSnapshots(snapshots)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []float64{1.5, 2.5}, s.Close)
	assert.Equal(t, []float64{10, 20}, s.Volume)
	assert.Equal(t, start.Add(time.Hour), s.OpenTime[1])
}
