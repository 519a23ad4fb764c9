package indicators

import (
	"math"
	"math/rand"
	"testing"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-9

// assertSeries compares two aligned series, treating NaN as equal to NaN.
func assertSeries(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.Truef(t, math.IsNaN(got[i]), "row %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDeltaf(t, want[i], got[i], tolerance, "row %d", i)
	}
}

func linear(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

var nan = math.NaN()

func TestShift(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	assertSeries(t, []float64{nan, 1, 2, 3}, Shift(values, 1))
	assertSeries(t, []float64{nan, nan, nan, 1}, Shift(values, 3))
	assertSeries(t, []float64{3, 4, nan, nan}, Shift(values, -2))
	assertSeries(t, values, Shift(values, 0))
}

func TestDiff(t *testing.T) {
	assertSeries(t, []float64{nan, 1, -3, 0.5}, Diff([]float64{2, 3, 0, 0.5}))
	assert.Empty(t, Diff(nil))
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1.0, Sign(3.2))
	assert.Equal(t, -1.0, Sign(-0.001))
	assert.Equal(t, 0.0, Sign(0))
	assert.Equal(t, 1.0, Sign(math.Inf(1)))
	assert.True(t, math.IsNaN(Sign(math.NaN())))
}

func TestClip(t *testing.T) {
	assert.Equal(t, 1.0, Clip(4, -1, 1))
	assert.Equal(t, -1.0, Clip(-4, -1, 1))
	assert.Equal(t, 0.25, Clip(0.25, -1, 1))
	assert.Equal(t, 1.0, Clip(math.Inf(1), -1, 1))
	assert.True(t, math.IsNaN(Clip(math.NaN(), -1, 1)))
}

func TestRollingMean(t *testing.T) {
	t.Run("complete windows only", func(t *testing.T) {
		assertSeries(t, []float64{nan, nan, 2, 3, 4}, RollingMean([]float64{1, 2, 3, 4, 5}, 3))
	})

	t.Run("shorter than period", func(t *testing.T) {
		assertSeries(t, []float64{nan, nan}, RollingMean([]float64{1, 2}, 3))
	})

	t.Run("gap only affects windows that contain it", func(t *testing.T) {
		assertSeries(t, []float64{nan, nan, nan, 3.5, 4.5}, RollingMean([]float64{1, nan, 3, 4, 5}, 2))
	})

	t.Run("non-positive period", func(t *testing.T) {
		assertSeries(t, []float64{nan, nan}, RollingMean([]float64{1, 2}, 0))
	})

	t.Run("constant window after varied input is exact", func(t *testing.T) {
		rng := rand.New(rand.NewSource(3))
		values := make([]float64, 0, 200)
		for i := 0; i < 80; i++ {
			values = append(values, 100+rng.NormFloat64()*7.3)
		}
		for i := 0; i < 120; i++ {
			values = append(values, 123.456)
		}

		for _, period := range []int{3, 20, 50} {
			sma := RollingMean(values, period)
			for i := 80 + period - 1; i < len(values); i++ {
				require.Equalf(t, 123.456, sma[i], "period %d row %d", period, i)
			}
		}
	})

	t.Run("later gaps do not change earlier rows", func(t *testing.T) {
		rng := rand.New(rand.NewSource(9))
		values := make([]float64, 300)
		for i := range values {
			values[i] = 50 + rng.Float64()*10
		}
		clean := RollingMean(values, 20)

		gapped := append([]float64(nil), values...)
		gapped[299] = math.NaN()
		gapped[250] = math.NaN()
		got := RollingMean(gapped, 20)

		for i := 0; i < 250; i++ {
			if math.IsNaN(clean[i]) {
				assert.Truef(t, math.IsNaN(got[i]), "row %d", i)
				continue
			}
			require.Equalf(t, clean[i], got[i], "row %d", i)
		}
		assert.True(t, math.IsNaN(got[250]))
		assert.True(t, math.IsNaN(got[269]))
		assert.False(t, math.IsNaN(got[270]), "window past the gap is defined again")
	})

	t.Run("agrees with the streaming sma", func(t *testing.T) {
		rng := rand.New(rand.NewSource(5))
		values := make([]float64, 500)
		for i := range values {
			values[i] = 1000 + rng.NormFloat64()*25
		}

		streamed := helper.ChanToSlice(trend.NewSmaWithPeriod[float64](20).Compute(helper.SliceToChan(values)))
		sma := RollingMean(values, 20)

		require.Len(t, streamed, len(values)-19)
		for i, v := range streamed {
			assert.InDeltaf(t, v, sma[i+19], tolerance, "row %d", i+19)
		}
	})
}

func TestRollingStd(t *testing.T) {
	// sample std of (1,2,3) is 1, of (2,4,6) is 2
	assertSeries(t, []float64{nan, nan, 1, nan, nan}, RollingStd([]float64{1, 2, 3, nan, 5}, 3))
	assertSeries(t, []float64{nan, nan, 2}, RollingStd([]float64{2, 4, 6}, 3))
	assertSeries(t, []float64{nan, nan}, RollingStd([]float64{1, 2}, 1))

	for _, v := range RollingStd(linear(10, 123.456, 0), 5)[4:] {
		assert.Equal(t, 0.0, v)
	}
}

func TestRollingMax(t *testing.T) {
	assertSeries(t, []float64{nan, 3, 3, 2}, RollingMax([]float64{1, 3, 2, 0}, 2))
}

func TestRSI(t *testing.T) {
	t.Run("hand computed", func(t *testing.T) {
		// deltas: NaN, 1, -0.5, 1
		// avg gain (2): NaN, 0.5, 0.5, 0.5
		// avg loss (2): NaN, 0, 0.25, 0.25
		want := []float64{nan, 100, 100 - 100.0/3.0, 100 - 100.0/3.0}
		assertSeries(t, want, RSI([]float64{10, 11, 10.5, 11.5}, 2))
	})

	t.Run("first value on row period-1", func(t *testing.T) {
		rsi := RSI(linear(20, 100, 1), DefaultRSIPeriod)
		for i := 0; i < DefaultRSIPeriod-1; i++ {
			assert.True(t, math.IsNaN(rsi[i]), "row %d", i)
		}
		for i := DefaultRSIPeriod - 1; i < len(rsi); i++ {
			assert.Equal(t, 100.0, rsi[i], "row %d", i)
		}
	})

	t.Run("flat prices are undefined", func(t *testing.T) {
		for _, v := range RSI(linear(30, 50, 0), DefaultRSIPeriod) {
			assert.True(t, math.IsNaN(v))
		}
	})

	t.Run("falling prices bottom out at zero", func(t *testing.T) {
		rsi := RSI(linear(20, 100, -1), DefaultRSIPeriod)
		assert.Equal(t, 0.0, rsi[19])
	})
}

func TestEMA(t *testing.T) {
	// alpha = 0.5 for span 3
	assertSeries(t, []float64{1, 1.5, 2.25, 3.125}, EMA([]float64{1, 2, 3, 4}, 3))
	assert.Empty(t, EMA(nil, 3))

	t.Run("gap carries the average", func(t *testing.T) {
		// the gap decays the old weight to 0.25 before 4 arrives
		want := []float64{1, 1.5, 1.5, (0.25*1.5 + 0.5*4) / 0.75}
		assertSeries(t, want, EMA([]float64{1, 2, nan, 4}, 3))
	})

	t.Run("seeds from the first defined value", func(t *testing.T) {
		assertSeries(t, []float64{nan, nan, 2, 3}, EMA([]float64{nan, nan, 2, 4}, 3))
	})

	t.Run("constant input stays exact", func(t *testing.T) {
		for _, v := range EMA(linear(50, 123.456, 0), 26) {
			require.Equal(t, 123.456, v)
		}
	})
}

func TestMACD(t *testing.T) {
	t.Run("constant prices", func(t *testing.T) {
		result := MACD(linear(40, 25, 0), DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
		for i := range result.MACD {
			assert.Equal(t, 0.0, result.MACD[i])
			assert.Equal(t, 0.0, result.Signal[i])
			assert.Equal(t, 0.0, result.Histogram[i])
		}
	})

	t.Run("histogram is macd minus signal", func(t *testing.T) {
		prices := []float64{10, 11, 13, 12, 15, 14, 18}
		result := MACD(prices, 2, 4, 3)

		fast := EMA(prices, 2)
		slow := EMA(prices, 4)
		for i := range prices {
			assert.InDelta(t, fast[i]-slow[i], result.MACD[i], tolerance)
		}
		signal := EMA(result.MACD, 3)
		for i := range prices {
			assert.InDelta(t, signal[i], result.Signal[i], tolerance)
			assert.InDelta(t, result.MACD[i]-signal[i], result.Histogram[i], tolerance)
		}
		assert.Greater(t, result.MACD[len(prices)-1], 0.0)
	})
}

func TestBollinger(t *testing.T) {
	bands := Bollinger([]float64{1, 2, 3, 4, 5}, 3, 2)

	assertSeries(t, []float64{nan, nan, 2, 3, 4}, bands.Middle)
	assertSeries(t, []float64{nan, nan, 4, 5, 6}, bands.Upper)
	assertSeries(t, []float64{nan, nan, 0, 1, 2}, bands.Lower)
}

func TestTrueRangeAndATR(t *testing.T) {
	high := []float64{10, 12, 11}
	low := []float64{8, 9, 7}
	closes := []float64{9, 11, 8}

	assertSeries(t, []float64{2, 3, 4}, TrueRange(high, low, closes))
	assertSeries(t, []float64{nan, 2.5, 3.5}, ATR(high, low, closes, 2))
	assertSeries(t, []float64{nan, nan, nan}, ATR(high, low, closes, DefaultATRPeriod))
}

func TestVolumeSMA(t *testing.T) {
	assertSeries(t, []float64{nan, 15, 25}, VolumeSMA([]float64{10, 20, 30}, 2))
}

func TestOBV(t *testing.T) {
	t.Run("up then down", func(t *testing.T) {
		obv := OBV([]float64{1, 2, 1.5}, []float64{10, 20, 5})
		assert.Equal(t, []float64{10, 30, 25}, obv)
	})

	t.Run("unchanged close carries", func(t *testing.T) {
		obv := OBV([]float64{5, 5, 4, 4, 6}, []float64{3, 7, 2, 9, 1})
		assert.Equal(t, []float64{3, 3, 1, 1, 2}, obv)
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, OBV(nil, nil))
	})
}

func TestMomentumAndROC(t *testing.T) {
	prices := []float64{100, 102, 104, 110}

	assertSeries(t, []float64{nan, nan, 4, 8}, Momentum(prices, 2))
	assertSeries(t, []float64{nan, nan, 4, (110.0 - 102.0) / 102.0 * 100}, ROC(prices, 2))
}

func TestPrimitivesAreDeterministic(t *testing.T) {
	prices := []float64{3, 5, 4, 8, 7, 9, 12, 11, 10, 13, 15, 14, 16, 18, 17, 19, 22, 21}

	first := RSI(prices, 5)
	second := RSI(prices, 5)
	assertSeries(t, first, second)

	m1 := MACD(prices, 3, 6, 4)
	m2 := MACD(prices, 3, 6, 4)
	assert.Equal(t, m1, m2)
}
