package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics holds the Prometheus metrics of the signal service. A nil
// *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	RunsTotal     *prometheus.CounterVec   // labels: symbol, timeframe, outcome
	RunDuration   *prometheus.HistogramVec // labels: timeframe
	SignalsTotal  *prometheus.CounterVec   // labels: symbol, signal
	CandlesLoaded prometheus.Histogram
	CacheLookups  *prometheus.CounterVec // labels: result=hit|miss
}

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeCached  = "cached"
)

// NewEngineMetrics creates the metrics and registers them on reg.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_engine_runs_total",
			Help: "Composite engine runs by symbol, timeframe and outcome",
		}, []string{"symbol", "timeframe", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signals_engine_run_duration_seconds",
			Help:    "Wall time of one analysis run including candle fetch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"timeframe"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_emitted_total",
			Help: "Latest-candle signals produced, by side",
		}, []string{"symbol", "signal"}),
		CandlesLoaded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "signals_candles_loaded",
			Help:    "Candles fed into each engine run",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signals_cache_lookups_total",
			Help: "Signal cache lookups by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.SignalsTotal,
		m.CandlesLoaded,
		m.CacheLookups,
	)

	return m
}

// ObserveRun records one finished run.
func (m *EngineMetrics) ObserveRun(symbol, timeframe, outcome string, duration time.Duration, candles int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(symbol, timeframe, outcome).Inc()
	m.RunDuration.WithLabelValues(timeframe).Observe(duration.Seconds())
	if outcome == OutcomeSuccess {
		m.CandlesLoaded.Observe(float64(candles))
	}
}

// ObserveSignal counts the signal on the latest candle.
func (m *EngineMetrics) ObserveSignal(symbol, signal string) {
	if m == nil {
		return
	}
	m.SignalsTotal.WithLabelValues(symbol, signal).Inc()
}

// ObserveCache counts a cache lookup.
func (m *EngineMetrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
