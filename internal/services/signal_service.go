// Package services runs the composite engine for stored candles and fans the
// result out to the cache, metrics and notifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/celebrum-signals/internal/composite"
	"github.com/irfndi/celebrum-signals/internal/config"
	"github.com/irfndi/celebrum-signals/internal/logging"
	"github.com/irfndi/celebrum-signals/internal/metrics"
	"github.com/irfndi/celebrum-signals/internal/models"
	"github.com/irfndi/celebrum-signals/internal/report"
)

var (
	// ErrNoCandles is returned when the source has no candles for a symbol.
	ErrNoCandles = errors.New("no candles found")
	// ErrInsufficientCandles is returned in strict mode when fewer than
	// MinCandles candles are available.
	ErrInsufficientCandles = errors.New("insufficient candles")
)

// CandleSource provides recent candles in ascending open time order.
type CandleSource interface {
	GetLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
}

// ResultCache stores the latest analysis per symbol and timeframe.
type ResultCache interface {
	Enabled() bool
	Get(ctx context.Context, symbol, timeframe string) (*models.AnalysisResult, bool)
	Set(ctx context.Context, result *models.AnalysisResult) error
}

// SignalServiceConfig holds the run parameters of a SignalService.
type SignalServiceConfig struct {
	Engine           composite.Config
	MinCandles       int
	StrictMinCandles bool
	MaxCandles       int
	RecentRows       int
	StrongThreshold  float64
	Concurrency      int
	Retry            RetryPolicy
}

// DefaultSignalServiceConfig mirrors the configuration defaults.
func DefaultSignalServiceConfig() SignalServiceConfig {
	return SignalServiceConfig{
		Engine:          composite.DefaultConfig(),
		MinCandles:      50,
		MaxCandles:      500,
		RecentRows:      20,
		StrongThreshold: report.DefaultStrongThreshold,
		Concurrency:     4,
		Retry:           DefaultRetryPolicy(),
	}
}

// NewSignalServiceConfig derives the service parameters from the application config.
func NewSignalServiceConfig(cfg *config.Config) SignalServiceConfig {
	serviceConfig := DefaultSignalServiceConfig()
	serviceConfig.Engine = cfg.Engine.ToComposite()
	serviceConfig.MinCandles = cfg.Engine.MinCandles
	serviceConfig.StrictMinCandles = cfg.Engine.StrictMinCandles
	serviceConfig.MaxCandles = cfg.Engine.MaxCandles
	serviceConfig.RecentRows = cfg.Report.Rows
	serviceConfig.StrongThreshold = cfg.Report.StrongThreshold
	return serviceConfig
}

// SignalService runs the composite engine over candles from a CandleSource.
type SignalService struct {
	source   CandleSource
	cache    ResultCache
	notifier Notifier
	metrics  *metrics.EngineMetrics
	config   SignalServiceConfig
	logger   *logrus.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// NewSignalService creates a SignalService. cache, notifier and engineMetrics
// may be nil.
func NewSignalService(source CandleSource, cache ResultCache, notifier Notifier, engineMetrics *metrics.EngineMetrics, config SignalServiceConfig, logger *logrus.Logger) *SignalService {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.RecentRows < 1 {
		config.RecentRows = 1
	}
	return &SignalService{
		source:   source,
		cache:    cache,
		notifier: notifier,
		metrics:  engineMetrics,
		config:   config,
		logger:   logger,
		tracer:   otel.Tracer("github.com/irfndi/celebrum-signals/internal/services"),
		now:      time.Now,
	}
}

// Analyze returns the latest signal analysis for symbol on timeframe, from
// the cache when a fresh entry exists.
func (s *SignalService) Analyze(ctx context.Context, symbol, timeframe string) (*models.AnalysisResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	entry := logging.WithComponent(s.logger, "signal_service").WithFields(logrus.Fields{
		"run_id":    runID,
		"symbol":    symbol,
		"timeframe": timeframe,
	})

	ctx, span := s.tracer.Start(ctx, "signals.analyze", trace.WithAttributes(
		attribute.String("signals.run_id", runID),
		attribute.String("signals.symbol", symbol),
		attribute.String("signals.timeframe", timeframe),
	))
	defer span.End()

	if s.cache != nil && s.cache.Enabled() {
		cached, ok := s.cache.Get(ctx, symbol, timeframe)
		s.metrics.ObserveCache(ok)
		if ok {
			cached.Cached = true
			span.SetAttributes(attribute.Bool("signals.cached", true))
			s.metrics.ObserveRun(symbol, timeframe, metrics.OutcomeCached, time.Since(start), cached.Rows)
			entry.WithField("cached_run_id", cached.RunID).Debug("Serving cached analysis")
			return cached, nil
		}
	}

	frame, err := s.frame(ctx, entry, symbol, timeframe)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis failed")
		s.metrics.ObserveRun(symbol, timeframe, metrics.OutcomeError, time.Since(start), 0)
		entry.WithError(err).Warn("Signal analysis failed")
		return nil, err
	}

	result := &models.AnalysisResult{
		RunID:        runID,
		Symbol:       symbol,
		Timeframe:    timeframe,
		Rows:         frame.Len(),
		Latest:       models.NewSignalPoint(frame, frame.Len()-1),
		Recent:       models.RecentSignalPoints(frame, s.config.RecentRows),
		Summary:      report.Summarize(frame, s.config.StrongThreshold),
		CalculatedAt: s.now().UTC(),
	}

	span.SetAttributes(
		attribute.Int("signals.rows", result.Rows),
		attribute.String("signals.signal", result.Latest.Signal),
		attribute.Float64("signals.strength", float64(result.Latest.Strength)),
	)

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, result); err != nil {
			entry.WithError(err).Warn("Failed to cache analysis")
		}
	}

	duration := time.Since(start)
	s.metrics.ObserveRun(symbol, timeframe, metrics.OutcomeSuccess, duration, result.Rows)
	s.metrics.ObserveSignal(symbol, result.Latest.Signal)
	logging.LogEngineRun(entry, result.Rows, result.Latest.Signal, float64(result.Latest.Strength), duration)

	if s.notifier != nil && result.Latest.Signal != composite.Hold.String() {
		if err := s.notifier.NotifySignal(ctx, result); err != nil {
			entry.WithError(err).Warn("Failed to send signal notification")
		}
	}

	return result, nil
}

// AnalyzeMany analyzes symbols concurrently. Results are in input order; the
// first failure cancels the remaining runs.
func (s *SignalService) AnalyzeMany(ctx context.Context, symbols []string, timeframe string) ([]*models.AnalysisResult, error) {
	results := make([]*models.AnalysisResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			result, err := s.Analyze(gctx, symbol, timeframe)
			if err != nil {
				return fmt.Errorf("%s: %w", symbol, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Frame runs the engine without touching the cache and returns the full table.
func (s *SignalService) Frame(ctx context.Context, symbol, timeframe string) (*composite.Frame, error) {
	ctx, span := s.tracer.Start(ctx, "signals.frame", trace.WithAttributes(
		attribute.String("signals.symbol", symbol),
		attribute.String("signals.timeframe", timeframe),
	))
	defer span.End()

	entry := logging.WithComponent(s.logger, "signal_service").WithFields(logrus.Fields{
		"symbol":    symbol,
		"timeframe": timeframe,
	})
	frame, err := s.frame(ctx, entry, symbol, timeframe)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "frame failed")
		return nil, err
	}
	return frame, nil
}

func (s *SignalService) frame(ctx context.Context, entry *logrus.Entry, symbol, timeframe string) (*composite.Frame, error) {
	var candles []models.Candle
	err := ExecuteWithRetry(ctx, s.logger, "fetch_candles", s.config.Retry, func(ctx context.Context) error {
		var fetchErr error
		candles, fetchErr = s.source.GetLatestCandles(ctx, symbol, timeframe, s.config.MaxCandles)
		return fetchErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load candles: %w", err)
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("%w for %s %s", ErrNoCandles, symbol, timeframe)
	}
	if len(candles) < s.config.MinCandles {
		if s.config.StrictMinCandles {
			return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientCandles, len(candles), s.config.MinCandles)
		}
		entry.WithFields(logrus.Fields{
			"candles":     len(candles),
			"min_candles": s.config.MinCandles,
		}).Warn("Fewer candles than recommended, early rows will be neutral")
	}

	frame, err := composite.Calculate(models.CandlesToSeries(candles), s.config.Engine)
	if err != nil {
		return nil, fmt.Errorf("composite calculation failed: %w", err)
	}
	return frame, nil
}
