package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-signals/internal/composite"
	"github.com/irfndi/celebrum-signals/internal/labeling"
	"github.com/irfndi/celebrum-signals/internal/middleware"
	"github.com/irfndi/celebrum-signals/internal/models"
	"github.com/irfndi/celebrum-signals/internal/services"
	"github.com/irfndi/celebrum-signals/internal/utils"
)

const maxBatchSymbols = 50

// SignalAnalyzer runs the engine for stored candles.
type SignalAnalyzer interface {
	Analyze(ctx context.Context, symbol, timeframe string) (*models.AnalysisResult, error)
	AnalyzeMany(ctx context.Context, symbols []string, timeframe string) ([]*models.AnalysisResult, error)
	Frame(ctx context.Context, symbol, timeframe string) (*composite.Frame, error)
}

// SignalHandlerConfig holds the request defaults.
type SignalHandlerConfig struct {
	Timeframe       string
	Symbols         []string
	HoldPeriod      int
	ProfitThreshold float64
}

type SignalHandler struct {
	analyzer SignalAnalyzer
	config   SignalHandlerConfig
	logger   *logrus.Logger
}

type SignalsResponse struct {
	Results   []*models.AnalysisResult `json:"results"`
	Count     int                      `json:"count"`
	Timestamp time.Time                `json:"timestamp"`
}

type LabelsResponse struct {
	Symbol          string                   `json:"symbol"`
	Timeframe       string                   `json:"timeframe"`
	HoldPeriod      int                      `json:"hold_period"`
	ProfitThreshold float64                  `json:"profit_threshold"`
	FeatureColumns  []string                 `json:"feature_columns"`
	Stats           labeling.Stats           `json:"stats"`
	Signals         []labeling.LabeledSignal `json:"signals"`
}

func NewSignalHandler(analyzer SignalAnalyzer, config SignalHandlerConfig, logger *logrus.Logger) *SignalHandler {
	if config.Timeframe == "" {
		config.Timeframe = "1h"
	}
	if config.HoldPeriod < 1 {
		config.HoldPeriod = labeling.DefaultHoldPeriod
	}
	return &SignalHandler{analyzer: analyzer, config: config, logger: logger}
}

// GetSignal returns the latest analysis for one symbol.
func (h *SignalHandler) GetSignal(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol parameter is required"})
		return
	}
	timeframe := c.DefaultQuery("timeframe", h.config.Timeframe)

	rows, err := positiveIntQuery(c, "rows", 0)
	if err != nil {
		h.respondError(c, err, symbol, timeframe)
		return
	}

	middleware.AddSpanAttribute(c, "signals.symbol", symbol)
	middleware.AddSpanAttribute(c, "signals.timeframe", timeframe)

	result, err := h.analyzer.Analyze(c.Request.Context(), symbol, timeframe)
	if err != nil {
		h.respondError(c, err, symbol, timeframe)
		return
	}

	if rows > 0 && rows < len(result.Recent) {
		trimmed := *result
		trimmed.Recent = result.Recent[len(result.Recent)-rows:]
		result = &trimmed
	}

	c.JSON(http.StatusOK, result)
}

// GetSignals returns the latest analysis for several symbols.
func (h *SignalHandler) GetSignals(c *gin.Context) {
	var symbols []string
	for _, part := range strings.Split(c.Query("symbols"), ",") {
		if s := normalizeSymbol(part); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		symbols = h.config.Symbols
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols parameter is required"})
		return
	}
	if len(symbols) > maxBatchSymbols {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many symbols, maximum is " + strconv.Itoa(maxBatchSymbols)})
		return
	}
	timeframe := c.DefaultQuery("timeframe", h.config.Timeframe)

	middleware.AddSpanAttribute(c, "signals.symbols", len(symbols))

	results, err := h.analyzer.AnalyzeMany(c.Request.Context(), symbols, timeframe)
	if err != nil {
		h.respondError(c, err, strings.Join(symbols, ","), timeframe)
		return
	}

	c.JSON(http.StatusOK, SignalsResponse{
		Results:   results,
		Count:     len(results),
		Timestamp: time.Now(),
	})
}

// GetLabels returns the BUY/SELL rows of the current window labeled by their
// forward return, with the classifier features attached.
func (h *SignalHandler) GetLabels(c *gin.Context) {
	symbol := normalizeSymbol(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol parameter is required"})
		return
	}
	timeframe := c.DefaultQuery("timeframe", h.config.Timeframe)

	holdPeriod, err := positiveIntQuery(c, "hold_period", h.config.HoldPeriod)
	if err != nil {
		h.respondError(c, err, symbol, timeframe)
		return
	}

	threshold := h.config.ProfitThreshold
	if raw := c.Query("profit_threshold"); raw != "" {
		v, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil || v < 0 {
			h.respondError(c, utils.NewValidationError("profit_threshold", "must be a non-negative number"), symbol, timeframe)
			return
		}
		threshold = v
	}

	frame, err := h.analyzer.Frame(c.Request.Context(), symbol, timeframe)
	if err != nil {
		h.respondError(c, err, symbol, timeframe)
		return
	}

	labeled, err := labeling.LabelSignals(frame, holdPeriod, threshold)
	if err != nil {
		h.respondError(c, err, symbol, timeframe)
		return
	}
	labeling.AttachFeatures(frame, labeled)

	c.JSON(http.StatusOK, LabelsResponse{
		Symbol:          symbol,
		Timeframe:       timeframe,
		HoldPeriod:      holdPeriod,
		ProfitThreshold: threshold,
		FeatureColumns:  labeling.FeatureColumns,
		Stats:           labeling.LabelStats(labeled),
		Signals:         labeled,
	})
}

func (h *SignalHandler) respondError(c *gin.Context, err error, symbol, timeframe string) {
	middleware.RecordError(c, err, "signal analysis failed")

	switch {
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoCandles), errors.Is(err, services.ErrInsufficientCandles):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"symbol":    symbol,
			"timeframe": timeframe,
		}).Error("Failed to analyze signals")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze signals"})
	}
}

// positiveIntQuery reads an optional positive integer query parameter.
func positiveIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, utils.NewValidationError(name, "must be a positive integer")
	}
	return n, nil
}

func normalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
