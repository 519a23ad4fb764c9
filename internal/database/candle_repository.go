package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/irfndi/celebrum-signals/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// Both *pgxpool.Pool and pgxmock pools satisfy it.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const createCandlesTable = `
	CREATE TABLE IF NOT EXISTS candles (
		symbol VARCHAR(32) NOT NULL,
		timeframe VARCHAR(8) NOT NULL,
		open_time TIMESTAMPTZ NOT NULL,
		open NUMERIC(28, 10) NOT NULL,
		high NUMERIC(28, 10) NOT NULL,
		low NUMERIC(28, 10) NOT NULL,
		close NUMERIC(28, 10) NOT NULL,
		volume NUMERIC(38, 10) NOT NULL,
		PRIMARY KEY (symbol, timeframe, open_time)
	)`

const selectLatestCandles = `
	SELECT symbol, timeframe, open_time, open, high, low, close, volume
	FROM (
		SELECT symbol, timeframe, open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = $1 AND timeframe = $2
		ORDER BY open_time DESC
		LIMIT $3
	) latest
	ORDER BY open_time ASC`

const upsertCandle = `
	INSERT INTO candles (symbol, timeframe, open_time, open, high, low, close, volume)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (symbol, timeframe, open_time)
	DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume`

// CandleRepository reads and writes OHLCV candles.
type CandleRepository struct {
	pool DatabasePool
}

// NewCandleRepository creates a new candle repository.
func NewCandleRepository(pool DatabasePool) *CandleRepository {
	return &CandleRepository{pool: pool}
}

// EnsureSchema creates the candles table when it does not exist.
func (r *CandleRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createCandlesTable); err != nil {
		return fmt.Errorf("failed to create candles table: %w", err)
	}
	return nil
}

// GetLatestCandles returns up to limit of the most recent candles, oldest first.
func (r *CandleRepository) GetLatestCandles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	rows, err := r.pool.Query(ctx, selectLatestCandles, symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query candles for %s %s: %w", symbol, timeframe, err)
	}
	defer rows.Close()

	candles := make([]models.Candle, 0, limit)
	for rows.Next() {
		var c models.Candle
		if err := rows.Scan(&c.Symbol, &c.Timeframe, &c.OpenTime, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candles: %w", err)
	}

	return candles, nil
}

// InsertCandles upserts candles keyed by symbol, timeframe and open time. It
// returns the number of rows written.
func (r *CandleRepository) InsertCandles(ctx context.Context, candles []models.Candle) (int64, error) {
	var written int64
	for _, c := range candles {
		tag, err := r.pool.Exec(ctx, upsertCandle, c.Symbol, c.Timeframe, c.OpenTime, c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return written, fmt.Errorf("failed to upsert candle %s %s %s: %w", c.Symbol, c.Timeframe, c.OpenTime, err)
		}
		written += tag.RowsAffected()
	}
	return written, nil
}
