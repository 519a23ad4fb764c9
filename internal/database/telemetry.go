package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/irfndi/celebrum-signals/internal/database"

// TracedPool wraps a DatabasePool with a span and a debug log per statement.
type TracedPool struct {
	pool   DatabasePool
	tracer trace.Tracer
	logger *logrus.Logger
}

// NewTracedPool wraps pool. The tracer comes from the global provider.
func NewTracedPool(pool DatabasePool, logger *logrus.Logger) *TracedPool {
	return &TracedPool{
		pool:   pool,
		tracer: otel.Tracer(tracerName),
		logger: logger,
	}
}

func (db *TracedPool) start(ctx context.Context, operation, sql string) (context.Context, trace.Span) {
	return db.tracer.Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.statement", sql),
		),
	)
}

func (db *TracedPool) finish(span trace.Span, operation string, started time.Time, err error) {
	duration := time.Since(started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if db.logger != nil {
		db.logger.WithFields(logrus.Fields{
			"operation":   operation,
			"duration_ms": duration.Milliseconds(),
			"event":       "database",
		}).Debug("Database operation")
	}
}

// Query executes a query that returns rows
func (db *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	started := time.Now()
	ctx, span := db.start(ctx, "query", sql)
	rows, err := db.pool.Query(ctx, sql, args...)
	db.finish(span, "query", started, err)
	return rows, err
}

// QueryRow executes a query that returns a single row
func (db *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	started := time.Now()
	ctx, span := db.start(ctx, "query_row", sql)
	row := db.pool.QueryRow(ctx, sql, args...)
	db.finish(span, "query_row", started, nil)
	return row
}

// Exec executes a query without returning rows
func (db *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	started := time.Now()
	ctx, span := db.start(ctx, "exec", sql)
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	db.finish(span, "exec", started, err)
	return tag, err
}
