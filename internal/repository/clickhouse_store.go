package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"CryptoPredict/internal/domain/models"
	pkgch "CryptoPredict/pkg/clickhouse"
	applogger "CryptoPredict/pkg/logger"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ClickHouseForecastStore appends served forecasts to an audit table. Rows are never read back.
type ClickHouseForecastStore struct {
	ch    *pkgch.Client
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewClickHouseForecastStore rejects table names that are not plain identifiers.
func NewClickHouseForecastStore(ch *pkgch.Client, table string) (*ClickHouseForecastStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ClickHouseForecastStore{ch: ch, db: ch.DB(), table: table, l: applogger.Nop()}, nil
}

// SetLogger injects a structured logger.
func (s *ClickHouseForecastStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// Schema returns the DDL for the audit table.
func (s *ClickHouseForecastStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            served_at   DateTime64(3, 'UTC'),
            event_id    String,
            symbol      LowCardinality(String),
            days        UInt16,
            data_source LowCardinality(String),
            attempts    UInt8,
            failures    Array(String),
            confidence  Float64,
            trend       LowCardinality(String),
            volatility  Float64,
            price       Float64,
            duration_ms UInt32
        )
        ENGINE = MergeTree
        PARTITION BY toYYYYMM(served_at)
        ORDER BY (symbol, served_at)
    `, s.table)}
}

// Init creates the audit table if it does not exist.
func (s *ClickHouseForecastStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, s.Schema())
}

func (s *ClickHouseForecastStore) insertQuery() string {
	cols := []string{
		"served_at", "event_id", "symbol", "days", "data_source", "attempts",
		"failures", "confidence", "trend", "volatility", "price", "duration_ms",
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(cols, ", "), marks)
}

func insertArgs(ev models.ForecastEvent) []interface{} {
	failures := ev.Failures
	if failures == nil {
		failures = []string{}
	}
	return []interface{}{
		servedAt(ev),
		ev.ID,
		ev.Symbol,
		uint16(ev.Days),
		ev.DataSource,
		uint8(ev.Attempts),
		failures,
		ev.Confidence,
		string(ev.Trend),
		ev.Volatility,
		ev.Price,
		uint32(ev.Duration.Milliseconds()),
	}
}

// Record appends one row for ev.
func (s *ClickHouseForecastStore) Record(ctx context.Context, ev models.ForecastEvent) error {
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, s.insertQuery(), insertArgs(ev)...); err != nil {
		s.l.Error("clickhouse forecast insert error",
			applogger.String("table", s.table),
			applogger.String("symbol", ev.Symbol),
			applogger.Error(err),
		)
		return fmt.Errorf("insert forecast event: %w", err)
	}
	s.l.Debug("clickhouse forecast insert ok",
		applogger.String("table", s.table),
		applogger.String("symbol", ev.Symbol),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}
