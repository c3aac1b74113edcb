package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/pump-backtest/internal/types"
)

// insertBatch bounds the rows per INSERT statement.
const insertBatch = 1000

// SeriesWriter exports candle series in the layout the DuckDB file store reads:
// <SYMBOL>_<interval>.<format> with timestamp (unix ms), open, high, low, close, volume.
type SeriesWriter struct {
	db *sql.DB
	sq squirrel.StatementBuilderType
}

func NewSeriesWriter() (*SeriesWriter, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	return &SeriesWriter{
		db: db,
		sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Write replaces the staging table with series and copies it to dir. format is csv or parquet.
func (w *SeriesWriter) Write(dir string, series types.CandleSeries, format string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if _, err := w.db.Exec(`CREATE OR REPLACE TABLE candles (
		timestamp BIGINT, open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE, volume DOUBLE)`); err != nil {
		return "", fmt.Errorf("failed to create staging table: %w", err)
	}

	for start := 0; start < len(series.Candles); start += insertBatch {
		end := min(start+insertBatch, len(series.Candles))

		insert := w.sq.Insert("candles").Columns("timestamp", "open", "high", "low", "close", "volume")
		for _, c := range series.Candles[start:end] {
			insert = insert.Values(c.Timestamp.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume)
		}

		query, args, err := insert.ToSql()
		if err != nil {
			return "", fmt.Errorf("failed to build insert: %w", err)
		}

		if _, err := w.db.Exec(query, args...); err != nil {
			return "", fmt.Errorf("failed to insert candles: %w", err)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", series.Symbol, series.Interval, format))

	copyFormat := "FORMAT CSV, HEADER"
	if format == "parquet" {
		copyFormat = "FORMAT PARQUET"
	}

	escaped := strings.ReplaceAll(path, "'", "''")
	if _, err := w.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM candles ORDER BY timestamp) TO '%s' (%s)`, escaped, copyFormat)); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return path, nil
}

func (w *SeriesWriter) Close() error {
	return w.db.Close()
}
