package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	TradesCSVFileName     = "trades.csv"
	TradesParquetFileName = "trades.parquet"
	EquityCSVFileName     = "equity.csv"
	EquityParquetFileName = "equity.parquet"
)

var tradeColumns = []string{
	"id", "symbol", "side", "engine", "score", "entry_timestamp", "exit_timestamp",
	"entry_price", "exit_price", "size", "initial_risk", "gross_pnl", "fees_paid",
	"net_pnl", "pnl_pct", "r_multiple", "hold_seconds", "exit_reason", "partial_fills",
}

var equityColumns = []string{
	"timestamp", "equity", "marked_equity", "step_pnl", "symbols", "open_positions",
}

// OutputFiles lists the files written by BacktestState.Write.
type OutputFiles struct {
	TradesCSV     string
	TradesParquet string
	EquityCSV     string
	EquityParquet string
}

// BacktestState stores the closed trades and the equity curve of a run in DuckDB.
type BacktestState struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewBacktestState(logger *logger.Logger) (*BacktestState, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open results database", err)
	}

	return &BacktestState{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the trades and equity tables.
func (b *BacktestState) Initialize() error {
	if b == nil || b.db == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "backtest state or database is nil")
	}

	_, err := b.db.Exec(`CREATE SEQUENCE IF NOT EXISTS trade_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to create sequence", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			seq BIGINT,
			id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			engine TEXT,
			score DOUBLE,
			entry_timestamp TIMESTAMP,
			exit_timestamp TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			size DOUBLE,
			initial_risk DOUBLE,
			gross_pnl DOUBLE,
			fees_paid DOUBLE,
			net_pnl DOUBLE,
			pnl_pct DOUBLE,
			r_multiple DOUBLE,
			hold_seconds DOUBLE,
			exit_reason TEXT,
			partial_fills INTEGER,
			metadata TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to create trades table", err)
	}

	_, err = b.db.Exec(`
		CREATE TABLE IF NOT EXISTS equity (
			timestamp TIMESTAMP,
			equity DOUBLE,
			marked_equity DOUBLE,
			step_pnl DOUBLE,
			symbols TEXT,
			open_positions INTEGER
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to create equity table", err)
	}

	return nil
}

// AddTrade appends a closed trade. Trades keep their insertion order.
func (b *BacktestState) AddTrade(trade types.ClosedTrade) error {
	metadata := ""

	if len(trade.Metadata) > 0 {
		encoded, err := json.Marshal(trade.Metadata)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeBacktestStateFailed, err, "failed to marshal metadata of trade %s", trade.ID)
		}

		metadata = string(encoded)
	}

	_, err := b.sq.
		Insert("trades").
		Columns(append([]string{"seq"}, append(tradeColumns, "metadata")...)...).
		Values(
			squirrel.Expr("nextval('trade_seq')"),
			trade.ID, trade.Symbol, string(trade.Side), trade.Engine, trade.Score,
			trade.EntryTimestamp, trade.ExitTimestamp, trade.EntryPrice, trade.ExitPrice,
			trade.Size, trade.InitialRisk, trade.GrossPnL, trade.FeesPaid, trade.NetPnL,
			trade.PnLPct, trade.RMultiple, trade.HoldDuration.Seconds(), string(trade.ExitReason),
			trade.PartialFills, metadata,
		).
		RunWith(b.db).
		Exec()
	if err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestStateFailed, err, "failed to insert trade %s", trade.ID)
	}

	return nil
}

// AddEquityPoint appends one row of the equity curve.
func (b *BacktestState) AddEquityPoint(point types.EquityPoint) error {
	_, err := b.sq.
		Insert("equity").
		Columns(equityColumns...).
		Values(point.Timestamp, point.Equity, point.MarkedEquity, point.StepPnL, point.Symbols, point.OpenPositions).
		RunWith(b.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to insert equity point", err)
	}

	return nil
}

// GetAllTrades returns every closed trade in exit order.
func (b *BacktestState) GetAllTrades() ([]types.ClosedTrade, error) {
	rows, err := b.sq.
		Select(append(tradeColumns, "metadata")...).
		From("trades").
		OrderBy("seq ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.ClosedTrade

	for rows.Next() {
		var (
			trade       types.ClosedTrade
			side        string
			reason      string
			holdSeconds float64
			metadata    sql.NullString
		)

		err := rows.Scan(
			&trade.ID, &trade.Symbol, &side, &trade.Engine, &trade.Score,
			&trade.EntryTimestamp, &trade.ExitTimestamp, &trade.EntryPrice, &trade.ExitPrice,
			&trade.Size, &trade.InitialRisk, &trade.GrossPnL, &trade.FeesPaid, &trade.NetPnL,
			&trade.PnLPct, &trade.RMultiple, &holdSeconds, &reason, &trade.PartialFills, &metadata,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		trade.Side = types.Side(side)
		trade.ExitReason = types.ExitReason(reason)
		trade.EntryTimestamp = trade.EntryTimestamp.UTC()
		trade.ExitTimestamp = trade.ExitTimestamp.UTC()
		trade.HoldDuration = time.Duration(holdSeconds * float64(time.Second))

		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &trade.Metadata); err != nil {
				return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to decode metadata of trade %s", trade.ID)
			}
		}

		trades = append(trades, trade)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return trades, nil
}

// GetEquityCurve returns the equity points in step order.
func (b *BacktestState) GetEquityCurve() ([]types.EquityPoint, error) {
	rows, err := b.sq.
		Select(equityColumns...).
		From("equity").
		OrderBy("timestamp ASC").
		RunWith(b.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query equity curve", err)
	}
	defer rows.Close()

	var points []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint

		if err := rows.Scan(&point.Timestamp, &point.Equity, &point.MarkedEquity, &point.StepPnL, &point.Symbols, &point.OpenPositions); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan equity point", err)
		}

		point.Timestamp = point.Timestamp.UTC()
		points = append(points, point)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating equity curve", err)
	}

	return points, nil
}

// TotalFees sums the fees of every stored trade.
func (b *BacktestState) TotalFees() (float64, error) {
	var total float64

	err := b.sq.
		Select("COALESCE(SUM(fees_paid), 0)").
		From("trades").
		RunWith(b.db).
		QueryRow().
		Scan(&total)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to sum fees", err)
	}

	return total, nil
}

// Cleanup resets the database state
func (b *BacktestState) Cleanup() error {
	_, err := b.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS equity;
		DROP SEQUENCE IF EXISTS trade_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to cleanup tables", err)
	}

	return b.Initialize()
}

// Close closes the database connection.
func (b *BacktestState) Close() error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Close()
}

// Write exports trades and equity to CSV and Parquet files in path.
// The CSV exports leave out trade metadata.
func (b *BacktestState) Write(path string) (OutputFiles, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return OutputFiles{}, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results directory", err)
	}

	files := OutputFiles{
		TradesCSV:     filepath.Join(path, TradesCSVFileName),
		TradesParquet: filepath.Join(path, TradesParquetFileName),
		EquityCSV:     filepath.Join(path, EquityCSVFileName),
		EquityParquet: filepath.Join(path, EquityParquetFileName),
	}

	tradesQuery, _, err := b.sq.Select(tradeColumns...).From("trades").OrderBy("seq ASC").ToSql()
	if err != nil {
		return OutputFiles{}, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to build trades export", err)
	}

	tradesWithMetadata, _, err := b.sq.Select(append(tradeColumns, "metadata")...).From("trades").OrderBy("seq ASC").ToSql()
	if err != nil {
		return OutputFiles{}, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to build trades export", err)
	}

	equityQuery, _, err := b.sq.Select(equityColumns...).From("equity").OrderBy("timestamp ASC").ToSql()
	if err != nil {
		return OutputFiles{}, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to build equity export", err)
	}

	// COPY has no squirrel builder
	exports := []struct {
		query  string
		target string
		format string
	}{
		{query: tradesQuery, target: files.TradesCSV, format: "FORMAT CSV, HEADER"},
		{query: tradesWithMetadata, target: files.TradesParquet, format: "FORMAT PARQUET"},
		{query: equityQuery, target: files.EquityCSV, format: "FORMAT CSV, HEADER"},
		{query: equityQuery, target: files.EquityParquet, format: "FORMAT PARQUET"},
	}

	for _, export := range exports {
		statement := fmt.Sprintf(`COPY (%s) TO '%s' (%s)`, export.query, escapeSQLPath(export.target), export.format)
		if _, err := b.db.Exec(statement); err != nil {
			return OutputFiles{}, errors.Wrapf(errors.ErrCodeBacktestWriteFailed, err, "failed to export %s", filepath.Base(export.target))
		}
	}

	b.logger.Info("Successfully exported backtest results",
		zap.String("trades", files.TradesCSV),
		zap.String("equity", files.EquityCSV),
	)

	return files, nil
}
