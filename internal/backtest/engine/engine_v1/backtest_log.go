package engine

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/pump-backtest/internal/log"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"go.uber.org/zap"
)

// EventsFileName is the events export inside a results folder.
const EventsFileName = "events.parquet"

// BacktestLog implements log.EventLog and records rejections, skips and
// generator failures in a DuckDB database.
type BacktestLog struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBacktestLog creates a new instance of BacktestLog.
func NewBacktestLog(logger *logger.Logger) (*BacktestLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to open event database", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to connect to event database", err)
	}

	eventLog := &BacktestLog{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := eventLog.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return eventLog, nil
}

// Record implements log.EventLog.
func (l *BacktestLog) Record(event log.Event) error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "backtest log or database is nil")
	}

	var fieldsJSON string

	if len(event.Fields) > 0 {
		fieldsBytes, err := json.Marshal(event.Fields)
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to marshal event fields", err)
		}

		fieldsJSON = string(fieldsBytes)
	}

	_, err := l.sq.
		Insert("events").
		Columns("id", "timestamp", "symbol", "kind", "reason", "detail", "fields").
		Values(squirrel.Expr("nextval('event_id_seq')"), event.Timestamp, event.Symbol, string(event.Kind), event.Reason, event.Detail, fieldsJSON).
		RunWith(l.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to insert event", err)
	}

	return nil
}

// RecordRejection stores an admission rejection.
func (l *BacktestLog) RecordRejection(rejection types.Rejection) error {
	return l.Record(log.Event{
		Timestamp: rejection.Timestamp,
		Symbol:    rejection.Symbol,
		Kind:      log.EventKindRejection,
		Reason:    string(rejection.Reason),
		Detail:    rejection.Detail,
		Fields:    nil,
	})
}

// Events implements log.EventLog.
func (l *BacktestLog) Events() ([]log.Event, error) {
	if l == nil || l.db == nil {
		return nil, errors.New(errors.ErrCodeBacktestStateNil, "backtest log or database is nil")
	}

	return l.query(l.sq.
		Select("timestamp", "symbol", "kind", "reason", "detail", "fields").
		From("events").
		OrderBy("id ASC"))
}

// EventsByKind returns the stored events of one kind in insertion order.
func (l *BacktestLog) EventsByKind(kind log.EventKind) ([]log.Event, error) {
	if l == nil || l.db == nil {
		return nil, errors.New(errors.ErrCodeBacktestStateNil, "backtest log or database is nil")
	}

	return l.query(l.sq.
		Select("timestamp", "symbol", "kind", "reason", "detail", "fields").
		From("events").
		Where(squirrel.Eq{"kind": string(kind)}).
		OrderBy("id ASC"))
}

// CountByReason counts the events of one kind per reason.
func (l *BacktestLog) CountByReason(kind log.EventKind) (map[string]int, error) {
	if l == nil || l.db == nil {
		return nil, errors.New(errors.ErrCodeBacktestStateNil, "backtest log or database is nil")
	}

	rows, err := l.sq.
		Select("reason", "COUNT(*)").
		From("events").
		Where(squirrel.Eq{"kind": string(kind)}).
		GroupBy("reason").
		RunWith(l.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count events", err)
	}
	defer rows.Close()

	counts := make(map[string]int)

	for rows.Next() {
		var (
			reason string
			count  int
		)

		if err := rows.Scan(&reason, &count); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan event count", err)
		}

		counts[reason] = count
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating event counts", err)
	}

	return counts, nil
}

func (l *BacktestLog) query(builder squirrel.SelectBuilder) ([]log.Event, error) {
	rows, err := builder.RunWith(l.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query events", err)
	}
	defer rows.Close()

	var events []log.Event

	for rows.Next() {
		var (
			event      log.Event
			kind       string
			fieldsJSON sql.NullString
		)

		if err := rows.Scan(&event.Timestamp, &event.Symbol, &kind, &event.Reason, &event.Detail, &fieldsJSON); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan event", err)
		}

		event.Kind = log.EventKind(kind)
		event.Timestamp = event.Timestamp.UTC()

		if fieldsJSON.Valid && fieldsJSON.String != "" {
			var fields map[string]string
			if err := json.Unmarshal([]byte(fieldsJSON.String), &fields); err != nil {
				return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to unmarshal event fields", err)
			}

			event.Fields = fields
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating events", err)
	}

	return events, nil
}

// Write saves the events to a Parquet file in the specified directory
// and returns the file path.
func (l *BacktestLog) Write(path string) (string, error) {
	if l == nil || l.db == nil || l.logger == nil {
		return "", errors.New(errors.ErrCodeBacktestStateNil, "backtest log, database, or logger is nil")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results directory", err)
	}

	eventsPath := filepath.Join(path, EventsFileName)

	_, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM events ORDER BY id) TO '%s' (FORMAT PARQUET)`, escapeSQLPath(eventsPath)))
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to export events to Parquet", err)
	}

	l.logger.Info("Successfully exported events to Parquet file",
		zap.String("events", eventsPath),
	)

	return eventsPath, nil
}

// Cleanup resets the database state.
func (l *BacktestLog) Cleanup() error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "backtest log or database is nil")
	}

	_, err := l.db.Exec(`
		DROP TABLE IF EXISTS events;
		DROP SEQUENCE IF EXISTS event_id_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to cleanup events table", err)
	}

	return l.initialize()
}

// Close closes the database connection.
func (l *BacktestLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	return l.db.Close()
}

func (l *BacktestLog) initialize() error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeBacktestStateNil, "backtest log or database is nil")
	}

	_, err := l.db.Exec(`CREATE SEQUENCE IF NOT EXISTS event_id_seq`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to create sequence", err)
	}

	_, err = l.db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id BIGINT PRIMARY KEY,
			timestamp TIMESTAMP,
			symbol TEXT,
			kind TEXT,
			reason TEXT,
			detail TEXT,
			fields TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStateFailed, "failed to create events table", err)
	}

	return nil
}

func escapeSQLPath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
