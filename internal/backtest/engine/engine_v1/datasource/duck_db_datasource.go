package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"go.uber.org/zap"
)

type fileFormat string

const (
	formatCSV     fileFormat = ".csv"
	formatParquet fileFormat = ".parquet"
)

// DuckDBFileStore reads SYMBOL_<interval>.csv or SYMBOL_<interval>.parquet files from a directory
// through DuckDB and keeps every loaded series in memory.
// Rows are timestamp (unix ms), open, high, low, close, volume.
type DuckDBFileStore struct {
	*InMemoryStore
	db      *sql.DB
	dataDir string
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
}

// NewDuckDBFileStore opens an in-memory DuckDB used only to parse the files under dataDir.
func NewDuckDBFileStore(dataDir string, logger *logger.Logger) (*DuckDBFileStore, error) {
	info, err := os.Stat(dataDir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "cannot open data directory %s", dataDir)
	}

	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrCodeDataSourceUnavailable, "data path %s is not a directory", dataDir)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBFileStore{
		InMemoryStore: NewInMemoryStore(),
		db:            db,
		dataDir:       dataDir,
		logger:        logger,
		sq:            squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Load implements HistoricalDataStore. The first call per key reads the file; later calls hit memory.
func (d *DuckDBFileStore) Load(symbol string, interval types.Interval) (types.CandleSeries, error) {
	if d.has(symbol, interval) {
		return d.InMemoryStore.Load(symbol, interval)
	}

	path, format, err := d.resolve(symbol, interval)
	if err != nil {
		return types.CandleSeries{}, err
	}

	candles, err := d.read(path, format)
	if err != nil {
		return types.CandleSeries{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s", path)
	}

	dropped := d.Add(types.CandleSeries{Symbol: symbol, Interval: interval, Candles: candles})
	if dropped > 0 {
		d.logger.Warn("Dropped candles with duplicate timestamps",
			zap.String("symbol", symbol),
			zap.String("interval", string(interval)),
			zap.Int("dropped", dropped),
		)
	}

	d.logger.Debug("Loaded candle series",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.String("path", path),
		zap.Int("candles", len(candles)-dropped),
	)

	return d.InMemoryStore.Load(symbol, interval)
}

func (d *DuckDBFileStore) resolve(symbol string, interval types.Interval) (string, fileFormat, error) {
	for _, format := range []fileFormat{formatCSV, formatParquet} {
		path := filepath.Join(d.dataDir, fmt.Sprintf("%s_%s%s", symbol, interval, format))
		if _, err := os.Stat(path); err == nil {
			return path, format, nil
		}
	}

	return "", "", errors.NewDataError(errors.ErrCodeDataNotFound, symbol, string(interval), "no data file in %s", d.dataDir)
}

func (d *DuckDBFileStore) read(path string, format fileFormat) ([]types.Candle, error) {
	escaped := strings.ReplaceAll(path, "'", "''")

	var source string

	switch format {
	case formatParquet:
		source = fmt.Sprintf("read_parquet('%s')", escaped)
	default:
		source = fmt.Sprintf(`read_csv('%s', header = true, columns = {
			'timestamp': 'BIGINT', 'open': 'DOUBLE', 'high': 'DOUBLE',
			'low': 'DOUBLE', 'close': 'DOUBLE', 'volume': 'DOUBLE'})`, escaped)
	}

	query, args, err := d.sq.
		Select("CAST(timestamp AS BIGINT)", "open", "high", "low", "close", "volume").
		From(source).
		Where(squirrel.Expr("timestamp IS NOT NULL")).
		OrderBy("timestamp").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []types.Candle

	for rows.Next() {
		var (
			ms     int64
			candle types.Candle
		)

		if err := rows.Scan(&ms, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan candle: %w", err)
		}

		candle.Timestamp = time.UnixMilli(ms).UTC()
		candles = append(candles, candle)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return candles, nil
}

// Symbols implements HistoricalDataStore by scanning the data directory for SYMBOL_<interval> files.
func (d *DuckDBFileStore) Symbols() ([]string, error) {
	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "cannot list %s", d.dataDir)
	}

	known := make(map[string]bool, len(types.AllIntervals))
	for _, interval := range types.AllIntervals {
		known[string(interval.(types.Interval))] = true
	}

	seen := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		ext := filepath.Ext(name)

		if ext != string(formatCSV) && ext != string(formatParquet) {
			continue
		}

		base := strings.TrimSuffix(name, ext)

		idx := strings.LastIndex(base, "_")
		if idx <= 0 || !known[base[idx+1:]] {
			continue
		}

		seen[base[:idx]] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements HistoricalDataStore.
func (d *DuckDBFileStore) Close() error {
	return d.db.Close()
}
