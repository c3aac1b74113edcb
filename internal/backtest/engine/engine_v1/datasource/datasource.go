package datasource

import (
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/types"
)

// HistoricalDataStore serves per-symbol candle series and time-bounded views of them.
// Every view is bounded by an "as of" timestamp and exposes a candle only once it has closed,
// that is when timestamp + interval <= as of. Candle timestamps stay at the bar open time.
type HistoricalDataStore interface {
	// Load returns the full series for (symbol, interval), or an ErrCodeDataNotFound error when no source exists.
	Load(symbol string, interval types.Interval) (types.CandleSeries, error)
	// SliceAsOf returns up to lookback candles closed at or before ts.
	// SufficientData is set only when all lookback candles are present.
	SliceAsOf(series types.CandleSeries, ts time.Time, lookback int) types.MarketSnapshot
	// SliceAsOfWithMinimum is SliceAsOf with SufficientData checked against minimum instead of lookback.
	SliceAsOfWithMinimum(series types.CandleSeries, ts time.Time, lookback int, minimum int) types.MarketSnapshot
	// Aggregate24h computes the rolling 24 hour ticker over candles closed in (ts-24h, ts].
	Aggregate24h(series types.CandleSeries, ts time.Time) types.Ticker24h
	// CandlesBetween returns candles closed in (after, upTo].
	CandlesBetween(series types.CandleSeries, after time.Time, upTo time.Time) []types.Candle
	// Symbols lists the symbols the store can serve.
	Symbols() ([]string, error)
	// Close releases any resources held by the store.
	Close() error
}

const (
	// spreadHalfPct approximates bid and ask around the last price when no order book exists.
	spreadHalfPct = 0.0005
	window24h     = 24 * time.Hour
)
