package datasource

import (
	"sort"
	"sync"
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
)

type seriesKey struct {
	symbol   string
	interval types.Interval
}

// InMemoryStore keeps fully loaded series in memory and answers every view with binary search.
type InMemoryStore struct {
	mu     sync.RWMutex
	series map[seriesKey]types.CandleSeries
}

// NewInMemoryStore creates a store preloaded with the given series.
// Candles are sorted and duplicate timestamps dropped.
func NewInMemoryStore(series ...types.CandleSeries) *InMemoryStore {
	store := &InMemoryStore{
		mu:     sync.RWMutex{},
		series: make(map[seriesKey]types.CandleSeries),
	}

	for _, s := range series {
		store.Add(s)
	}

	return store
}

// Add stores a series, replacing any series already held for the same key.
// It returns how many duplicate rows were dropped.
func (m *InMemoryStore) Add(series types.CandleSeries) int {
	candles := make([]types.Candle, len(series.Candles))
	copy(candles, series.Candles)

	candles, dropped := normalize(candles)
	series.Candles = candles

	m.mu.Lock()
	defer m.mu.Unlock()

	m.series[seriesKey{symbol: series.Symbol, interval: series.Interval}] = series

	return dropped
}

// Load implements HistoricalDataStore.
func (m *InMemoryStore) Load(symbol string, interval types.Interval) (types.CandleSeries, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series, ok := m.series[seriesKey{symbol: symbol, interval: interval}]
	if !ok || len(series.Candles) == 0 {
		return types.CandleSeries{}, errors.NewDataError(errors.ErrCodeDataNotFound, symbol, string(interval), "no candles loaded")
	}

	return series, nil
}

func (m *InMemoryStore) has(symbol string, interval types.Interval) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.series[seriesKey{symbol: symbol, interval: interval}]

	return ok
}

// SliceAsOf implements HistoricalDataStore.
func (m *InMemoryStore) SliceAsOf(series types.CandleSeries, ts time.Time, lookback int) types.MarketSnapshot {
	return sliceAsOf(series, ts, lookback, lookback)
}

// SliceAsOfWithMinimum implements HistoricalDataStore.
func (m *InMemoryStore) SliceAsOfWithMinimum(series types.CandleSeries, ts time.Time, lookback int, minimum int) types.MarketSnapshot {
	return sliceAsOf(series, ts, lookback, minimum)
}

// Aggregate24h implements HistoricalDataStore.
func (m *InMemoryStore) Aggregate24h(series types.CandleSeries, ts time.Time) types.Ticker24h {
	return aggregate24h(series, ts)
}

// CandlesBetween implements HistoricalDataStore.
func (m *InMemoryStore) CandlesBetween(series types.CandleSeries, after time.Time, upTo time.Time) []types.Candle {
	return candlesBetween(series, after, upTo)
}

// Symbols implements HistoricalDataStore. Symbols are returned sorted.
func (m *InMemoryStore) Symbols() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range m.series {
		seen[key.symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(seen))
	for symbol := range seen {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols, nil
}

// Close implements HistoricalDataStore.
func (m *InMemoryStore) Close() error {
	return nil
}
