package datasource

import (
	"sort"
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/types"
)

// barSpan is the duration of one candle of series. An unknown interval has no span,
// so its candles become visible at their open time.
func barSpan(series types.CandleSeries) time.Duration {
	d, err := series.Interval.Duration()
	if err != nil {
		return 0
	}

	return d
}

// indexClosedBy returns the index of the first candle that is still open at ts,
// i.e. the first with timestamp + span > ts.
func indexClosedBy(candles []types.Candle, span time.Duration, ts time.Time) int {
	return sort.Search(len(candles), func(i int) bool {
		return candles[i].Timestamp.Add(span).After(ts)
	})
}

// sliceAsOf limits capacity as well as length so appending to a snapshot cannot overwrite later candles.
// Only candles closed at or before ts are visible.
func sliceAsOf(series types.CandleSeries, ts time.Time, lookback int, minimum int) types.MarketSnapshot {
	end := indexClosedBy(series.Candles, barSpan(series), ts)

	start := 0
	if lookback > 0 && end > lookback {
		start = end - lookback
	}

	visible := series.Candles[start:end:end]

	return types.MarketSnapshot{
		Symbol:         series.Symbol,
		Interval:       series.Interval,
		AsOf:           ts,
		Candles:        visible,
		SufficientData: len(visible) > 0 && len(visible) >= minimum,
		Required:       minimum,
	}
}

func aggregate24h(series types.CandleSeries, ts time.Time) types.Ticker24h {
	candles := series.Candles
	span := barSpan(series)
	end := indexClosedBy(candles, span, ts)

	if end == 0 {
		return types.Ticker24h{}
	}

	last := candles[end-1].Close
	ticker := types.Ticker24h{
		LastPrice: last,
		Bid:       last * (1 - spreadHalfPct),
		Ask:       last * (1 + spreadHalfPct),
		SpreadPct: 2 * spreadHalfPct * 100,
	}

	// boundary is the latest candle closed at or before ts-24h. Without one the window is shorter than 24h.
	boundaryEnd := indexClosedBy(candles[:end], span, ts.Add(-window24h))
	if boundaryEnd == 0 {
		return ticker
	}

	boundary := candles[boundaryEnd-1]

	quoteVolume := 0.0
	for _, c := range candles[boundaryEnd:end] {
		quoteVolume += c.QuoteVolume()
	}

	ticker.Available = true
	ticker.QuoteVolume = quoteVolume

	if boundary.Close > 0 {
		ticker.PriceChangePct = (last/boundary.Close - 1) * 100
	}

	return ticker
}

// candlesBetween selects by close time, so a candle that closes at upTo is included
// and one that closed at after is not.
func candlesBetween(series types.CandleSeries, after time.Time, upTo time.Time) []types.Candle {
	if !upTo.After(after) {
		return nil
	}

	span := barSpan(series)
	start := indexClosedBy(series.Candles, span, after)
	end := indexClosedBy(series.Candles, span, upTo)

	if start >= end {
		return nil
	}

	return series.Candles[start:end:end]
}

// normalize sorts candles by timestamp and drops duplicates, keeping the first row seen for a timestamp.
func normalize(candles []types.Candle) ([]types.Candle, int) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	out := candles[:0]
	dropped := 0

	for i, c := range candles {
		if i > 0 && !c.Timestamp.After(out[len(out)-1].Timestamp) {
			dropped++

			continue
		}

		out = append(out, c)
	}

	return out, dropped
}
