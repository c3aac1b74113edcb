package types

import "time"

// Ticker24h is the rolling 24 hour aggregate ending at a snapshot timestamp.
// When Available is false the series did not reach 24 hours back, so only
// the last price and the bid/ask approximation are populated.
type Ticker24h struct {
	Available      bool    `yaml:"available" json:"available"`
	QuoteVolume    float64 `yaml:"quote_volume" json:"quote_volume"`
	PriceChangePct float64 `yaml:"price_change_pct" json:"price_change_pct"`
	LastPrice      float64 `yaml:"last_price" json:"last_price"`
	Bid            float64 `yaml:"bid" json:"bid"`
	Ask            float64 `yaml:"ask" json:"ask"`
	SpreadPct      float64 `yaml:"spread_pct" json:"spread_pct"`
}

// MarketSnapshot is a read-only view of a series as of a timestamp.
// Candles holds at most the requested lookback, all with Timestamp <= AsOf.
type MarketSnapshot struct {
	Symbol   string
	Interval Interval
	AsOf     time.Time
	Candles  []Candle
	// SufficientData reports whether the slice reached the required minimum.
	SufficientData bool
	// Required is the minimum the slice was checked against.
	Required int
}

// Len returns the number of visible candles.
func (m MarketSnapshot) Len() int {
	return len(m.Candles)
}

// LastClose returns the close of the most recent visible candle, or 0 when empty.
func (m MarketSnapshot) LastClose() float64 {
	if len(m.Candles) == 0 {
		return 0
	}

	return m.Candles[len(m.Candles)-1].Close
}

// Closes returns the close prices of the visible candles, oldest first.
func (m MarketSnapshot) Closes() []float64 {
	closes := make([]float64, len(m.Candles))
	for i, c := range m.Candles {
		closes[i] = c.Close
	}

	return closes
}

// MultiTimeframeSnapshot groups the three timeframe views of one symbol at one step.
type MultiTimeframeSnapshot struct {
	Symbol string
	AsOf   time.Time
	Fine   MarketSnapshot
	Medium MarketSnapshot
	Coarse MarketSnapshot
	Ticker Ticker24h
}

// CurrentPrice is the latest close across the timeframes, taken from the finest available view.
func (s MultiTimeframeSnapshot) CurrentPrice() float64 {
	if price := s.Fine.LastClose(); price > 0 {
		return price
	}

	if price := s.Medium.LastClose(); price > 0 {
		return price
	}

	return s.Coarse.LastClose()
}
