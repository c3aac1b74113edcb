package types

import (
	"fmt"
	"time"
)

// Interval is a candle timeframe label as it appears in data file names, e.g. "15m".
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

// AllIntervals lists the supported intervals, used for schema enums.
var AllIntervals = []any{
	Interval1m,
	Interval5m,
	Interval15m,
	Interval30m,
	Interval1h,
	Interval4h,
	Interval1d,
}

// Duration returns the wall-clock span of one candle.
func (i Interval) Duration() (time.Duration, error) {
	switch i {
	case Interval1m:
		return time.Minute, nil
	case Interval5m:
		return 5 * time.Minute, nil
	case Interval15m:
		return 15 * time.Minute, nil
	case Interval30m:
		return 30 * time.Minute, nil
	case Interval1h:
		return time.Hour, nil
	case Interval4h:
		return 4 * time.Hour, nil
	case Interval1d:
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval %q", string(i))
	}
}

// Candle is one OHLCV bar. Timestamp is the bar open time in UTC.
type Candle struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Open      float64   `yaml:"open" json:"open" csv:"open"`
	High      float64   `yaml:"high" json:"high" csv:"high"`
	Low       float64   `yaml:"low" json:"low" csv:"low"`
	Close     float64   `yaml:"close" json:"close" csv:"close"`
	// Volume in base asset units
	Volume float64 `yaml:"volume" json:"volume" csv:"volume"`
}

// QuoteVolume is the bar volume priced at its close.
func (c Candle) QuoteVolume() float64 {
	return c.Volume * c.Close
}

// CandleSeries holds the candles of one (symbol, interval) pair in strictly increasing timestamp order.
type CandleSeries struct {
	Symbol   string
	Interval Interval
	Candles  []Candle
}

// Len returns the number of candles in the series.
func (s CandleSeries) Len() int {
	return len(s.Candles)
}

// Last returns the most recent candle and false when the series is empty.
func (s CandleSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}

	return s.Candles[len(s.Candles)-1], true
}
