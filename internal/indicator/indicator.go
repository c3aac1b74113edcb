// Package indicator computes technical indicators over candle slices.
//
// Every function is pure and only looks at the candles it is given, so callers
// control look-ahead by slicing first. The most recent candle is the last element.
package indicator

import (
	"math"

	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
)

// TrueRange returns the true range of candles[i], using candles[i-1] as the previous close.
// The first candle has no previous close, so its range is high minus low.
func TrueRange(candles []types.Candle, i int) float64 {
	c := candles[i]
	tr := c.High - c.Low

	if i == 0 {
		return tr
	}

	prevClose := candles[i-1].Close

	return math.Max(tr, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}

// ATR returns the simple mean of the last period true ranges.
func ATR(candles []types.Candle, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if len(candles) < period {
		return 0, errors.NewInsufficientDataError("atr", period, len(candles))
	}

	sum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		sum += TrueRange(candles, i)
	}

	return sum / float64(period), nil
}

// RelativeVolume compares the last candle's volume with the mean of the lookback candles before it.
// With fewer than lookback+1 candles it compares the last volume with itself.
// A zero average yields zero.
func RelativeVolume(candles []types.Candle, lookback int) float64 {
	if len(candles) == 0 {
		return 0
	}

	current := candles[len(candles)-1].Volume

	average := current
	if lookback > 0 && len(candles) >= lookback+2 {
		sum := 0.0
		for _, c := range candles[len(candles)-1-lookback : len(candles)-1] {
			sum += c.Volume
		}

		average = sum / float64(lookback)
	}

	if average == 0 {
		return 0
	}

	return current / average
}

// Momentum is the percent change of the close over periods candles.
// It returns zero when the slice is too short.
func Momentum(candles []types.Candle, periods int) float64 {
	if periods <= 0 || len(candles) < periods+1 {
		return 0
	}

	base := candles[len(candles)-1-periods].Close
	if base == 0 {
		return 0
	}

	return (candles[len(candles)-1].Close/base - 1) * 100
}

// EMA returns the exponential moving average of the closes with smoothing 2/(span+1),
// seeded with the first close.
func EMA(candles []types.Candle, span int) (float64, error) {
	if span <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "span must be a positive integer, got %d", span)
	}

	if len(candles) == 0 {
		return 0, errors.NewInsufficientDataError("ema", 1, 0)
	}

	alpha := 2.0 / float64(span+1)
	ema := candles[0].Close

	for _, c := range candles[1:] {
		ema = alpha*c.Close + (1-alpha)*ema
	}

	return ema, nil
}

// SwingLow returns the lowest low of the last n candles.
func SwingLow(candles []types.Candle, n int) float64 {
	if len(candles) == 0 {
		return 0
	}

	if n <= 0 || n > len(candles) {
		n = len(candles)
	}

	low := math.Inf(1)
	for _, c := range candles[len(candles)-n:] {
		low = math.Min(low, c.Low)
	}

	return low
}
