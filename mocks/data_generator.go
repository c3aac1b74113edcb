package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/types"
)

// DataGenerator generates synthetic candles for tests and sample data sets.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Pump injects a volume spike with a price ramp into a generated series.
type Pump struct {
	// At is the index of the first pumped bar
	At int
	// Bars is how many bars the ramp lasts
	Bars int
	// Gain is the total price move over the ramp (0.3 = +30%)
	Gain float64
	// VolumeMultiplier scales the base volume during the ramp
	VolumeMultiplier float64
}

// GeneratorConfig configures how candles are generated.
type GeneratorConfig struct {
	// Symbol is the trading pair (e.g., "PEPEUSDT")
	Symbol string
	// StartTime is the open time of the first bar
	StartTime time.Time
	// Interval is the bar timeframe
	Interval types.Interval
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement per bar (0.002 = 0.2%)
	Volatility float64
	// Trend is the total drift over the series (-0.01 to 0.01 for bearish to bullish)
	Trend float64
	// VolumeBase is the average base-asset volume per bar
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// Pumps are applied in order
	Pumps []Pump
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "PEPEUSDT",
		StartTime:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Interval:       types.Interval1m,
		Count:          10000,
		InitialPrice:   1.0,
		Volatility:     0.002, // 0.2% per bar
		Trend:          0.0,   // neutral
		VolumeBase:     100000,
		VolumeVariance: 0.3,
		Pumps:          nil,
	}
}

// Generate creates a candle series following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) types.CandleSeries {
	step, err := config.Interval.Duration()
	if err != nil {
		step = time.Minute
	}

	candles := make([]types.Candle, config.Count)
	currentPrice := config.InitialPrice
	currentTime := config.StartTime

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller transform for normal distribution
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(1-u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		volumeMultiplier := 1.0

		for _, pump := range config.Pumps {
			if pump.Bars > 0 && i >= pump.At && i < pump.At+pump.Bars {
				priceChange += pump.Gain / float64(pump.Bars)
				volumeMultiplier *= pump.VolumeMultiplier
			}
		}

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99 // Prevent negative prices
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension
		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance
		volume := config.VolumeBase * volumeVariation * volumeMultiplier
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		candles[i] = types.Candle{
			Timestamp: currentTime,
			Open:      roundToDecimals(open, 8),
			High:      roundToDecimals(high, 8),
			Low:       roundToDecimals(low, 8),
			Close:     roundToDecimals(close, 8),
			Volume:    roundToDecimals(volume, 2),
		}

		currentPrice = close
		currentTime = currentTime.Add(step)
	}

	return types.CandleSeries{
		Symbol:   config.Symbol,
		Interval: config.Interval,
		Candles:  candles,
	}
}

// GenerateTimeframes generates the fine series and resamples it to each coarser interval,
// so every timeframe of a symbol tells the same story.
func (g *DataGenerator) GenerateTimeframes(config GeneratorConfig, intervals ...types.Interval) []types.CandleSeries {
	fine := g.Generate(config)
	out := []types.CandleSeries{fine}

	for _, interval := range intervals {
		if interval == config.Interval {
			continue
		}

		out = append(out, Resample(fine, interval))
	}

	return out
}

// GenerateMultiSymbol generates the fine series of several symbols.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) []types.CandleSeries {
	all := make([]types.CandleSeries, 0, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		// Vary initial price and volatility slightly per symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		all = append(all, g.Generate(config))
	}

	return all
}

// Resample buckets a series into a coarser interval. Buckets are aligned to the Unix epoch.
func Resample(series types.CandleSeries, interval types.Interval) types.CandleSeries {
	out := types.CandleSeries{Symbol: series.Symbol, Interval: interval, Candles: nil}

	width, err := interval.Duration()
	if err != nil {
		return out
	}

	for _, c := range series.Candles {
		bucket := c.Timestamp.Truncate(width)

		last := len(out.Candles) - 1
		if last >= 0 && out.Candles[last].Timestamp.Equal(bucket) {
			agg := &out.Candles[last]
			agg.High = math.Max(agg.High, c.High)
			agg.Low = math.Min(agg.Low, c.Low)
			agg.Close = c.Close
			agg.Volume = roundToDecimals(agg.Volume+c.Volume, 2)

			continue
		}

		c.Timestamp = bucket
		out.Candles = append(out.Candles, c)
	}

	return out
}

// Generate10K is a convenience function to generate 10,000 one-minute candles
// with default settings for benchmarking.
func Generate10K(symbol string) types.CandleSeries {
	gen := NewDataGenerator(42) // Fixed seed for reproducibility
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = 10000

	return gen.Generate(config)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
