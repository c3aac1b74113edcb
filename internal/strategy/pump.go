package strategy

import (
	"bytes"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pump-backtest/internal/indicator"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// PumpEngineName is carried on every pump signal and trade.
const PumpEngineName = "pump"

const (
	// minimum candles on the trigger and trend timeframes
	pumpMinCandles = 20
	// rvol compares the trigger candle with the mean of the nine before it
	rvolLookback = 9
	// trend candles per hour of momentum and per day of return
	momentumPeriods = 12
	returnPeriods   = 24
	// rvol at or above this marks a likely new listing
	newListingRVOL = 5.0
	emaSpan        = 60
)

// PumpConfig tunes the pump generator. It is decoded from the engine config's generator section.
type PumpConfig struct {
	// QuoteAsset restricts symbols to one quote currency. Empty accepts every symbol.
	QuoteAsset string `yaml:"quote_asset"`
	// NewListingBypass applies the relaxed new-listing gates when rvol spikes.
	NewListingBypass bool `yaml:"new_listing_bypass"`
	// RequirePriceAboveEMA skips symbols trading below the EMA of the trigger closes.
	RequirePriceAboveEMA bool    `yaml:"require_price_above_ema"`
	MaxSpreadPct         float64 `yaml:"max_spread_pct" validate:"gt=0"`

	ATRPeriod         int     `yaml:"atr_period" validate:"gt=0"`
	StopATRMultiplier float64 `yaml:"stop_atr_multiplier" validate:"gt=0"`
	HardStopPct       float64 `yaml:"hard_stop_pct" validate:"gt=0,lt=1"`
	SwingLookback     int     `yaml:"swing_lookback" validate:"gt=0"`
	// MinStopPct widens stops that sit closer than this to entry.
	MinStopPct float64 `yaml:"min_stop_pct" validate:"gte=0,lt=1"`

	FirstTargetR        float64 `yaml:"first_target_r" validate:"gt=0"`
	SecondTargetR       float64 `yaml:"second_target_r" validate:"gtfield=FirstTargetR"`
	FirstTargetFraction float64 `yaml:"first_target_fraction" validate:"gt=0,lt=1"`

	// MaxHold overrides the engine's max hold on every signal when positive.
	MaxHold time.Duration `yaml:"max_hold" validate:"gte=0"`

	Overrides ThresholdOverrides `yaml:",inline"`
}

// DefaultPumpConfig returns the tuning used when the generator section is empty.
func DefaultPumpConfig() PumpConfig {
	return PumpConfig{
		QuoteAsset:           "USDT",
		NewListingBypass:     true,
		RequirePriceAboveEMA: false,
		MaxSpreadPct:         1.5,
		ATRPeriod:            14,
		StopATRMultiplier:    1.5,
		HardStopPct:          0.03,
		SwingLookback:        5,
		MinStopPct:           0.01,
		FirstTargetR:         1.5,
		SecondTargetR:        3,
		FirstTargetFraction:  0.5,
		MaxHold:              0,
		Overrides:            ThresholdOverrides{},
	}
}

// ParsePumpConfig decodes generator settings over the defaults. Unknown keys are an error.
func ParsePumpConfig(settings map[string]any) (PumpConfig, error) {
	config := DefaultPumpConfig()
	if len(settings) == 0 {
		return config, nil
	}

	raw, err := yaml.Marshal(settings)
	if err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to encode generator settings", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid generator settings", err)
	}

	if err := validator.New().Struct(config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid generator settings", err)
	}

	return config, nil
}

// PumpGenerator scores momentum breakouts on the medium (trigger) and coarse (trend) timeframes.
type PumpGenerator struct {
	config PumpConfig
	log    *logger.Logger
}

func NewPumpGenerator(config PumpConfig, log *logger.Logger) *PumpGenerator {
	return &PumpGenerator{
		config: config,
		log:    log,
	}
}

// Name implements SignalGenerator.
func (g *PumpGenerator) Name() string {
	return PumpEngineName
}

// Generate implements SignalGenerator. Symbols are evaluated in name order.
func (g *PumpGenerator) Generate(snapshots map[string]types.MultiTimeframeSnapshot, regime string) ([]types.Signal, error) {
	thresholds := g.config.Overrides.Apply(ThresholdsFor(regime))

	symbols := make([]string, 0, len(snapshots))
	for symbol := range snapshots {
		if g.tradable(symbol) {
			symbols = append(symbols, symbol)
		}
	}

	sort.Strings(symbols)

	var signals []types.Signal

	for _, symbol := range symbols {
		signal, reason := g.evaluate(snapshots[symbol], regime, thresholds)
		if reason != "" {
			g.log.Debug("Pump candidate dropped",
				zap.String("symbol", symbol),
				zap.String("reason", reason),
			)

			continue
		}

		signals = append(signals, signal)
	}

	return signals, nil
}

// tradable drops leveraged tokens, perpetuals and other quote currencies.
func (g *PumpGenerator) tradable(symbol string) bool {
	if strings.Contains(symbol, "_PERP") {
		return false
	}

	quote := g.config.QuoteAsset
	if quote == "" {
		return true
	}

	return strings.HasSuffix(symbol, quote) &&
		!strings.HasSuffix(symbol, "3L"+quote) &&
		!strings.HasSuffix(symbol, "3S"+quote)
}

type pumpFeatures struct {
	price       float64
	rvol        float64
	momentum1h  float64
	return24h   float64
	volume24h   float64
	newListing  bool
	rvolOK      bool
	momentumOK  bool
	returnOK    bool
	minScore    float64
	minVolume   float64
	triggerBars []types.Candle
}

func (g *PumpGenerator) features(snapshot types.MultiTimeframeSnapshot, thresholds Thresholds) pumpFeatures {
	trigger := snapshot.Medium.Candles
	trend := snapshot.Coarse.Candles

	f := pumpFeatures{
		price:       trigger[len(trigger)-1].Close,
		rvol:        indicator.RelativeVolume(trigger, rvolLookback),
		momentum1h:  indicator.Momentum(trend, momentumPeriods),
		return24h:   indicator.Momentum(trend, returnPeriods),
		volume24h:   snapshot.Ticker.QuoteVolume,
		minVolume:   thresholds.MinQuoteVolume,
		triggerBars: trigger,
	}

	f.newListing = g.config.NewListingBypass && f.rvol >= newListingRVOL

	if f.newListing {
		f.rvolOK = f.rvol >= thresholds.NewListingMinRVOL
		f.momentumOK = f.momentum1h >= thresholds.NewListingMinMomentum
		f.returnOK = true
		f.minScore = thresholds.NewListingMinScore
	} else {
		f.rvolOK = f.rvol >= thresholds.MinRVOL
		f.momentumOK = f.momentum1h >= thresholds.MinMomentum
		f.returnOK = thresholds.Min24hReturn <= f.return24h && f.return24h <= thresholds.Max24hReturn
		f.minScore = thresholds.MinScore
	}

	return f
}

// Score adds the rvol, momentum, 24h return and volume bands.
func (f pumpFeatures) Score() float64 {
	score := 0.0

	switch {
	case f.rvol >= 3:
		score += 30
	case f.rvol >= 2.5:
		score += 20
	case f.rvol >= 2:
		score += 10
	}

	switch {
	case f.momentum1h >= 50:
		score += 30
	case f.momentum1h >= 35:
		score += 20
	case f.momentum1h >= 25:
		score += 10
	}

	switch {
	case f.return24h >= 50 && f.return24h <= 150:
		score += 30
	case f.return24h >= 30 && f.return24h <= 200:
		score += 20
	case f.returnOK:
		score += 10
	}

	switch {
	case f.volume24h > 2*f.minVolume:
		score += 10
	case f.volume24h > f.minVolume:
		score += 5
	}

	return score
}

// evaluate returns a signal, or the reason the symbol was dropped.
func (g *PumpGenerator) evaluate(snapshot types.MultiTimeframeSnapshot, regime string, thresholds Thresholds) (types.Signal, string) {
	if snapshot.Medium.Len() < pumpMinCandles || snapshot.Coarse.Len() < pumpMinCandles {
		return types.Signal{}, "insufficient_data"
	}

	if snapshot.Ticker.QuoteVolume < thresholds.MinQuoteVolume {
		return types.Signal{}, "volume_too_low"
	}

	if snapshot.Ticker.SpreadPct > g.config.MaxSpreadPct {
		return types.Signal{}, "spread_too_wide"
	}

	f := g.features(snapshot, thresholds)
	if f.price <= 0 {
		return types.Signal{}, "no_price"
	}

	if g.config.RequirePriceAboveEMA {
		ema, err := indicator.EMA(f.triggerBars, emaSpan)
		if err != nil || f.price < ema {
			return types.Signal{}, "price_below_ema"
		}
	}

	score := f.Score()
	if score < f.minScore {
		return types.Signal{}, "score_too_low"
	}

	if !f.rvolOK || !f.momentumOK || !f.returnOK {
		return types.Signal{}, "core_conditions_failed"
	}

	stop, err := g.stopPrice(f)
	if errors.IsInsufficientDataError(err) {
		return types.Signal{}, "insufficient_data"
	}

	if err != nil {
		return types.Signal{}, "stop_unavailable"
	}

	risk := f.price - stop

	signal := types.Signal{
		Symbol:     snapshot.Symbol,
		Side:       types.SideLong,
		Engine:     PumpEngineName,
		Score:      score,
		EntryPrice: f.price,
		StopPrice:  stop,
		Targets: []types.TargetRung{
			{Price: f.price + risk*g.config.FirstTargetR, Fraction: g.config.FirstTargetFraction},
			{Price: f.price + risk*g.config.SecondTargetR, Fraction: 1 - g.config.FirstTargetFraction},
		},
		Trailing: optional.None[types.TrailingParams](),
		MaxHold:  optional.None[time.Duration](),
		Metadata: map[string]any{
			"rvol":        f.rvol,
			"momentum_1h": f.momentum1h,
			"return_24h":  f.return24h,
			"volume_24h":  f.volume24h,
			"regime":      regime,
			"new_listing": f.newListing,
		},
	}

	if g.config.MaxHold > 0 {
		signal.MaxHold = optional.Some(g.config.MaxHold)
	}

	return signal, ""
}

// stopPrice takes the tightest of the ATR, hard percent and swing-low stops,
// then widens it to the minimum stop distance.
func (g *PumpGenerator) stopPrice(f pumpFeatures) (float64, error) {
	atr, err := indicator.ATR(f.triggerBars, g.config.ATRPeriod)
	if err != nil {
		return 0, err
	}

	stop := math.Max(
		f.price-g.config.StopATRMultiplier*atr,
		math.Max(f.price*(1-g.config.HardStopPct), indicator.SwingLow(f.triggerBars, g.config.SwingLookback)*0.99),
	)

	if minDistance := f.price * g.config.MinStopPct; f.price-stop < minDistance {
		stop = f.price - minDistance
	}

	if stop <= 0 || stop >= f.price {
		return 0, errors.Newf(errors.ErrCodeIndicatorCalculation, "stop %.8f is not below entry %.8f", stop, f.price)
	}

	return stop, nil
}
