package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/internal/version"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// HeatPolicy decides what happens when a new entry would push portfolio heat over the limit.
type HeatPolicy string

const (
	// HeatPolicyReject drops the signal.
	HeatPolicyReject HeatPolicy = "reject"
	// HeatPolicyShrink cuts the size down to the remaining heat budget, then applies the size floor.
	HeatPolicyShrink HeatPolicy = "shrink"
)

var AllHeatPolicies = []any{
	HeatPolicyReject,
	HeatPolicyShrink,
}

type TimeframeConfig struct {
	Fine   types.Interval `yaml:"fine" json:"fine" jsonschema:"title=Fine Timeframe,description=Timeframe used for fills and exit checks" validate:"required"`
	Medium types.Interval `yaml:"medium" json:"medium" jsonschema:"title=Medium Timeframe,description=Trigger timeframe for the signal generator" validate:"required"`
	Coarse types.Interval `yaml:"coarse" json:"coarse" jsonschema:"title=Coarse Timeframe,description=Trend timeframe, also used for the 24h aggregate" validate:"required"`
}

// BacktestEngineV1Config is immutable once the engine is initialized.
type BacktestEngineV1Config struct {
	// Version is the engine version the config was written for.
	Version string   `yaml:"version" json:"version" jsonschema:"title=Version,description=Engine version this config targets"`
	Symbols []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Symbols to replay. Empty means every symbol found in the data directory"`
	// StartTime and EndTime default to the span of the loaded fine-timeframe data.
	StartTime optional.Option[time.Time] `yaml:"-" json:"start_time" jsonschema:"title=Start Time,description=Optional first simulated step"`
	EndTime   optional.Option[time.Time] `yaml:"-" json:"end_time" jsonschema:"title=End Time,description=Optional last simulated step"`

	InitialEquity float64         `yaml:"initial_equity" json:"initial_equity" jsonschema:"title=Initial Equity,description=Starting equity in quote currency,minimum=0" validate:"gt=0"`
	ScanInterval  time.Duration   `yaml:"scan_interval" json:"scan_interval" jsonschema:"title=Scan Interval,description=Simulated time between steps" validate:"gt=0"`
	Timeframes    TimeframeConfig `yaml:"timeframes" json:"timeframes" jsonschema:"title=Timeframes"`
	Lookback      int             `yaml:"lookback" json:"lookback" jsonschema:"title=Lookback,description=Candles per timeframe handed to the generator,minimum=1" validate:"gt=0"`
	MinCandles    int             `yaml:"min_candles" json:"min_candles" jsonschema:"title=Minimum Candles,description=Warm-up candles needed on every timeframe before a symbol is scanned,minimum=1" validate:"gt=0,ltefield=Lookback"`
	Regime        string          `yaml:"regime" json:"regime" jsonschema:"title=Regime,description=Market regime label passed to the generator"`

	RiskPerTradePct        float64    `yaml:"risk_per_trade_pct" json:"risk_per_trade_pct" jsonschema:"title=Risk Per Trade,description=Fraction of equity risked per entry,minimum=0,maximum=1" validate:"gt=0,lt=1"`
	MaxPortfolioHeatPct    float64    `yaml:"max_portfolio_heat_pct" json:"max_portfolio_heat_pct" jsonschema:"title=Max Portfolio Heat,description=Maximum total open risk as a fraction of equity,minimum=0" validate:"gt=0"`
	HeatPolicy             HeatPolicy `yaml:"heat_policy" json:"heat_policy" jsonschema:"title=Heat Policy,description=reject or shrink entries that exceed the heat budget" validate:"oneof=reject shrink"`
	MaxConcurrentPositions int        `yaml:"max_concurrent_positions" json:"max_concurrent_positions" jsonschema:"title=Max Concurrent Positions,minimum=1" validate:"gt=0"`
	EnableDailyLossLimit   bool       `yaml:"enable_daily_loss_limit" json:"enable_daily_loss_limit" jsonschema:"title=Daily Loss Limit,description=Stop new entries after the daily loss limit is hit"`
	MaxDailyLossPct        float64    `yaml:"max_daily_loss_pct" json:"max_daily_loss_pct" jsonschema:"title=Max Daily Loss,description=Fraction of start-of-day equity,minimum=0" validate:"gte=0,lt=1"`
	MinPositionSize        float64    `yaml:"min_position_size" json:"min_position_size" jsonschema:"title=Minimum Position Size,description=Absolute notional floor,minimum=0" validate:"gte=0"`
	MinPositionPct         float64    `yaml:"min_position_pct" json:"min_position_pct" jsonschema:"title=Minimum Position Share,description=Notional floor as a fraction of equity,minimum=0" validate:"gte=0,lt=1"`
	MaxEntriesPerStep      int        `yaml:"max_entries_per_step" json:"max_entries_per_step" jsonschema:"title=Max Entries Per Step,description=0 means unlimited,minimum=0" validate:"gte=0"`

	FeeModel    commission_fee.FeeModel `yaml:"fee_model" json:"fee_model" jsonschema:"title=Fee Model" validate:"oneof=percentage zero_commission"`
	FeeRate     float64                 `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,description=Fee per fill as a fraction of notional,minimum=0" validate:"gte=0,lt=1"`
	SlippageBps float64                 `yaml:"slippage_bps" json:"slippage_bps" jsonschema:"title=Slippage,description=Adverse slippage applied to every fill in basis points,minimum=0" validate:"gte=0,lt=10000"`

	TrailingEnabled       bool          `yaml:"trailing_enabled" json:"trailing_enabled" jsonschema:"title=Trailing Stop"`
	TrailingStopPct       float64       `yaml:"trailing_stop_pct" json:"trailing_stop_pct" jsonschema:"title=Trailing Distance,description=Distance below the peak,minimum=0,maximum=1" validate:"gte=0,lt=1"`
	TrailingActivationPct float64       `yaml:"trailing_activation_pct" json:"trailing_activation_pct" jsonschema:"title=Trailing Activation,description=Favorable move before trailing starts,minimum=0" validate:"gte=0"`
	TrailingDelay         time.Duration `yaml:"trailing_delay" json:"trailing_delay" jsonschema:"title=Trailing Delay,description=Time in trade before trailing starts" validate:"gte=0"`
	MoveStopToBreakeven   bool          `yaml:"move_stop_to_breakeven" json:"move_stop_to_breakeven" jsonschema:"title=Breakeven On Partial,description=Move the stop to entry after a partial target fill"`
	MaxHold               time.Duration `yaml:"max_hold" json:"max_hold" jsonschema:"title=Max Hold,description=Default holding limit, signals may override" validate:"gt=0"`

	MaxTrades         int     `yaml:"max_trades" json:"max_trades" jsonschema:"title=Max Trades,description=Stop the run after this many closed trades. 0 means unlimited,minimum=0" validate:"gte=0"`
	Min24hQuoteVolume float64 `yaml:"min_24h_quote_volume" json:"min_24h_quote_volume" jsonschema:"title=Minimum 24h Quote Volume,description=Symbols below this rolling volume are skipped for the step. 0 disables the filter,minimum=0" validate:"gte=0"`

	// Generator holds generator-specific settings the engine passes through untouched.
	Generator map[string]any `yaml:"generator,omitempty" json:"generator,omitempty" jsonschema:"title=Generator Settings"`
}

type plainConfig BacktestEngineV1Config

type configYAML struct {
	plainConfig `yaml:",inline"`
	StartTime   *time.Time `yaml:"start_time,omitempty"`
	EndTime     *time.Time `yaml:"end_time,omitempty"`
}

// UnmarshalYAML fills unspecified keys from DefaultConfig.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	raw := configYAML{plainConfig: plainConfig(DefaultConfig())}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*c = BacktestEngineV1Config(raw.plainConfig)
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if raw.StartTime != nil {
		c.StartTime = optional.Some(raw.StartTime.UTC())
	}

	if raw.EndTime != nil {
		c.EndTime = optional.Some(raw.EndTime.UTC())
	}

	return nil
}

// MarshalYAML writes the optional bounds as plain timestamps.
func (c BacktestEngineV1Config) MarshalYAML() (any, error) {
	raw := configYAML{plainConfig: plainConfig(c)}

	if c.StartTime.IsSome() {
		start := c.StartTime.Unwrap()
		raw.StartTime = &start
	}

	if c.EndTime.IsSome() {
		end := c.EndTime.Unwrap()
		raw.EndTime = &end
	}

	return raw, nil
}

// ParseConfig decodes a YAML config and validates it.
func ParseConfig(content string) (BacktestEngineV1Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return config, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate checks every field and the cross-field rules. All failures carry ErrCodeInvalidConfiguration.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if err := version.CheckConfigCompatibility(version.GetVersion(), c.Version); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "config version is not supported", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.EndTime.Unwrap().After(c.StartTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_time %s must be after start_time %s",
			c.EndTime.Unwrap().Format(time.RFC3339), c.StartTime.Unwrap().Format(time.RFC3339))
	}

	fine, err := c.Timeframes.Fine.Duration()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid fine timeframe", err)
	}

	medium, err := c.Timeframes.Medium.Duration()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid medium timeframe", err)
	}

	coarse, err := c.Timeframes.Coarse.Duration()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid coarse timeframe", err)
	}

	if !(fine < medium && medium < coarse) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "timeframes must be ordered fine < medium < coarse, got %s/%s/%s",
			c.Timeframes.Fine, c.Timeframes.Medium, c.Timeframes.Coarse)
	}

	if c.ScanInterval < fine {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "scan_interval %s is shorter than the fine timeframe %s",
			c.ScanInterval, c.Timeframes.Fine)
	}

	if c.TrailingEnabled && c.TrailingStopPct <= 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "trailing_stop_pct must be positive when trailing is enabled")
	}

	if c.RiskPerTradePct > c.MaxPortfolioHeatPct {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "risk_per_trade_pct %.4f exceeds max_portfolio_heat_pct %.4f",
			c.RiskPerTradePct, c.MaxPortfolioHeatPct)
	}

	seen := make(map[string]bool, len(c.Symbols))
	for _, symbol := range c.Symbols {
		if strings.TrimSpace(symbol) == "" {
			return errors.New(errors.ErrCodeInvalidConfiguration, "symbols must not contain empty entries")
		}

		if seen[symbol] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "symbol %s is listed twice", symbol)
		}

		seen[symbol] = true
	}

	return nil
}

// GenerateSchema generates a JSON schema for BacktestEngineV1Config.
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case t == reflect.TypeOf(optional.Option[time.Time]{}):
				return &jsonschema.Schema{Type: "string", Format: "date-time"}
			case t == reflect.TypeOf(time.Duration(0)):
				return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|ms|s|m|h))+$`}
			case t == reflect.TypeOf(commission_fee.FeeModel("")):
				return &jsonschema.Schema{Type: "string", Enum: commission_fee.AllFeeModels}
			case t == reflect.TypeOf(HeatPolicy("")):
				return &jsonschema.Schema{Type: "string", Enum: AllHeatPolicies}
			case t == reflect.TypeOf(types.Interval("")):
				return &jsonschema.Schema{Type: "string", Enum: types.AllIntervals}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for the pump backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// DefaultConfig mirrors the live bot's defaults.
func DefaultConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		Version:   version.GetVersion(),
		Symbols:   nil,
		StartTime: optional.None[time.Time](),
		EndTime:   optional.None[time.Time](),

		InitialEquity: 62.88,
		ScanInterval:  30 * time.Minute,
		Timeframes: TimeframeConfig{
			Fine:   types.Interval1m,
			Medium: types.Interval15m,
			Coarse: types.Interval1h,
		},
		Lookback:   100,
		MinCandles: 20,
		Regime:     "BULL",

		RiskPerTradePct:        0.004,
		MaxPortfolioHeatPct:    0.008,
		HeatPolicy:             HeatPolicyReject,
		MaxConcurrentPositions: 2,
		EnableDailyLossLimit:   true,
		MaxDailyLossPct:        0.02,
		MinPositionSize:        10,
		MinPositionPct:         0,
		MaxEntriesPerStep:      0,

		FeeModel:    commission_fee.FeeModelPercentage,
		FeeRate:     commission_fee.DefaultFeeRate,
		SlippageBps: 0,

		TrailingEnabled:       true,
		TrailingStopPct:       0.35,
		TrailingActivationPct: 0,
		TrailingDelay:         0,
		MoveStopToBreakeven:   false,
		MaxHold:               2 * time.Hour,

		MaxTrades:         0,
		Min24hQuoteVolume: 0,
		Generator:         nil,
	}
}

// TestConfig returns DefaultConfig bounded to [start, end] for the given symbols.
func TestConfig(start time.Time, end time.Time, symbols ...string) BacktestEngineV1Config {
	config := DefaultConfig()
	config.Symbols = symbols
	config.StartTime = optional.Some(start)
	config.EndTime = optional.Some(end)

	return config
}
