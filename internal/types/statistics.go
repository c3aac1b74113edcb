package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Completion records how a run stopped.
type Completion string

const (
	CompletionFinished  Completion = "finished"
	CompletionCancelled Completion = "cancelled"
	CompletionTradeCap  Completion = "trade_cap_reached"
)

type TradeResult struct {
	NumberOfTrades        int     `yaml:"number_of_trades" json:"number_of_trades"`
	NumberOfWinningTrades int     `yaml:"number_of_winning_trades" json:"number_of_winning_trades"`
	NumberOfLosingTrades  int     `yaml:"number_of_losing_trades" json:"number_of_losing_trades"`
	WinRate               float64 `yaml:"win_rate" json:"win_rate"`
	AverageR              float64 `yaml:"average_r" json:"average_r"`
	AverageWin            float64 `yaml:"average_win" json:"average_win"`
	AverageLoss           float64 `yaml:"average_loss" json:"average_loss"`
	BestTrade             float64 `yaml:"best_trade" json:"best_trade"`
	WorstTrade            float64 `yaml:"worst_trade" json:"worst_trade"`
	// ProfitFactor is gross wins over gross losses; zero when there are no losses.
	ProfitFactor float64 `yaml:"profit_factor" json:"profit_factor"`
}

type TradePnl struct {
	GrossPnL  float64 `yaml:"gross_pnl" json:"gross_pnl"`
	TotalFees float64 `yaml:"total_fees" json:"total_fees"`
	NetPnL    float64 `yaml:"net_pnl" json:"net_pnl"`
	// NetPnLPct is net PnL over initial equity, in percent.
	NetPnLPct float64 `yaml:"net_pnl_pct" json:"net_pnl_pct"`
}

type TradeHoldingTime struct {
	// Holding times in seconds
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
	Avg int `yaml:"avg" json:"avg"`
}

type SymbolStats struct {
	Symbol   string  `yaml:"symbol" json:"symbol"`
	Trades   int     `yaml:"trades" json:"trades"`
	Wins     int     `yaml:"wins" json:"wins"`
	NetPnL   float64 `yaml:"net_pnl" json:"net_pnl"`
	AverageR float64 `yaml:"average_r" json:"average_r"`
}

// SkipStats counts (symbol, step) pairs left out of snapshots and other recovered data issues.
type SkipStats struct {
	InsufficientData     int `yaml:"insufficient_data" json:"insufficient_data"`
	MissingData          int `yaml:"missing_data" json:"missing_data"`
	AggregateUnavailable int `yaml:"aggregate_unavailable" json:"aggregate_unavailable"`
	LowQuoteVolume       int `yaml:"low_quote_volume" json:"low_quote_volume"`
	// StepsWithoutSnapshots counts steps where every symbol was skipped.
	StepsWithoutSnapshots int `yaml:"steps_without_snapshots" json:"steps_without_snapshots"`
	GeneratorFailures     int `yaml:"generator_failures" json:"generator_failures"`
}

// Total returns the number of skipped (symbol, step) pairs.
func (s SkipStats) Total() int {
	return s.InsufficientData + s.MissingData + s.AggregateUnavailable + s.LowQuoteVolume
}

// Add increments the counter for reason.
func (s *SkipStats) Add(reason SkipReason) {
	switch reason {
	case SkipInsufficientData:
		s.InsufficientData++
	case SkipMissingData:
		s.MissingData++
	case SkipAggregateUnavailable:
		s.AggregateUnavailable++
	case SkipLowQuoteVolume:
		s.LowQuoteVolume++
	}
}

// Summary is the pure reduction of a run's trade log and equity curve.
type Summary struct {
	ID              string    `yaml:"id" json:"id"`
	Timestamp       time.Time `yaml:"timestamp" json:"timestamp"`
	StartTime       time.Time `yaml:"start_time" json:"start_time"`
	EndTime         time.Time `yaml:"end_time" json:"end_time"`
	Regime          string    `yaml:"regime" json:"regime"`
	Steps           int       `yaml:"steps" json:"steps"`
	Symbols         []string  `yaml:"symbols" json:"symbols"`
	ExcludedSymbols []string  `yaml:"excluded_symbols" json:"excluded_symbols"`

	InitialEquity  float64 `yaml:"initial_equity" json:"initial_equity"`
	FinalEquity    float64 `yaml:"final_equity" json:"final_equity"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct"`
	TradesPerMonth float64 `yaml:"trades_per_month" json:"trades_per_month"`

	TradeResult      TradeResult             `yaml:"trade_result" json:"trade_result"`
	TradePnl         TradePnl                `yaml:"trade_pnl" json:"trade_pnl"`
	TradeHoldingTime TradeHoldingTime        `yaml:"trade_holding_time" json:"trade_holding_time"`
	ExitReasons      map[ExitReason]int      `yaml:"exit_reasons" json:"exit_reasons"`
	Rejections       map[RejectionReason]int `yaml:"rejections" json:"rejections"`
	Skips            SkipStats               `yaml:"skips" json:"skips"`
	PerSymbol        []SymbolStats           `yaml:"per_symbol" json:"per_symbol"`
	Completion       Completion              `yaml:"completion" json:"completion"`

	TradesFilePath string `yaml:"trades_file_path,omitempty" json:"trades_file_path,omitempty"`
	EquityFilePath string `yaml:"equity_file_path,omitempty" json:"equity_file_path,omitempty"`
	EventsFilePath string `yaml:"events_file_path,omitempty" json:"events_file_path,omitempty"`
}

// WriteSummary writes the summary as YAML.
func WriteSummary(path string, summary Summary) error {
	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary to file: %w", err)
	}

	return nil
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (Summary, error) {
	var summary Summary

	data, err := os.ReadFile(path)
	if err != nil {
		return summary, fmt.Errorf("failed to read summary file: %w", err)
	}

	if err := yaml.Unmarshal(data, &summary); err != nil {
		return summary, fmt.Errorf("failed to parse summary file: %w", err)
	}

	return summary, nil
}
