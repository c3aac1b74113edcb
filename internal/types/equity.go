package types

import "time"

// EquityPoint is one row of the equity curve, recorded once per simulation step.
type EquityPoint struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	// Equity is realized cash equity.
	Equity float64 `yaml:"equity" json:"equity" csv:"equity"`
	// MarkedEquity adds the unrealized PnL of open positions at the step price.
	MarkedEquity float64 `yaml:"marked_equity" json:"marked_equity" csv:"marked_equity"`
	// StepPnL is the change in Equity since the previous point.
	StepPnL float64 `yaml:"step_pnl" json:"step_pnl" csv:"step_pnl"`
	// Symbols lists the symbols whose fills changed equity during the step, ";" separated.
	Symbols       string `yaml:"symbols" json:"symbols" csv:"symbols"`
	OpenPositions int    `yaml:"open_positions" json:"open_positions" csv:"open_positions"`
}
