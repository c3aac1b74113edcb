package types

import "time"

type ExitReason string

const (
	ExitReasonStopHit         ExitReason = "STOP_HIT"
	ExitReasonTargetHit       ExitReason = "TARGET_HIT"
	ExitReasonTrailingStopHit ExitReason = "TRAILING_STOP_HIT"
	ExitReasonMaxHoldExpired  ExitReason = "MAX_HOLD_EXPIRED"
	// ExitReasonSimulationEnded marks positions force-closed when the run stops.
	ExitReasonSimulationEnded ExitReason = "SIMULATION_ENDED"
)

// AllExitReasons lists the reasons in reporting order.
var AllExitReasons = []ExitReason{
	ExitReasonStopHit,
	ExitReasonTargetHit,
	ExitReasonTrailingStopHit,
	ExitReasonMaxHoldExpired,
	ExitReasonSimulationEnded,
}

// ClosedTrade is the immutable record of a fully exited position.
type ClosedTrade struct {
	ID             string    `yaml:"id" json:"id" csv:"id"`
	Symbol         string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Side           Side      `yaml:"side" json:"side" csv:"side"`
	Engine         string    `yaml:"engine" json:"engine" csv:"engine"`
	Score          float64   `yaml:"score" json:"score" csv:"score"`
	EntryTimestamp time.Time `yaml:"entry_timestamp" json:"entry_timestamp" csv:"entry_timestamp"`
	ExitTimestamp  time.Time `yaml:"exit_timestamp" json:"exit_timestamp" csv:"exit_timestamp"`
	EntryPrice     float64   `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	// ExitPrice is the size-weighted average over every exit fill.
	ExitPrice float64 `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	// Size is the initial quote notional.
	Size        float64 `yaml:"size" json:"size" csv:"size"`
	InitialRisk float64 `yaml:"initial_risk" json:"initial_risk" csv:"initial_risk"`
	GrossPnL    float64 `yaml:"gross_pnl" json:"gross_pnl" csv:"gross_pnl"`
	// FeesPaid includes the entry fee and every exit fee.
	FeesPaid float64 `yaml:"fees_paid" json:"fees_paid" csv:"fees_paid"`
	NetPnL   float64 `yaml:"net_pnl" json:"net_pnl" csv:"net_pnl"`
	// PnLPct is net PnL over initial size, in percent.
	PnLPct       float64        `yaml:"pnl_pct" json:"pnl_pct" csv:"pnl_pct"`
	RMultiple    float64        `yaml:"r_multiple" json:"r_multiple" csv:"r_multiple"`
	HoldDuration time.Duration  `yaml:"hold_duration" json:"hold_duration" csv:"hold_duration"`
	ExitReason   ExitReason     `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
	PartialFills int            `yaml:"partial_fills" json:"partial_fills" csv:"partial_fills"`
	Metadata     map[string]any `yaml:"metadata" json:"metadata" csv:"-"`
}

// IsWin reports whether the trade made money after fees.
func (t ClosedTrade) IsWin() bool {
	return t.NetPnL > 0
}
