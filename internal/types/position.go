package types

import "time"

type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "OPEN"
	PositionStatusClosed PositionStatus = "CLOSED"
)

// TargetState is a ladder rung plus whether it has been filled.
type TargetState struct {
	TargetRung
	Filled bool
}

// Position is one simulated long position. Sizes are quote-currency notional at entry price.
// Positions are owned by the portfolio ledger; other packages read them but never mutate them.
type Position struct {
	ID             string
	Symbol         string
	Side           Side
	Engine         string
	Score          float64
	EntryTimestamp time.Time
	EntryPrice     float64
	// InitialSize is the notional at entry. Size shrinks as rungs fill and never grows.
	InitialSize float64
	Size        float64

	InitialStopPrice float64
	// CurrentStopPrice only moves up.
	CurrentStopPrice float64
	Targets          []TargetState
	MaxHoldDeadline  time.Time
	Status           PositionStatus

	Trailing           TrailingParams
	TrailingEnabled    bool
	TrailingActive     bool
	// TrailingRaisedStop is set once the trail has moved the stop above its previous level.
	TrailingRaisedStop bool
	PeakFavorablePrice float64

	// Values realized by partial and final exit fills.
	RealizedGrossPnL float64
	EntryFee         float64
	ExitFees         float64
	ExitNotional     float64
	// ExitValue is the sum of fill price times filled size, used for the average exit price.
	ExitValue    float64
	PartialFills int

	// LastEvaluatedAt is the timestamp of the last bar the position was checked against.
	LastEvaluatedAt time.Time
	Metadata        map[string]any
}

// InitialRisk is the quote amount lost if the initial stop fills on the full size.
func (p *Position) InitialRisk() float64 {
	if p.EntryPrice <= 0 {
		return 0
	}

	return p.InitialSize * (p.EntryPrice - p.InitialStopPrice) / p.EntryPrice
}

// OpenRisk is the quote amount still at risk on the remaining size against the current stop.
// A stop at or above entry carries no risk.
func (p *Position) OpenRisk() float64 {
	if p.EntryPrice <= 0 || p.CurrentStopPrice >= p.EntryPrice {
		return 0
	}

	return p.Size * (p.EntryPrice - p.CurrentStopPrice) / p.EntryPrice
}

// UnrealizedPnL marks the remaining size at price, before exit fees.
func (p *Position) UnrealizedPnL(price float64) float64 {
	if p.EntryPrice <= 0 || price <= 0 {
		return 0
	}

	return p.Size * (price/p.EntryPrice - 1)
}

// IsOpen reports whether the position is still OPEN.
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}
