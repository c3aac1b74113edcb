package engine

import (
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// sizeEpsilon is the remaining notional treated as fully exited.
const sizeEpsilon = 1e-9

// Fill is one executed exit against a position.
type Fill struct {
	Timestamp time.Time
	Price     float64
	// Notional is the filled share of the position measured at entry price.
	Notional float64
	// Value is the quote amount received, Notional scaled by Price over entry.
	Value float64
	// Fee is charged on Notional, the same basis as the entry fee.
	Fee      float64
	GrossPnL float64
}

// NetPnL is the fill's gross PnL minus its fee.
func (f Fill) NetPnL() float64 {
	return f.GrossPnL - f.Fee
}

// Evaluation is the outcome of checking one bar against a position.
type Evaluation struct {
	Fills  []Fill
	Closed bool
	Reason types.ExitReason
}

// RealizedPnL sums the net PnL of every fill in the evaluation.
func (e Evaluation) RealizedPnL() float64 {
	total := 0.0
	for _, fill := range e.Fills {
		total += fill.NetPnL()
	}

	return total
}

// PositionDefaults are the exit parameters used when a signal does not override them.
type PositionDefaults struct {
	TrailingEnabled bool
	Trailing        types.TrailingParams
	MaxHold         time.Duration
}

// PositionSimulator prices fills and walks a position's exit state machine bar by bar.
// It never looks at a bar the ledger did not hand it.
type PositionSimulator struct {
	fee                 commission_fee.CommissionFee
	slippage            decimal.Decimal
	moveStopToBreakeven bool
}

func NewPositionSimulator(fee commission_fee.CommissionFee, slippageBps float64, moveStopToBreakeven bool) *PositionSimulator {
	return &PositionSimulator{
		fee:                 fee,
		slippage:            decimal.NewFromFloat(slippageBps).Div(decimal.NewFromInt(10000)),
		moveStopToBreakeven: moveStopToBreakeven,
	}
}

// EntryPrice applies adverse slippage to a buy.
func (s *PositionSimulator) EntryPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(s.slippage)).InexactFloat64()
}

// ExitPrice applies adverse slippage to a sell.
func (s *PositionSimulator) ExitPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Sub(s.slippage)).InexactFloat64()
}

// Fee prices a fill of the given quote notional.
func (s *PositionSimulator) Fee(notional float64) float64 {
	return s.fee.Calculate(notional)
}

// Open builds an OPEN position of size quote notional from an accepted signal.
func (s *PositionSimulator) Open(id string, signal types.Signal, ts time.Time, size float64, defaults PositionDefaults) *types.Position {
	entry := s.EntryPrice(signal.EntryPrice)

	rungs := signal.SortedTargets()
	targets := make([]types.TargetState, len(rungs))

	for i, rung := range rungs {
		targets[i] = types.TargetState{TargetRung: rung, Filled: false}
	}

	trailing := defaults.Trailing
	trailingEnabled := defaults.TrailingEnabled

	if signal.Trailing.IsSome() {
		trailing = signal.Trailing.Unwrap()
		trailingEnabled = true
	}

	maxHold := defaults.MaxHold
	if signal.MaxHold.IsSome() {
		maxHold = signal.MaxHold.Unwrap()
	}

	metadata := make(map[string]any, len(signal.Metadata))
	for k, v := range signal.Metadata {
		metadata[k] = v
	}

	return &types.Position{
		ID:                 id,
		Symbol:             signal.Symbol,
		Side:               signal.Side,
		Engine:             signal.Engine,
		Score:              signal.Score,
		EntryTimestamp:     ts,
		EntryPrice:         entry,
		InitialSize:        size,
		Size:               size,
		InitialStopPrice:   signal.StopPrice,
		CurrentStopPrice:   signal.StopPrice,
		Targets:            targets,
		MaxHoldDeadline:    ts.Add(maxHold),
		Status:             types.PositionStatusOpen,
		Trailing:           trailing,
		TrailingEnabled:    trailingEnabled,
		TrailingActive:     false,
		TrailingRaisedStop: false,
		PeakFavorablePrice: entry,
		RealizedGrossPnL:   0,
		EntryFee:           s.Fee(size),
		ExitFees:           0,
		ExitNotional:       0,
		ExitValue:          0,
		PartialFills:       0,
		LastEvaluatedAt:    ts,
		Metadata:           metadata,
	}
}

// Evaluate checks one bar against an open position in exit priority order:
// stop, target ladder, trailing update, max hold.
func (s *PositionSimulator) Evaluate(p *types.Position, bar types.Candle) Evaluation {
	if !p.IsOpen() {
		return Evaluation{}
	}

	p.LastEvaluatedAt = bar.Timestamp

	// 1. stop
	if bar.Low <= p.CurrentStopPrice {
		reason := types.ExitReasonStopHit
		if p.TrailingRaisedStop {
			reason = types.ExitReasonTrailingStopHit
		}

		fill := s.Close(p, bar.Timestamp, p.CurrentStopPrice)

		return Evaluation{Fills: []Fill{fill}, Closed: true, Reason: reason}
	}

	// 2. target ladder
	if evaluation, filled := s.fillTargets(p, bar); filled {
		if !evaluation.Closed {
			s.updatePeak(p, bar.High)
		}

		return evaluation
	}

	// 3. trailing, a bar that moves an active trail ends here
	if bar.High > p.PeakFavorablePrice {
		s.updatePeak(p, bar.High)

		if s.trail(p, bar.Timestamp) {
			return Evaluation{}
		}
	}

	// 4. max hold
	if !bar.Timestamp.Before(p.MaxHoldDeadline) {
		fill := s.Close(p, bar.Timestamp, bar.Close)

		return Evaluation{Fills: []Fill{fill}, Closed: true, Reason: types.ExitReasonMaxHoldExpired}
	}

	return Evaluation{}
}

func (s *PositionSimulator) fillTargets(p *types.Position, bar types.Candle) (Evaluation, bool) {
	var evaluation Evaluation

	last := len(p.Targets) - 1

	for i := range p.Targets {
		target := &p.Targets[i]
		if target.Filled || bar.High < target.Price {
			continue
		}

		target.Filled = true

		notional := p.InitialSize * target.Fraction
		if i == last || notional >= p.Size-sizeEpsilon {
			evaluation.Fills = append(evaluation.Fills, s.Close(p, bar.Timestamp, target.Price))
			evaluation.Closed = true
			evaluation.Reason = types.ExitReasonTargetHit

			return evaluation, true
		}

		evaluation.Fills = append(evaluation.Fills, s.fill(p, bar.Timestamp, target.Price, notional))
		p.PartialFills++
	}

	if len(evaluation.Fills) == 0 {
		return evaluation, false
	}

	if s.moveStopToBreakeven && p.EntryPrice > p.CurrentStopPrice {
		p.CurrentStopPrice = p.EntryPrice
	}

	return evaluation, true
}

func (s *PositionSimulator) updatePeak(p *types.Position, high float64) {
	if high > p.PeakFavorablePrice {
		p.PeakFavorablePrice = high
	}
}

// trail raises the stop to peak × (1 − distance) once the activation move and delay are both met.
// It reports whether the trail is active.
func (s *PositionSimulator) trail(p *types.Position, ts time.Time) bool {
	if !p.TrailingEnabled || p.Trailing.DistancePct <= 0 {
		return false
	}

	activation := p.EntryPrice * (1 + p.Trailing.ActivationPct)
	if p.PeakFavorablePrice < activation || ts.Sub(p.EntryTimestamp) < p.Trailing.Delay {
		return false
	}

	p.TrailingActive = true

	candidate := decimal.NewFromFloat(p.PeakFavorablePrice).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(p.Trailing.DistancePct))).
		InexactFloat64()
	if candidate > p.CurrentStopPrice {
		p.CurrentStopPrice = candidate
		p.TrailingRaisedStop = true
	}

	return true
}

// Close exits the whole remaining size at price and marks the position CLOSED.
func (s *PositionSimulator) Close(p *types.Position, ts time.Time, price float64) Fill {
	fill := s.fill(p, ts, price, p.Size)
	p.Size = 0
	p.Status = types.PositionStatusClosed

	return fill
}

func (s *PositionSimulator) fill(p *types.Position, ts time.Time, price float64, notional float64) Fill {
	if notional > p.Size {
		notional = p.Size
	}

	fillPrice := s.ExitPrice(price)

	dNotional := decimal.NewFromFloat(notional)
	value := dNotional.Mul(decimal.NewFromFloat(fillPrice)).Div(decimal.NewFromFloat(p.EntryPrice))
	gross := value.Sub(dNotional)

	fill := Fill{
		Timestamp: ts,
		Price:     fillPrice,
		Notional:  notional,
		Value:     value.InexactFloat64(),
		Fee:       s.Fee(notional),
		GrossPnL:  gross.InexactFloat64(),
	}

	p.Size -= notional
	if p.Size < sizeEpsilon {
		p.Size = 0
	}

	p.RealizedGrossPnL += fill.GrossPnL
	p.ExitFees += fill.Fee
	p.ExitNotional += notional
	p.ExitValue += fillPrice * notional

	return fill
}

// ClosedTradeFrom reduces a CLOSED position into its trade record.
func ClosedTradeFrom(p *types.Position, exitTs time.Time, reason types.ExitReason) types.ClosedTrade {
	exitPrice := 0.0
	if p.ExitNotional > 0 {
		exitPrice = p.ExitValue / p.ExitNotional
	}

	fees := p.EntryFee + p.ExitFees
	net := p.RealizedGrossPnL - fees

	pnlPct := 0.0
	if p.InitialSize > 0 {
		pnlPct = net / p.InitialSize * 100
	}

	rMultiple := 0.0
	if risk := p.InitialRisk(); risk > 0 {
		rMultiple = net / risk
	}

	metadata := make(map[string]any, len(p.Metadata))
	for k, v := range p.Metadata {
		metadata[k] = v
	}

	return types.ClosedTrade{
		ID:             p.ID,
		Symbol:         p.Symbol,
		Side:           p.Side,
		Engine:         p.Engine,
		Score:          p.Score,
		EntryTimestamp: p.EntryTimestamp,
		ExitTimestamp:  exitTs,
		EntryPrice:     p.EntryPrice,
		ExitPrice:      exitPrice,
		Size:           p.InitialSize,
		InitialRisk:    p.InitialRisk(),
		GrossPnL:       p.RealizedGrossPnL,
		FeesPaid:       fees,
		NetPnL:         net,
		PnLPct:         pnlPct,
		RMultiple:      rMultiple,
		HoldDuration:   exitTs.Sub(p.EntryTimestamp),
		ExitReason:     reason,
		PartialFills:   p.PartialFills,
		Metadata:       metadata,
	}
}
