package engine

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"go.uber.org/zap"
)

// heatTolerance absorbs float rounding when a new entry lands exactly on the heat budget.
const heatTolerance = 1e-12

// PortfolioState is a read-only copy of the ledger's accounting.
type PortfolioState struct {
	CurrentEquity    float64
	PeakEquity       float64
	MaxDrawdownPct   float64
	TodayRealizedPnL float64
	// Today is the UTC midnight of the current trading day.
	Today            time.Time
	StartOfDayEquity float64
	OpenPositions    map[string]types.Position
	TotalFees        float64
}

// PortfolioLedger owns every open position and the realized equity of a run.
// Positions are only mutated through the ledger and its simulator.
type PortfolioLedger struct {
	config    BacktestEngineV1Config
	simulator *PositionSimulator
	defaults  PositionDefaults
	log       *logger.Logger

	equity           float64
	peakEquity       float64
	maxDrawdownPct   float64
	todayRealizedPnL float64
	today            time.Time
	startOfDayEquity float64
	totalFees        float64

	positions map[string]*types.Position

	// recorded at the last equity point
	lastEquity     float64
	changedSymbols map[string]struct{}
}

func NewPortfolioLedger(config BacktestEngineV1Config, simulator *PositionSimulator, log *logger.Logger) *PortfolioLedger {
	return &PortfolioLedger{
		config:    config,
		simulator: simulator,
		defaults: PositionDefaults{
			TrailingEnabled: config.TrailingEnabled,
			Trailing: types.TrailingParams{
				ActivationPct: config.TrailingActivationPct,
				DistancePct:   config.TrailingStopPct,
				Delay:         config.TrailingDelay,
			},
			MaxHold: config.MaxHold,
		},
		log:              log,
		equity:           config.InitialEquity,
		peakEquity:       config.InitialEquity,
		maxDrawdownPct:   0,
		todayRealizedPnL: 0,
		today:            time.Time{},
		startOfDayEquity: config.InitialEquity,
		totalFees:        0,
		positions:        make(map[string]*types.Position),
		lastEquity:       config.InitialEquity,
		changedSymbols:   make(map[string]struct{}),
	}
}

// TryOpen runs the admission checks in order and opens a position when all pass.
// Exactly one of the results is non-nil.
func (l *PortfolioLedger) TryOpen(signal types.Signal, ts time.Time) (*types.Position, *types.Rejection) {
	reject := func(reason types.RejectionReason, format string, args ...any) (*types.Position, *types.Rejection) {
		rejection := &types.Rejection{
			Symbol:    signal.Symbol,
			Timestamp: ts,
			Reason:    reason,
			Detail:    fmt.Sprintf(format, args...),
		}

		l.log.Debug("Signal rejected",
			zap.String("symbol", signal.Symbol),
			zap.String("reason", string(reason)),
			zap.String("detail", rejection.Detail),
			zap.Time("timestamp", ts),
		)

		return nil, rejection
	}

	if err := signal.Validate(); err != nil {
		return reject(types.RejectionInvalidSignal, "%v", err)
	}

	if l.startOfDayEquity <= 0 || l.equity <= 0 {
		return reject(types.RejectionDailyLossBreached, "no equity left (start of day %.4f, current %.4f)", l.startOfDayEquity, l.equity)
	}

	if l.DailyLossBreached() {
		return reject(types.RejectionDailyLossBreached, "lost %.4f of %.4f start-of-day equity", -l.todayRealizedPnL, l.startOfDayEquity)
	}

	if _, ok := l.positions[signal.Symbol]; ok {
		return reject(types.RejectionSymbolAlreadyOpen, "")
	}

	if len(l.positions) >= l.config.MaxConcurrentPositions {
		return reject(types.RejectionConcurrencyLimit, "%d positions open", len(l.positions))
	}

	// size and heat use the slipped fill price so admission agrees with the stored position
	entry := l.simulator.EntryPrice(signal.EntryPrice)
	stopDistance := signal.StopDistancePct(entry)
	size := math.Min(l.equity*l.config.RiskPerTradePct/stopDistance, l.equity)

	openRisk := l.OpenRisk()
	budget := l.config.MaxPortfolioHeatPct * l.equity

	if openRisk+size*stopDistance > budget+heatTolerance {
		remaining := budget - openRisk
		if l.config.HeatPolicy != HeatPolicyShrink || remaining <= 0 {
			return reject(types.RejectionPortfolioHeatExceeded, "open risk %.4f plus %.4f above budget %.4f", openRisk, size*stopDistance, budget)
		}

		size = remaining / stopDistance
	}

	floor := math.Max(l.config.MinPositionSize, l.config.MinPositionPct*l.equity)
	if size < floor {
		return reject(types.RejectionPositionTooSmall, "size %.4f below floor %.4f", size, floor)
	}

	position := l.simulator.Open(uuid.NewString(), signal, ts, size, l.defaults)
	l.positions[signal.Symbol] = position
	l.realize(signal.Symbol, -position.EntryFee, position.EntryFee)

	l.log.Debug("Position opened",
		zap.String("id", position.ID),
		zap.String("symbol", position.Symbol),
		zap.Float64("entry_price", position.EntryPrice),
		zap.Float64("stop_price", position.CurrentStopPrice),
		zap.Float64("size", position.InitialSize),
		zap.Float64("entry_fee", position.EntryFee),
		zap.Time("timestamp", ts),
	)

	return position, nil
}

// MarkAndEvaluate walks every open position, in symbol order, over its bars with
// entry < bar.Timestamp <= ts that it has not seen yet. Bars are stamped at their close time.
// Closed trades are returned in exit order.
func (l *PortfolioLedger) MarkAndEvaluate(ts time.Time, bars map[string][]types.Candle) []types.ClosedTrade {
	var closed []types.ClosedTrade

	for _, symbol := range l.openSymbols() {
		position := l.positions[symbol]

		for _, bar := range bars[symbol] {
			if !bar.Timestamp.After(position.LastEvaluatedAt) || bar.Timestamp.After(ts) {
				continue
			}

			evaluation := l.simulator.Evaluate(position, bar)
			for _, fill := range evaluation.Fills {
				l.realize(symbol, fill.NetPnL(), fill.Fee)
			}

			if evaluation.Closed {
				closed = append(closed, l.close(position, bar.Timestamp, evaluation.Reason))

				break
			}
		}
	}

	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTimestamp.Before(closed[j].ExitTimestamp)
	})

	return closed
}

// ForceCloseAll closes every open position with SIMULATION_ENDED.
// A symbol with no price closes at its entry price.
func (l *PortfolioLedger) ForceCloseAll(ts time.Time, prices map[string]float64) []types.ClosedTrade {
	closed := make([]types.ClosedTrade, 0, len(l.positions))

	for _, symbol := range l.openSymbols() {
		position := l.positions[symbol]

		price, ok := prices[symbol]
		if !ok || price <= 0 {
			l.log.Warn("No closing price for open position, closing at entry",
				zap.String("symbol", symbol),
				zap.Time("timestamp", ts),
			)

			price = position.EntryPrice
		}

		fill := l.simulator.Close(position, ts, price)
		l.realize(symbol, fill.NetPnL(), fill.Fee)
		closed = append(closed, l.close(position, ts, types.ExitReasonSimulationEnded))
	}

	return closed
}

// Rollover starts a new daily bucket when ts falls on a later UTC date.
func (l *PortfolioLedger) Rollover(ts time.Time) {
	day := ts.UTC().Truncate(24 * time.Hour)
	if !day.After(l.today) {
		return
	}

	if !l.today.IsZero() {
		l.log.Debug("Daily bucket rolled over",
			zap.Time("day", day),
			zap.Float64("previous_day_pnl", l.todayRealizedPnL),
			zap.Float64("equity", l.equity),
		)
	}

	l.today = day
	l.startOfDayEquity = l.equity
	l.todayRealizedPnL = 0
}

// DailyLossBreached reports whether today's realized loss reached the daily limit.
func (l *PortfolioLedger) DailyLossBreached() bool {
	if !l.config.EnableDailyLossLimit {
		return false
	}

	if l.startOfDayEquity <= 0 {
		return true
	}

	return -l.todayRealizedPnL >= l.config.MaxDailyLossPct*l.startOfDayEquity
}

// OpenRisk sums the remaining risk of every open position against its current stop.
func (l *PortfolioLedger) OpenRisk() float64 {
	total := 0.0
	for _, position := range l.positions {
		total += position.OpenRisk()
	}

	return total
}

// Heat is open risk as a fraction of current equity.
func (l *PortfolioLedger) Heat() float64 {
	if l.equity <= 0 {
		return 0
	}

	return l.OpenRisk() / l.equity
}

// Equity returns realized cash equity.
func (l *PortfolioLedger) Equity() float64 {
	return l.equity
}

// MarkedEquity adds the unrealized PnL of open positions at prices.
func (l *PortfolioLedger) MarkedEquity(prices map[string]float64) float64 {
	marked := l.equity
	for symbol, position := range l.positions {
		if price, ok := prices[symbol]; ok {
			marked += position.UnrealizedPnL(price)
		}
	}

	return marked
}

// OpenPositions returns copies of the open positions in symbol order.
func (l *PortfolioLedger) OpenPositions() []types.Position {
	symbols := l.openSymbols()
	positions := make([]types.Position, 0, len(symbols))

	for _, symbol := range symbols {
		positions = append(positions, *l.positions[symbol])
	}

	return positions
}

// State returns a copy of the ledger's accounting.
func (l *PortfolioLedger) State() PortfolioState {
	open := make(map[string]types.Position, len(l.positions))
	for symbol, position := range l.positions {
		open[symbol] = *position
	}

	return PortfolioState{
		CurrentEquity:    l.equity,
		PeakEquity:       l.peakEquity,
		MaxDrawdownPct:   l.maxDrawdownPct,
		TodayRealizedPnL: l.todayRealizedPnL,
		Today:            l.today,
		StartOfDayEquity: l.startOfDayEquity,
		OpenPositions:    open,
		TotalFees:        l.totalFees,
	}
}

// RecordEquity builds the equity point for a step and resets the per-step change tracking.
func (l *PortfolioLedger) RecordEquity(ts time.Time, prices map[string]float64) types.EquityPoint {
	symbols := make([]string, 0, len(l.changedSymbols))
	for symbol := range l.changedSymbols {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	point := types.EquityPoint{
		Timestamp:     ts,
		Equity:        l.equity,
		MarkedEquity:  l.MarkedEquity(prices),
		StepPnL:       l.equity - l.lastEquity,
		Symbols:       strings.Join(symbols, ";"),
		OpenPositions: len(l.positions),
	}

	l.lastEquity = l.equity
	l.changedSymbols = make(map[string]struct{})

	return point
}

func (l *PortfolioLedger) realize(symbol string, pnl float64, fee float64) {
	l.equity += pnl
	l.todayRealizedPnL += pnl
	l.totalFees += fee
	l.changedSymbols[symbol] = struct{}{}

	if l.equity > l.peakEquity {
		l.peakEquity = l.equity
	}

	if l.peakEquity > 0 {
		drawdown := (l.peakEquity - l.equity) / l.peakEquity * 100
		if drawdown > l.maxDrawdownPct {
			l.maxDrawdownPct = drawdown
		}
	}
}

func (l *PortfolioLedger) close(position *types.Position, ts time.Time, reason types.ExitReason) types.ClosedTrade {
	delete(l.positions, position.Symbol)
	trade := ClosedTradeFrom(position, ts, reason)

	l.log.Debug("Position closed",
		zap.String("id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("reason", string(reason)),
		zap.Float64("exit_price", trade.ExitPrice),
		zap.Float64("net_pnl", trade.NetPnL),
		zap.Float64("r_multiple", trade.RMultiple),
		zap.Time("timestamp", ts),
	)

	return trade
}

func (l *PortfolioLedger) openSymbols() []string {
	symbols := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}
