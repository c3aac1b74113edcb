package engine

import (
	"math"
	"sort"
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// daysPerMonth is the average Gregorian month length.
const daysPerMonth = 30.436875

// RunInfo is the run context that the trade log and equity curve do not carry.
type RunInfo struct {
	ID              string
	GeneratedAt     time.Time
	Regime          string
	StartTime       time.Time
	EndTime         time.Time
	Steps           int
	Symbols         []string
	ExcludedSymbols []string
	InitialEquity   float64
	Rejections      map[types.RejectionReason]int
	Skips           types.SkipStats
	Completion      types.Completion
}

// Summarize reduces a run's trades (in exit order) and equity curve into its summary.
// It has no side effects.
func Summarize(run RunInfo, trades []types.ClosedTrade, equity []types.EquityPoint) types.Summary {
	summary := types.Summary{
		ID:               run.ID,
		Timestamp:        run.GeneratedAt,
		StartTime:        run.StartTime,
		EndTime:          run.EndTime,
		Regime:           run.Regime,
		Steps:            run.Steps,
		Symbols:          run.Symbols,
		ExcludedSymbols:  run.ExcludedSymbols,
		InitialEquity:    run.InitialEquity,
		FinalEquity:      run.InitialEquity,
		MaxDrawdownPct:   maxDrawdownPct(run.InitialEquity, equity),
		TradesPerMonth:   0,
		TradeResult:      tradeResult(trades),
		TradePnl:         types.TradePnl{},
		TradeHoldingTime: holdingTime(trades),
		ExitReasons:      make(map[types.ExitReason]int, len(types.AllExitReasons)),
		Rejections:       make(map[types.RejectionReason]int, len(run.Rejections)),
		Skips:            run.Skips,
		PerSymbol:        perSymbol(trades),
		Completion:       run.Completion,
	}

	for _, reason := range types.AllExitReasons {
		summary.ExitReasons[reason] = 0
	}

	for reason, count := range run.Rejections {
		summary.Rejections[reason] = count
	}

	gross := decimal.Zero
	fees := decimal.Zero
	net := decimal.Zero

	for _, trade := range trades {
		summary.ExitReasons[trade.ExitReason]++
		gross = gross.Add(decimal.NewFromFloat(trade.GrossPnL))
		fees = fees.Add(decimal.NewFromFloat(trade.FeesPaid))
		net = net.Add(decimal.NewFromFloat(trade.NetPnL))
	}

	summary.TradePnl.GrossPnL = gross.InexactFloat64()
	summary.TradePnl.TotalFees = fees.InexactFloat64()
	summary.TradePnl.NetPnL = net.InexactFloat64()

	if run.InitialEquity > 0 {
		summary.TradePnl.NetPnLPct = net.Div(decimal.NewFromFloat(run.InitialEquity)).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	if len(equity) > 0 {
		summary.FinalEquity = equity[len(equity)-1].Equity
	} else {
		summary.FinalEquity = decimal.NewFromFloat(run.InitialEquity).Add(net).InexactFloat64()
	}

	if months := run.EndTime.Sub(run.StartTime).Hours() / 24 / daysPerMonth; months > 0 {
		summary.TradesPerMonth = float64(len(trades)) / months
	} else {
		summary.TradesPerMonth = float64(len(trades))
	}

	return summary
}

func tradeResult(trades []types.ClosedTrade) types.TradeResult {
	result := types.TradeResult{}
	if len(trades) == 0 {
		return result
	}

	var (
		totalR     float64
		winSum     float64
		lossSum    float64
		best       = math.Inf(-1)
		worst      = math.Inf(1)
		numberWins int
		numberLoss int
	)

	for _, trade := range trades {
		totalR += trade.RMultiple
		best = math.Max(best, trade.NetPnL)
		worst = math.Min(worst, trade.NetPnL)

		switch {
		case trade.NetPnL > 0:
			numberWins++
			winSum += trade.NetPnL
		case trade.NetPnL < 0:
			numberLoss++
			lossSum += trade.NetPnL
		}
	}

	result.NumberOfTrades = len(trades)
	result.NumberOfWinningTrades = numberWins
	result.NumberOfLosingTrades = numberLoss
	result.WinRate = float64(numberWins) / float64(len(trades))
	result.AverageR = totalR / float64(len(trades))
	result.BestTrade = best
	result.WorstTrade = worst

	if numberWins > 0 {
		result.AverageWin = winSum / float64(numberWins)
	}

	if numberLoss > 0 {
		result.AverageLoss = lossSum / float64(numberLoss)
		result.ProfitFactor = winSum / math.Abs(lossSum)
	}

	return result
}

func holdingTime(trades []types.ClosedTrade) types.TradeHoldingTime {
	if len(trades) == 0 {
		return types.TradeHoldingTime{}
	}

	minHold := trades[0].HoldDuration
	maxHold := trades[0].HoldDuration

	var total time.Duration

	for _, trade := range trades {
		if trade.HoldDuration < minHold {
			minHold = trade.HoldDuration
		}

		if trade.HoldDuration > maxHold {
			maxHold = trade.HoldDuration
		}

		total += trade.HoldDuration
	}

	return types.TradeHoldingTime{
		Min: int(minHold.Seconds()),
		Max: int(maxHold.Seconds()),
		Avg: int(math.Round(total.Seconds() / float64(len(trades)))),
	}
}

func perSymbol(trades []types.ClosedTrade) []types.SymbolStats {
	bySymbol := make(map[string]*types.SymbolStats)

	for _, trade := range trades {
		stats, ok := bySymbol[trade.Symbol]
		if !ok {
			stats = &types.SymbolStats{Symbol: trade.Symbol}
			bySymbol[trade.Symbol] = stats
		}

		stats.Trades++
		stats.NetPnL += trade.NetPnL
		// running sum, divided below
		stats.AverageR += trade.RMultiple

		if trade.IsWin() {
			stats.Wins++
		}
	}

	result := make([]types.SymbolStats, 0, len(bySymbol))
	for _, stats := range bySymbol {
		stats.AverageR /= float64(stats.Trades)
		result = append(result, *stats)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result
}

// maxDrawdownPct is the largest peak-to-trough drop of realized equity, in percent.
func maxDrawdownPct(initial float64, equity []types.EquityPoint) float64 {
	peak := initial
	worst := 0.0

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			worst = math.Max(worst, (peak-point.Equity)/peak*100)
		}
	}

	return worst
}
