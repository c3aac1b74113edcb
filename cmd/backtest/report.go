package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/pump-backtest/internal/types"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(22)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func row(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func signed(value float64, format string) string {
	text := fmt.Sprintf(format, value)

	switch {
	case value > 0:
		return gainStyle.Render("+" + text)
	case value < 0:
		return lossStyle.Render(text)
	default:
		return text
	}
}

// RenderSummary formats a run summary for the terminal.
func RenderSummary(summary types.Summary) string {
	rows := []string{
		titleStyle.Render(fmt.Sprintf("Backtest %s (%s)", summary.ID, summary.Completion)),
		"",
		row("Range", fmt.Sprintf("%s → %s", summary.StartTime.Format("2006-01-02 15:04"), summary.EndTime.Format("2006-01-02 15:04"))),
		row("Regime", summary.Regime),
		row("Steps", fmt.Sprintf("%d", summary.Steps)),
		row("Symbols", fmt.Sprintf("%d (%d excluded)", len(summary.Symbols), len(summary.ExcludedSymbols))),
		"",
		row("Equity", fmt.Sprintf("%.2f → %.2f", summary.InitialEquity, summary.FinalEquity)),
		row("Net PnL", signed(summary.TradePnl.NetPnL, "%.4f")+fmt.Sprintf(" (%.2f%%)", summary.TradePnl.NetPnLPct)),
		row("Fees", fmt.Sprintf("%.4f", summary.TradePnl.TotalFees)),
		row("Max drawdown", fmt.Sprintf("%.2f%%", summary.MaxDrawdownPct)),
		"",
		row("Trades", fmt.Sprintf("%d (%.1f / month)", summary.TradeResult.NumberOfTrades, summary.TradesPerMonth)),
		row("Win rate", fmt.Sprintf("%.1f%%", summary.TradeResult.WinRate*100)),
		row("Average R", signed(summary.TradeResult.AverageR, "%.2f")),
		row("Profit factor", fmt.Sprintf("%.2f", summary.TradeResult.ProfitFactor)),
	}

	if exits := countsLine(types.AllExitReasons, summary.ExitReasons); exits != "" {
		rows = append(rows, row("Exits", exits))
	}

	if total := summary.Skips.Total(); total > 0 || summary.Skips.GeneratorFailures > 0 {
		rows = append(rows, row("Skips", fmt.Sprintf("%d symbol steps, %d generator failures", total, summary.Skips.GeneratorFailures)))
	}

	rejected := 0
	for _, count := range summary.Rejections {
		rejected += count
	}

	if rejected > 0 {
		rows = append(rows, row("Rejected signals", fmt.Sprintf("%d", rejected)))
	}

	if summary.TradesFilePath != "" {
		rows = append(rows, "", row("Trades file", summary.TradesFilePath))
	}

	return boxStyle.Render(strings.Join(rows, "\n"))
}

func countsLine[K ~string](order []K, counts map[K]int) string {
	parts := make([]string, 0, len(order))

	for _, key := range order {
		if count := counts[key]; count > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", key, count))
		}
	}

	return strings.Join(parts, ", ")
}
