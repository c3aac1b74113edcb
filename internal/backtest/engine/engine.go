package engine

import (
	"context"

	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/pump-backtest/internal/strategy"
	"github.com/rxtech-lab/pump-backtest/internal/types"
)

// Lifecycle callback types for backtest phases
// All callbacks with error return can abort execution if they return an error

// OnBacktestStartCallback is called once symbols are loaded and the step count is known.
// runID identifies the results of this run.
type OnBacktestStartCallback func(runID string, symbols []string, totalSteps int) error

// OnBacktestEndCallback is called when the backtest completes (always called via defer).
type OnBacktestEndCallback func(err error)

// OnSymbolExcludedCallback is called for each symbol dropped during loading because a timeframe is missing.
type OnSymbolExcludedCallback func(symbol string, reason error)

// OnStepCallback is called after each simulation step.
type OnStepCallback func(current int, total int) error

// OnTradeClosedCallback is called for every closed trade, in exit order.
type OnTradeClosedCallback func(trade types.ClosedTrade)

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnBacktestStart  *OnBacktestStartCallback
	OnBacktestEnd    *OnBacktestEndCallback
	OnSymbolExcluded *OnSymbolExcludedCallback
	OnStep           *OnStepCallback
	OnTradeClosed    *OnTradeClosedCallback
}

// RunState is the engine's lifecycle state.
type RunState string

const (
	RunStateInitializing RunState = "INITIALIZING"
	RunStateRunning      RunState = "RUNNING"
	RunStateCompleted    RunState = "COMPLETED"
)

type Engine interface {
	// Initialize the engine with the given YAML configuration.
	Initialize(config string) error
	// SetDataSource sets the historical data store. The caller owns it and closes it after Run.
	SetDataSource(store datasource.HistoricalDataStore) error
	// SetGenerator sets the signal generator replayed at every step.
	SetGenerator(generator strategy.SignalGenerator) error
	// SetResultsFolder sets the output directory for the trade log, equity curve, events and summary.
	SetResultsFolder(folder string) error
	// Run replays the configured range and returns the summary.
	// Cancelling the context stops the loop; open positions are still closed and results still written.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.Summary, error)
	// State returns the current lifecycle state.
	State() RunState
	// GetConfigSchema returns the schema of the engine configuration
	GetConfigSchema() (string, error)
}
