package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/pump-backtest/internal/log"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/metrics"
	"github.com/rxtech-lab/pump-backtest/internal/strategy"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"go.uber.org/zap"
)

// SummaryFileName is the summary inside a results folder.
const SummaryFileName = "stats.yaml"

type BacktestEngineV1 struct {
	config          BacktestEngineV1Config
	initialized     bool
	log             *logger.Logger
	store           datasource.HistoricalDataStore
	generator       strategy.SignalGenerator
	customGenerator bool
	resultsFolder   string
	runState        engine.RunState
	// clock stamps the summary. Replays are otherwise independent of wall time.
	clock func() time.Time
}

func NewBacktestEngineV1() engine.Engine {
	return NewBacktestEngineV1WithLogger(nil)
}

// NewBacktestEngineV1WithLogger uses log instead of creating a production logger on Initialize.
func NewBacktestEngineV1WithLogger(log *logger.Logger) engine.Engine {
	return &BacktestEngineV1{
		config:          DefaultConfig(),
		initialized:     false,
		log:             log,
		store:           nil,
		generator:       nil,
		customGenerator: false,
		resultsFolder:   "",
		runState:        engine.RunStateInitializing,
		clock:           time.Now,
	}
}

// Initialize implements engine.Engine.
func (b *BacktestEngineV1) Initialize(config string) error {
	if b.log == nil {
		var err error

		b.log, err = logger.NewLogger()
		if err != nil {
			return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to create logger", err)
		}
	}

	parsed, err := ParseConfig(config)
	if err != nil {
		b.log.Error("Invalid backtest config", zap.Error(err))

		return err
	}

	if !b.customGenerator {
		pumpConfig, err := strategy.ParsePumpConfig(parsed.Generator)
		if err != nil {
			b.log.Error("Invalid generator settings", zap.Error(err))

			return err
		}

		b.generator = strategy.NewPumpGenerator(pumpConfig, b.log)
	}

	b.config = parsed
	b.initialized = true
	b.runState = engine.RunStateInitializing

	b.log.Debug("Backtest engine initialized",
		zap.String("version", parsed.Version),
		zap.Strings("symbols", parsed.Symbols),
		zap.Duration("scan_interval", parsed.ScanInterval),
		zap.String("regime", parsed.Regime),
	)

	return nil
}

// SetDataSource implements engine.Engine.
func (b *BacktestEngineV1) SetDataSource(store datasource.HistoricalDataStore) error {
	if store == nil {
		return errors.New(errors.ErrCodeMissingParameter, "data source is nil")
	}

	b.store = store

	return nil
}

// SetGenerator implements engine.Engine.
func (b *BacktestEngineV1) SetGenerator(generator strategy.SignalGenerator) error {
	if generator == nil {
		return errors.New(errors.ErrCodeMissingParameter, "signal generator is nil")
	}

	b.generator = generator
	b.customGenerator = true

	return nil
}

// SetResultsFolder implements engine.Engine.
func (b *BacktestEngineV1) SetResultsFolder(folder string) error {
	b.resultsFolder = folder

	if b.log != nil {
		b.log.Debug("Results folder set",
			zap.String("folder", folder),
		)
	}

	return nil
}

// State implements engine.Engine.
func (b *BacktestEngineV1) State() engine.RunState {
	return b.runState
}

func (b *BacktestEngineV1) GetConfigSchema() (string, error) {
	schema, err := b.config.GenerateSchemaJSON()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to generate schema", err)
	}

	return schema, nil
}

type symbolSeries struct {
	fine   types.CandleSeries
	medium types.CandleSeries
	coarse types.CandleSeries
}

// backtestRun is the mutable state of one Run call.
type backtestRun struct {
	id        string
	symbols   []string
	excluded  []string
	series    map[string]symbolSeries
	ledger    *PortfolioLedger
	state     *BacktestState
	events    *BacktestLog
	metrics   *metrics.RunMetrics
	callbacks engine.LifecycleCallbacks

	rejections map[types.RejectionReason]int
	skips      types.SkipStats
	trades     int
	steps      int
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (summary types.Summary, err error) {
	if callbacks.OnBacktestEnd != nil {
		defer func() {
			(*callbacks.OnBacktestEnd)(err)
		}()
	}

	if err := b.preRunCheck(); err != nil {
		return types.Summary{}, err
	}

	b.runState = engine.RunStateInitializing

	run := &backtestRun{
		id:         uuid.NewString(),
		series:     make(map[string]symbolSeries),
		callbacks:  callbacks,
		rejections: make(map[types.RejectionReason]int),
	}

	if err := b.loadSymbols(run); err != nil {
		return types.Summary{}, err
	}

	start, end := b.timeRange(run)
	if end.Before(start) {
		return types.Summary{}, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"end time %s is before start time %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	steps := stepTimes(start, end, b.config.ScanInterval)

	if callbacks.OnBacktestStart != nil {
		if err := (*callbacks.OnBacktestStart)(run.id, run.symbols, len(steps)); err != nil {
			return types.Summary{}, errors.Wrap(errors.ErrCodeCallbackFailed, "backtest start callback failed", err)
		}
	}

	if err := b.openRun(run); err != nil {
		return types.Summary{}, err
	}
	defer run.state.Close()
	defer run.events.Close()

	b.runState = engine.RunStateRunning

	b.log.Info("Backtest started",
		zap.String("run_id", run.id),
		zap.Strings("symbols", run.symbols),
		zap.Strings("excluded", run.excluded),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("steps", len(steps)),
	)

	completion, lastStep, loopErr := b.loop(ctx, run, steps)
	if loopErr != nil && !errors.HasCode(loopErr, errors.ErrCodeCallbackFailed) {
		return types.Summary{}, loopErr
	}

	if lastStep.IsZero() {
		lastStep = start
	}

	summary, err = b.writeResults(run, RunInfo{
		ID:              run.id,
		GeneratedAt:     b.clock().UTC(),
		Regime:          b.config.Regime,
		StartTime:       start,
		EndTime:         lastStep,
		Steps:           run.steps,
		Symbols:         run.symbols,
		ExcludedSymbols: run.excluded,
		InitialEquity:   b.config.InitialEquity,
		Rejections:      run.rejections,
		Skips:           run.skips,
		Completion:      completion,
	})
	if err != nil {
		return types.Summary{}, err
	}

	b.runState = engine.RunStateCompleted

	b.log.Info("Backtest completed",
		zap.String("run_id", run.id),
		zap.String("completion", string(completion)),
		zap.Int("steps", run.steps),
		zap.Int("trades", summary.TradeResult.NumberOfTrades),
		zap.Float64("final_equity", summary.FinalEquity),
		zap.Float64("net_pnl", summary.TradePnl.NetPnL),
	)

	return summary, loopErr
}

// loop runs the steps and returns how the run stopped and the last step executed.
func (b *BacktestEngineV1) loop(ctx context.Context, run *backtestRun, steps []time.Time) (types.Completion, time.Time, error) {
	var last time.Time

	if ctx.Err() != nil {
		return types.CompletionCancelled, last, nil
	}

	for i, ts := range steps {
		// (a) new trading day
		run.ledger.Rollover(ts)

		// (b) snapshots as of ts
		snapshots := b.buildSnapshots(run, ts)

		// (c) signals
		signals := b.generate(run, snapshots, ts)

		// (d) admission, best score first
		b.admit(run, signals, ts)

		// (e) exits on the fine bars since each position was last evaluated
		if err := b.recordTrades(run, run.ledger.MarkAndEvaluate(ts, b.fineBars(run, ts))); err != nil {
			return types.CompletionCancelled, last, err
		}

		completion := types.Completion("")

		switch {
		case ctx.Err() != nil:
			completion = types.CompletionCancelled
		case b.config.MaxTrades > 0 && run.trades >= b.config.MaxTrades:
			completion = types.CompletionTradeCap
		case i == len(steps)-1:
			completion = types.CompletionFinished
		}

		var callbackErr error

		if run.callbacks.OnStep != nil {
			if err := (*run.callbacks.OnStep)(i+1, len(steps)); err != nil {
				callbackErr = errors.Wrap(errors.ErrCodeCallbackFailed, "step callback failed", err)
				completion = types.CompletionCancelled
			}
		}

		prices := b.prices(run, ts)

		if completion != "" {
			if err := b.recordTrades(run, run.ledger.ForceCloseAll(ts, prices)); err != nil {
				return completion, last, err
			}
		}

		// (f) equity point
		if err := b.recordEquity(run, ts, prices); err != nil {
			return completion, last, err
		}

		run.steps++
		last = ts

		if completion != "" {
			if completion != types.CompletionFinished {
				b.log.Info("Backtest stopped early",
					zap.String("completion", string(completion)),
					zap.Time("timestamp", ts),
					zap.Int("trades", run.trades),
				)
			}

			return completion, last, callbackErr
		}
	}

	return types.CompletionFinished, last, nil
}

func (b *BacktestEngineV1) preRunCheck() error {
	if !b.initialized {
		return errors.New(errors.ErrCodeBacktestNotRunnable, "engine is not initialized")
	}

	if b.store == nil {
		b.log.Error("No data source set")

		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data source set")
	}

	if b.resultsFolder == "" {
		b.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if b.generator == nil {
		b.log.Error("No signal generator set")

		return errors.New(errors.ErrCodeBacktestNoGenerator, "no signal generator set")
	}

	return nil
}

// loadSymbols loads all three timeframes of every symbol. A symbol missing any timeframe is excluded.
func (b *BacktestEngineV1) loadSymbols(run *backtestRun) error {
	symbols := b.config.Symbols
	if len(symbols) == 0 {
		var err error

		symbols, err = b.store.Symbols()
		if err != nil {
			b.log.Error("Failed to list symbols", zap.Error(err))

			return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to list symbols", err)
		}
	}

	timeframes := b.config.Timeframes

	for _, symbol := range symbols {
		var (
			loaded  symbolSeries
			loadErr error
		)

		for _, tf := range []struct {
			interval types.Interval
			target   *types.CandleSeries
		}{
			{timeframes.Fine, &loaded.fine},
			{timeframes.Medium, &loaded.medium},
			{timeframes.Coarse, &loaded.coarse},
		} {
			series, err := b.store.Load(symbol, tf.interval)
			if err != nil {
				loadErr = err

				break
			}

			*tf.target = series
		}

		if loadErr != nil {
			_, interval, _ := errors.DataLocation(loadErr)

			b.log.Warn("Symbol excluded",
				zap.String("symbol", symbol),
				zap.String("interval", interval),
				zap.Error(loadErr),
			)

			run.excluded = append(run.excluded, symbol)

			if run.callbacks.OnSymbolExcluded != nil {
				(*run.callbacks.OnSymbolExcluded)(symbol, loadErr)
			}

			continue
		}

		run.series[symbol] = loaded
		run.symbols = append(run.symbols, symbol)
	}

	sort.Strings(run.symbols)
	sort.Strings(run.excluded)

	if len(run.symbols) == 0 {
		b.log.Error("No loadable symbols", zap.Strings("excluded", run.excluded))

		return errors.Newf(errors.ErrCodeNoLoadableData, "none of %d symbols has all of %s/%s/%s",
			len(symbols), timeframes.Fine, timeframes.Medium, timeframes.Coarse)
	}

	return nil
}

// timeRange defaults to the span of the loaded fine data, from the first open to the last close.
func (b *BacktestEngineV1) timeRange(run *backtestRun) (time.Time, time.Time) {
	var start, end time.Time

	for _, symbol := range run.symbols {
		fine := run.series[symbol].fine
		candles := fine.Candles
		span, _ := fine.Interval.Duration()

		first := candles[0].Timestamp
		last := candles[len(candles)-1].Timestamp.Add(span)

		if start.IsZero() || first.Before(start) {
			start = first
		}

		if last.After(end) {
			end = last
		}
	}

	return b.config.StartTime.TakeOr(start).UTC(), b.config.EndTime.TakeOr(end).UTC()
}

// stepTimes lists start, start+interval, ... up to and including end.
func stepTimes(start, end time.Time, interval time.Duration) []time.Time {
	var steps []time.Time

	for ts := start; !ts.After(end); ts = ts.Add(interval) {
		steps = append(steps, ts)
	}

	return steps
}

func (b *BacktestEngineV1) openRun(run *backtestRun) error {
	state, err := NewBacktestState(b.log)
	if err != nil {
		return err
	}

	if err := state.Initialize(); err != nil {
		state.Close()

		return err
	}

	events, err := NewBacktestLog(b.log)
	if err != nil {
		state.Close()

		return err
	}

	simulator := NewPositionSimulator(
		commission_fee.GetCommissionFeeHandler(b.config.FeeModel, b.config.FeeRate),
		b.config.SlippageBps,
		b.config.MoveStopToBreakeven,
	)

	run.state = state
	run.events = events
	run.metrics = metrics.NewRunMetrics(run.id)
	run.ledger = NewPortfolioLedger(b.config, simulator, b.log)

	return nil
}

func (b *BacktestEngineV1) buildSnapshots(run *backtestRun, ts time.Time) map[string]types.MultiTimeframeSnapshot {
	snapshots := make(map[string]types.MultiTimeframeSnapshot, len(run.symbols))

	for _, symbol := range run.symbols {
		snapshot, reason, detail := b.snapshot(run.series[symbol], symbol, ts)
		if reason != "" {
			b.skip(run, symbol, ts, reason, detail)

			continue
		}

		snapshots[symbol] = snapshot
	}

	if len(snapshots) == 0 {
		run.skips.StepsWithoutSnapshots++
	}

	return snapshots
}

// snapshot returns the view of one symbol at ts, or the reason it is skipped.
func (b *BacktestEngineV1) snapshot(series symbolSeries, symbol string, ts time.Time) (types.MultiTimeframeSnapshot, types.SkipReason, string) {
	lookback := b.config.Lookback
	minimum := b.config.MinCandles

	snapshot := types.MultiTimeframeSnapshot{
		Symbol: symbol,
		AsOf:   ts,
		Fine:   b.store.SliceAsOfWithMinimum(series.fine, ts, lookback, minimum),
		Medium: b.store.SliceAsOfWithMinimum(series.medium, ts, lookback, minimum),
		Coarse: b.store.SliceAsOfWithMinimum(series.coarse, ts, lookback, minimum),
	}

	for _, view := range []types.MarketSnapshot{snapshot.Fine, snapshot.Medium, snapshot.Coarse} {
		if view.Len() == 0 {
			return snapshot, types.SkipMissingData, fmt.Sprintf("no %s candles at or before step", view.Interval)
		}
	}

	// a fine series that stopped closing before this step has nothing to fill against
	span, _ := snapshot.Fine.Interval.Duration()
	if lastClose := snapshot.Fine.Candles[snapshot.Fine.Len()-1].Timestamp.Add(span); !lastClose.After(ts.Add(-b.config.ScanInterval)) {
		return snapshot, types.SkipMissingData, fmt.Sprintf("last %s candle closed at %s", snapshot.Fine.Interval, lastClose.Format(time.RFC3339))
	}

	for _, view := range []types.MarketSnapshot{snapshot.Fine, snapshot.Medium, snapshot.Coarse} {
		if !view.SufficientData {
			return snapshot, types.SkipInsufficientData, fmt.Sprintf("%s has %d of %d candles", view.Interval, view.Len(), view.Required)
		}
	}

	snapshot.Ticker = b.store.Aggregate24h(series.coarse, ts)

	if b.config.Min24hQuoteVolume > 0 {
		if !snapshot.Ticker.Available {
			return snapshot, types.SkipAggregateUnavailable, "less than 24h of history"
		}

		if snapshot.Ticker.QuoteVolume < b.config.Min24hQuoteVolume {
			return snapshot, types.SkipLowQuoteVolume, fmt.Sprintf("24h quote volume %.2f below %.2f",
				snapshot.Ticker.QuoteVolume, b.config.Min24hQuoteVolume)
		}
	}

	return snapshot, "", ""
}

func (b *BacktestEngineV1) skip(run *backtestRun, symbol string, ts time.Time, reason types.SkipReason, detail string) {
	run.skips.Add(reason)
	run.metrics.Skips.WithLabelValues(string(reason)).Inc()

	b.log.Debug("Symbol skipped",
		zap.String("symbol", symbol),
		zap.String("reason", string(reason)),
		zap.String("detail", detail),
		zap.Time("timestamp", ts),
	)

	b.recordEvent(run, log.Event{
		Timestamp: ts,
		Symbol:    symbol,
		Kind:      log.EventKindSkip,
		Reason:    string(reason),
		Detail:    detail,
		Fields:    nil,
	})
}

// generate calls the generator and turns errors and panics into an empty step.
func (b *BacktestEngineV1) generate(run *backtestRun, snapshots map[string]types.MultiTimeframeSnapshot, ts time.Time) (signals []types.Signal) {
	if len(snapshots) == 0 {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			b.generatorFailed(run, ts, "panic", errors.Newf(errors.ErrCodeSignalGeneratorFailed, "generator panicked: %v", r))

			signals = nil
		}
	}()

	signals, err := b.generator.Generate(snapshots, b.config.Regime)
	if err != nil {
		b.generatorFailed(run, ts, "error", errors.Wrap(errors.ErrCodeSignalGeneratorFailed, "generator failed", err))

		return nil
	}

	run.metrics.Signals.WithLabelValues(b.generator.Name()).Add(float64(len(signals)))

	return signals
}

func (b *BacktestEngineV1) generatorFailed(run *backtestRun, ts time.Time, reason string, err error) {
	run.skips.GeneratorFailures++
	run.metrics.GeneratorFailures.Inc()

	b.log.Warn("Signal generator failed, step continues without signals",
		zap.String("generator", b.generator.Name()),
		zap.Time("timestamp", ts),
		zap.Error(err),
	)

	b.recordEvent(run, log.Event{
		Timestamp: ts,
		Symbol:    "",
		Kind:      log.EventKindGeneratorFailure,
		Reason:    reason,
		Detail:    err.Error(),
		Fields:    map[string]string{"generator": b.generator.Name()},
	})
}

func (b *BacktestEngineV1) admit(run *backtestRun, signals []types.Signal, ts time.Time) {
	ranked := make([]types.Signal, len(signals))
	copy(ranked, signals)

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}

		return ranked[i].Symbol < ranked[j].Symbol
	})

	entries := 0

	for _, signal := range ranked {
		if signal.Engine == "" {
			signal.Engine = b.generator.Name()
		}

		if b.config.MaxEntriesPerStep > 0 && entries >= b.config.MaxEntriesPerStep {
			b.reject(run, &types.Rejection{
				Symbol:    signal.Symbol,
				Timestamp: ts,
				Reason:    types.RejectionMaxEntriesPerStep,
				Detail:    fmt.Sprintf("%d entries this step", entries),
			})

			continue
		}

		position, rejection := run.ledger.TryOpen(signal, ts)
		if rejection != nil {
			b.reject(run, rejection)

			continue
		}

		entries++
		run.metrics.Entries.Inc()

		b.log.Debug("Signal admitted",
			zap.String("symbol", position.Symbol),
			zap.Float64("score", position.Score),
			zap.Float64("size", position.InitialSize),
			zap.Time("timestamp", ts),
		)
	}
}

func (b *BacktestEngineV1) reject(run *backtestRun, rejection *types.Rejection) {
	run.rejections[rejection.Reason]++
	run.metrics.Rejections.WithLabelValues(string(rejection.Reason)).Inc()

	if err := run.events.RecordRejection(*rejection); err != nil {
		b.log.Warn("Failed to record rejection", zap.String("symbol", rejection.Symbol), zap.Error(err))
	}
}

func (b *BacktestEngineV1) recordEvent(run *backtestRun, event log.Event) {
	if err := run.events.Record(event); err != nil {
		b.log.Warn("Failed to record event",
			zap.String("kind", string(event.Kind)),
			zap.String("symbol", event.Symbol),
			zap.Error(err),
		)
	}
}

// fineBars returns, per open position, the fine candles that closed after its last evaluation
// and at or before ts. Each bar is stamped with its close time, the moment its range is known.
func (b *BacktestEngineV1) fineBars(run *backtestRun, ts time.Time) map[string][]types.Candle {
	open := run.ledger.OpenPositions()
	bars := make(map[string][]types.Candle, len(open))

	for _, position := range open {
		fine := run.series[position.Symbol].fine
		span, _ := fine.Interval.Duration()

		closed := b.store.CandlesBetween(fine, position.LastEvaluatedAt, ts)
		stamped := make([]types.Candle, len(closed))

		for i, c := range closed {
			c.Timestamp = c.Timestamp.Add(span)
			stamped[i] = c
		}

		bars[position.Symbol] = stamped
	}

	return bars
}

// prices is the last fine close at or before ts for every open position.
func (b *BacktestEngineV1) prices(run *backtestRun, ts time.Time) map[string]float64 {
	open := run.ledger.OpenPositions()
	prices := make(map[string]float64, len(open))

	for _, position := range open {
		if price := b.store.SliceAsOf(run.series[position.Symbol].fine, ts, 1).LastClose(); price > 0 {
			prices[position.Symbol] = price
		}
	}

	return prices
}

func (b *BacktestEngineV1) recordTrades(run *backtestRun, trades []types.ClosedTrade) error {
	for _, trade := range trades {
		if err := run.state.AddTrade(trade); err != nil {
			b.log.Error("Failed to store trade", zap.String("id", trade.ID), zap.Error(err))

			return err
		}

		run.trades++
		run.metrics.ObserveTrade(trade)

		if run.callbacks.OnTradeClosed != nil {
			(*run.callbacks.OnTradeClosed)(trade)
		}
	}

	return nil
}

func (b *BacktestEngineV1) recordEquity(run *backtestRun, ts time.Time, prices map[string]float64) error {
	point := run.ledger.RecordEquity(ts, prices)

	if err := run.state.AddEquityPoint(point); err != nil {
		b.log.Error("Failed to store equity point", zap.Time("timestamp", ts), zap.Error(err))

		return err
	}

	run.metrics.Steps.Inc()
	run.metrics.ObserveEquity(point, run.ledger.Heat())

	return nil
}

// writeResults exports the run to the results folder and returns the summary.
func (b *BacktestEngineV1) writeResults(run *backtestRun, info RunInfo) (types.Summary, error) {
	if err := os.MkdirAll(b.resultsFolder, 0755); err != nil {
		return types.Summary{}, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to create results folder", err)
	}

	trades, err := run.state.GetAllTrades()
	if err != nil {
		return types.Summary{}, err
	}

	equity, err := run.state.GetEquityCurve()
	if err != nil {
		return types.Summary{}, err
	}

	summary := Summarize(info, trades, equity)

	files, err := run.state.Write(b.resultsFolder)
	if err != nil {
		return types.Summary{}, err
	}

	eventsPath, err := run.events.Write(b.resultsFolder)
	if err != nil {
		return types.Summary{}, err
	}

	summary.TradesFilePath = files.TradesCSV
	summary.EquityFilePath = files.EquityCSV
	summary.EventsFilePath = eventsPath

	if err := types.WriteSummary(filepath.Join(b.resultsFolder, SummaryFileName), summary); err != nil {
		return types.Summary{}, errors.Wrap(errors.ErrCodeBacktestWriteFailed, "failed to write summary", err)
	}

	if err := run.metrics.WriteToTextfile(filepath.Join(b.resultsFolder, metrics.FileName)); err != nil {
		return types.Summary{}, err
	}

	return summary, nil
}
