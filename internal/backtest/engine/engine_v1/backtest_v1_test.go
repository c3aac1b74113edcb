package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	engine_types "github.com/rxtech-lab/pump-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/pump-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/metrics"
	"github.com/rxtech-lab/pump-backtest/internal/strategy"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/mocks"
	pkgerrors "github.com/rxtech-lab/pump-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gopkg.in/yaml.v3"
)

// scriptedGenerator returns fixed signals at given step times and records every snapshot map it sees.
type scriptedGenerator struct {
	signals map[time.Time][]types.Signal
	seen    []map[string]types.MultiTimeframeSnapshot
}

func (g *scriptedGenerator) Name() string {
	return "scripted"
}

func (g *scriptedGenerator) Generate(snapshots map[string]types.MultiTimeframeSnapshot, regime string) ([]types.Signal, error) {
	g.seen = append(g.seen, snapshots)

	for _, snapshot := range snapshots {
		return g.signals[snapshot.AsOf], nil
	}

	return nil, nil
}

type BacktestEngineV1TestSuite struct {
	suite.Suite
	start      time.Time
	resultsDir string
	ctrl       *gomock.Controller
}

func TestBacktestEngineV1Suite(t *testing.T) {
	suite.Run(t, new(BacktestEngineV1TestSuite))
}

func (suite *BacktestEngineV1TestSuite) SetupTest() {
	suite.start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	suite.resultsDir = filepath.Join(suite.T().TempDir(), "results")
	suite.ctrl = gomock.NewController(suite.T())
}

func (suite *BacktestEngineV1TestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *BacktestEngineV1TestSuite) config() BacktestEngineV1Config {
	config := TestConfig(suite.start, suite.start.Add(10*time.Minute), "PEPEUSDT")
	config.ScanInterval = time.Minute
	config.Lookback = 5
	config.MinCandles = 2
	config.FeeModel = commission_fee.FeeModelZero
	config.FeeRate = 0
	config.TrailingEnabled = false

	return config
}

func (suite *BacktestEngineV1TestSuite) encode(config BacktestEngineV1Config) string {
	data, err := yaml.Marshal(config)
	suite.Require().NoError(err)

	return string(data)
}

func (suite *BacktestEngineV1TestSuite) candle(ts time.Time, high, low, close float64) types.Candle {
	return types.Candle{Timestamp: ts, Open: close, High: high, Low: low, Close: close, Volume: 1000}
}

// series builds flat 145.2 candles every width from first to last, with overrides applied by timestamp.
func (suite *BacktestEngineV1TestSuite) series(symbol string, interval types.Interval, first, last time.Time, overrides ...types.Candle) types.CandleSeries {
	width, err := interval.Duration()
	suite.Require().NoError(err)

	byTime := make(map[time.Time]types.Candle, len(overrides))
	for _, c := range overrides {
		byTime[c.Timestamp] = c
	}

	var candles []types.Candle

	for ts := first; !ts.After(last); ts = ts.Add(width) {
		if c, ok := byTime[ts]; ok {
			candles = append(candles, c)

			continue
		}

		candles = append(candles, suite.candle(ts, 145.3, 145.1, 145.2))
	}

	return types.CandleSeries{Symbol: symbol, Interval: interval, Candles: candles}
}

// store holds PEPEUSDT on all three timeframes. Fine candles opening at or after the start come from fine.
func (suite *BacktestEngineV1TestSuite) store(fine ...types.Candle) *datasource.InMemoryStore {
	s := suite.start

	return datasource.NewInMemoryStore(
		suite.series("PEPEUSDT", types.Interval1m, s.Add(-5*time.Minute), s.Add(10*time.Minute), fine...),
		suite.series("PEPEUSDT", types.Interval15m, s.Add(-time.Hour), s.Add(15*time.Minute)),
		suite.series("PEPEUSDT", types.Interval1h, s.Add(-3*time.Hour), s),
	)
}

// targetPath holds the first two fine candles after entry. They close at start+1m and start+2m.
func (suite *BacktestEngineV1TestSuite) targetPath() []types.Candle {
	s := suite.start

	return []types.Candle{
		suite.candle(s, 147, 144.5, 146.8),
		suite.candle(s.Add(time.Minute), 148.9, 146.5, 148.6),
	}
}

func (suite *BacktestEngineV1TestSuite) referenceSignal() types.Signal {
	return types.Signal{
		Symbol:     "PEPEUSDT",
		Side:       types.SideLong,
		Engine:     "",
		Score:      30,
		EntryPrice: 145.20,
		StopPrice:  143.10,
		Targets:    []types.TargetRung{{Price: 148.50, Fraction: 1}},
		Trailing:   optional.None[types.TrailingParams](),
		MaxHold:    optional.None[time.Duration](),
		Metadata:   map[string]any{"rvol": 4.0},
	}
}

func (suite *BacktestEngineV1TestSuite) newEngine(config BacktestEngineV1Config, store datasource.HistoricalDataStore, generator strategy.SignalGenerator) engine_types.Engine {
	e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())

	suite.Require().NoError(e.SetGenerator(generator))
	suite.Require().NoError(e.Initialize(suite.encode(config)))
	suite.Require().NoError(e.SetDataSource(store))
	suite.Require().NoError(e.SetResultsFolder(suite.resultsDir))

	return e
}

func (suite *BacktestEngineV1TestSuite) scripted(signals map[time.Time][]types.Signal) *scriptedGenerator {
	return &scriptedGenerator{signals: signals, seen: nil}
}

func (suite *BacktestEngineV1TestSuite) TestReferenceTargetHit() {
	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {suite.referenceSignal()}})
	e := suite.newEngine(suite.config(), suite.store(suite.targetPath()...), generator)
	suite.Equal(engine_types.RunStateInitializing, e.State())

	var closed []types.ClosedTrade
	onTrade := engine_types.OnTradeClosedCallback(func(trade types.ClosedTrade) {
		closed = append(closed, trade)
	})

	var startedWith int
	onStart := engine_types.OnBacktestStartCallback(func(runID string, symbols []string, totalSteps int) error {
		suite.NotEmpty(runID)
		suite.Equal([]string{"PEPEUSDT"}, symbols)
		startedWith = totalSteps

		return nil
	})

	ended := false
	onEnd := engine_types.OnBacktestEndCallback(func(err error) {
		suite.NoError(err)
		ended = true
	})

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{
		OnBacktestStart: &onStart,
		OnBacktestEnd:   &onEnd,
		OnTradeClosed:   &onTrade,
	})
	suite.Require().NoError(err)
	suite.True(ended)
	suite.Equal(11, startedWith)
	suite.Equal(engine_types.RunStateCompleted, e.State())

	suite.Require().Len(closed, 1)
	trade := closed[0]
	suite.Equal(types.ExitReasonTargetHit, trade.ExitReason)
	suite.Equal("scripted", trade.Engine)
	suite.InDelta(1.57, trade.RMultiple, 0.01)
	suite.Equal(suite.start.Add(2*time.Minute), trade.ExitTimestamp)

	suite.Equal(types.CompletionFinished, summary.Completion)
	suite.Equal(11, summary.Steps)
	suite.Equal(1, summary.TradeResult.NumberOfTrades)
	suite.Equal(1, summary.ExitReasons[types.ExitReasonTargetHit])
	suite.Equal(0, summary.ExitReasons[types.ExitReasonStopHit])
	suite.InDelta(62.88+trade.NetPnL, summary.FinalEquity, 1e-9)
	suite.InDelta(trade.NetPnL, summary.TradePnl.NetPnL, 1e-9)
	suite.Equal(suite.start, summary.StartTime)
	suite.Equal(suite.start.Add(10*time.Minute), summary.EndTime)
}

func (suite *BacktestEngineV1TestSuite) TestReferenceStopHit() {
	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {suite.referenceSignal()}})
	store := suite.store(suite.candle(suite.start, 145.5, 142.0, 142.5))
	e := suite.newEngine(suite.config(), store, generator)

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(1, summary.ExitReasons[types.ExitReasonStopHit])
	suite.InDelta(-0.25152, summary.TradePnl.NetPnL, 1e-9)
	suite.InDelta(62.88-0.25152, summary.FinalEquity, 1e-9)
	suite.Equal(1, summary.TradeResult.NumberOfLosingTrades)
}

func (suite *BacktestEngineV1TestSuite) TestDuplicateSymbolRejected() {
	config := suite.config()
	config.MaxPortfolioHeatPct = 0.1

	generator := suite.scripted(map[time.Time][]types.Signal{
		suite.start:                  {suite.referenceSignal()},
		suite.start.Add(time.Minute): {suite.referenceSignal()},
	})
	e := suite.newEngine(config, suite.store(suite.targetPath()...), generator)

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(1, summary.TradeResult.NumberOfTrades)
	suite.Equal(1, summary.Rejections[types.RejectionSymbolAlreadyOpen])
}

func (suite *BacktestEngineV1TestSuite) TestMaxEntriesPerStep() {
	config := suite.config()
	config.MaxPortfolioHeatPct = 0.1
	config.MaxEntriesPerStep = 1

	low := suite.referenceSignal()
	low.Score = 10
	high := suite.referenceSignal()
	high.Score = 50

	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {low, high}})
	e := suite.newEngine(config, suite.store(suite.targetPath()...), generator)

	var closed []types.ClosedTrade
	onTrade := engine_types.OnTradeClosedCallback(func(trade types.ClosedTrade) {
		closed = append(closed, trade)
	})

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{OnTradeClosed: &onTrade})
	suite.Require().NoError(err)

	suite.Require().Len(closed, 1)
	suite.Equal(50.0, closed[0].Score)
	suite.Equal(1, summary.Rejections[types.RejectionMaxEntriesPerStep])
}

func (suite *BacktestEngineV1TestSuite) TestSnapshotsNeverLookAhead() {
	generator := suite.scripted(nil)
	e := suite.newEngine(suite.config(), suite.store(suite.targetPath()...), generator)

	_, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(generator.seen, 11)

	for i, snapshots := range generator.seen {
		snapshot, ok := snapshots["PEPEUSDT"]
		suite.Require().True(ok)
		suite.Equal(suite.start.Add(time.Duration(i)*time.Minute), snapshot.AsOf)

		for _, view := range []types.MarketSnapshot{snapshot.Fine, snapshot.Medium, snapshot.Coarse} {
			suite.LessOrEqual(view.Len(), 5)

			span, err := view.Interval.Duration()
			suite.Require().NoError(err)

			for _, c := range view.Candles {
				suite.False(c.Timestamp.Add(span).After(snapshot.AsOf), "%s candle %s still open at step %s", view.Interval, c.Timestamp, snapshot.AsOf)
			}
		}

		// the newest fine candle is the one that just closed
		suite.True(snapshot.Fine.Candles[snapshot.Fine.Len()-1].Timestamp.Add(time.Minute).Equal(snapshot.AsOf))
	}
}

func (suite *BacktestEngineV1TestSuite) TestBarOpeningAtEntryIsNotSeenByTheGenerator() {
	// the candle opening at the signal step already reaches the target, but it closes a minute later
	spike := suite.candle(suite.start, 150, 145, 149.5)
	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {suite.referenceSignal()}})
	e := suite.newEngine(suite.config(), suite.store(spike), generator)

	var closed []types.ClosedTrade
	onTrade := engine_types.OnTradeClosedCallback(func(trade types.ClosedTrade) {
		closed = append(closed, trade)
	})

	_, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{OnTradeClosed: &onTrade})
	suite.Require().NoError(err)

	first := generator.seen[0]["PEPEUSDT"]
	suite.Equal(145.2, first.Fine.LastClose())

	suite.Require().Len(closed, 1)
	suite.Equal(types.ExitReasonTargetHit, closed[0].ExitReason)
	suite.Equal(suite.start.Add(time.Minute), closed[0].ExitTimestamp)
}

func (suite *BacktestEngineV1TestSuite) TestCancelledBeforeStart() {
	generator := suite.scripted(nil)
	e := suite.newEngine(suite.config(), suite.store(), generator)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := e.Run(ctx, engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(types.CompletionCancelled, summary.Completion)
	suite.Equal(0, summary.Steps)
	suite.Empty(generator.seen)
	suite.FileExists(filepath.Join(suite.resultsDir, SummaryFileName))
}

func (suite *BacktestEngineV1TestSuite) TestCancelledMidRunClosesPositions() {
	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {suite.referenceSignal()}})
	e := suite.newEngine(suite.config(), suite.store(suite.targetPath()...), generator)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	onStep := engine_types.OnStepCallback(func(current int, total int) error {
		if current == 1 {
			cancel()
		}

		return nil
	})

	var closed []types.ClosedTrade
	onTrade := engine_types.OnTradeClosedCallback(func(trade types.ClosedTrade) {
		closed = append(closed, trade)
	})

	summary, err := e.Run(ctx, engine_types.LifecycleCallbacks{OnStep: &onStep, OnTradeClosed: &onTrade})
	suite.Require().NoError(err)

	suite.Equal(types.CompletionCancelled, summary.Completion)
	suite.Equal(2, summary.Steps)
	suite.Require().Len(closed, 1)
	suite.Equal(types.ExitReasonSimulationEnded, closed[0].ExitReason)
	suite.InDelta(146.8, closed[0].ExitPrice, 1e-9)
	suite.Equal(1, summary.ExitReasons[types.ExitReasonSimulationEnded])
}

func (suite *BacktestEngineV1TestSuite) TestStepCallbackErrorStopsRun() {
	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {suite.referenceSignal()}})
	e := suite.newEngine(suite.config(), suite.store(suite.targetPath()...), generator)

	stop := errors.New("stop")
	onStep := engine_types.OnStepCallback(func(current int, total int) error {
		return stop
	})

	var endErr error
	onEnd := engine_types.OnBacktestEndCallback(func(err error) {
		endErr = err
	})

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{OnStep: &onStep, OnBacktestEnd: &onEnd})
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeCallbackFailed))
	suite.ErrorIs(err, stop)
	suite.Equal(err, endErr)

	suite.Equal(types.CompletionCancelled, summary.Completion)
	suite.Equal(1, summary.Steps)
	suite.Equal(1, summary.ExitReasons[types.ExitReasonSimulationEnded])
	suite.FileExists(filepath.Join(suite.resultsDir, SummaryFileName))
}

func (suite *BacktestEngineV1TestSuite) TestTradeCap() {
	config := suite.config()
	config.MaxTrades = 1

	generator := suite.scripted(map[time.Time][]types.Signal{suite.start: {suite.referenceSignal()}})
	e := suite.newEngine(config, suite.store(suite.targetPath()...), generator)

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(types.CompletionTradeCap, summary.Completion)
	suite.Equal(3, summary.Steps)
	suite.Equal(suite.start.Add(2*time.Minute), summary.EndTime)
	suite.Equal(1, summary.TradeResult.NumberOfTrades)
}

func (suite *BacktestEngineV1TestSuite) TestGeneratorFailuresAreContained() {
	tests := []struct {
		name     string
		generate func(map[string]types.MultiTimeframeSnapshot, string) ([]types.Signal, error)
	}{
		{
			name: "error",
			generate: func(map[string]types.MultiTimeframeSnapshot, string) ([]types.Signal, error) {
				return nil, errors.New("indicator blew up")
			},
		},
		{
			name: "panic",
			generate: func(map[string]types.MultiTimeframeSnapshot, string) ([]types.Signal, error) {
				panic("index out of range")
			},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.resultsDir = filepath.Join(suite.T().TempDir(), tc.name)

			generator := mocks.NewMockSignalGenerator(suite.ctrl)
			generator.EXPECT().Name().Return("broken").AnyTimes()
			generator.EXPECT().Generate(gomock.Any(), "BULL").DoAndReturn(tc.generate).Times(11)

			e := suite.newEngine(suite.config(), suite.store(), generator)

			summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
			suite.Require().NoError(err)

			suite.Equal(types.CompletionFinished, summary.Completion)
			suite.Equal(11, summary.Steps)
			suite.Equal(11, summary.Skips.GeneratorFailures)
			suite.Equal(0, summary.TradeResult.NumberOfTrades)
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestNoLoadableData() {
	config := suite.config()
	config.Symbols = []string{"PEPEUSDT", "WIFUSDT"}

	generator := mocks.NewMockSignalGenerator(suite.ctrl)
	generator.EXPECT().Generate(gomock.Any(), gomock.Any()).Times(0)

	var excluded []string
	onExcluded := engine_types.OnSymbolExcludedCallback(func(symbol string, reason error) {
		suite.True(pkgerrors.HasCode(reason, pkgerrors.ErrCodeDataNotFound))
		excluded = append(excluded, symbol)
	})

	e := suite.newEngine(config, datasource.NewInMemoryStore(), generator)

	_, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{OnSymbolExcluded: &onExcluded})
	suite.Require().Error(err)
	suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeNoLoadableData))
	suite.Equal([]string{"PEPEUSDT", "WIFUSDT"}, excluded)

	_, statErr := os.Stat(suite.resultsDir)
	suite.True(os.IsNotExist(statErr))
}

func (suite *BacktestEngineV1TestSuite) TestMissingTimeframeExcludesSymbol() {
	config := suite.config()
	config.Symbols = []string{"PEPEUSDT", "WIFUSDT"}

	store := suite.store()
	store.Add(suite.series("WIFUSDT", types.Interval1m, suite.start, suite.start.Add(10*time.Minute)))

	e := suite.newEngine(config, store, suite.scripted(nil))

	var reason error
	onExcluded := engine_types.OnSymbolExcludedCallback(func(symbol string, err error) {
		reason = err
	})

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{OnSymbolExcluded: &onExcluded})
	suite.Require().NoError(err)

	suite.Equal([]string{"PEPEUSDT"}, summary.Symbols)
	suite.Equal([]string{"WIFUSDT"}, summary.ExcludedSymbols)

	symbol, interval, ok := pkgerrors.DataLocation(reason)
	suite.True(ok)
	suite.Equal("WIFUSDT", symbol)
	suite.Equal("15m", interval)
}

func (suite *BacktestEngineV1TestSuite) TestSkips() {
	suite.Run("warm-up", func() {
		suite.resultsDir = filepath.Join(suite.T().TempDir(), "warmup")

		config := suite.config()
		config.StartTime = optional.Some(suite.start.Add(-5 * time.Minute))

		e := suite.newEngine(config, suite.store(), suite.scripted(nil))

		summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
		suite.Require().NoError(err)

		// at 11:55 no fine candle has closed, at 11:56 only one has
		suite.Equal(16, summary.Steps)
		suite.Equal(1, summary.Skips.MissingData)
		suite.Equal(1, summary.Skips.InsufficientData)
		suite.Equal(2, summary.Skips.StepsWithoutSnapshots)
	})

	suite.Run("stale fine data", func() {
		suite.resultsDir = filepath.Join(suite.T().TempDir(), "stale")

		s := suite.start
		store := datasource.NewInMemoryStore(
			// the last fine candle closes at 12:03
			suite.series("PEPEUSDT", types.Interval1m, s.Add(-5*time.Minute), s.Add(2*time.Minute)),
			suite.series("PEPEUSDT", types.Interval15m, s.Add(-time.Hour), s),
			suite.series("PEPEUSDT", types.Interval1h, s.Add(-3*time.Hour), s),
		)

		config := suite.config()
		config.EndTime = optional.Some(s.Add(5 * time.Minute))

		e := suite.newEngine(config, store, suite.scripted(nil))

		summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
		suite.Require().NoError(err)

		suite.Equal(6, summary.Steps)
		suite.Equal(2, summary.Skips.MissingData)
		suite.Equal(2, summary.Skips.StepsWithoutSnapshots)
	})

	suite.Run("24h aggregate unavailable", func() {
		suite.resultsDir = filepath.Join(suite.T().TempDir(), "aggregate")

		config := suite.config()
		config.Min24hQuoteVolume = 1000

		e := suite.newEngine(config, suite.store(), suite.scripted(nil))

		summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
		suite.Require().NoError(err)

		suite.Equal(11, summary.Skips.AggregateUnavailable)
	})
}

func (suite *BacktestEngineV1TestSuite) TestDefaultTimeRangeFollowsData() {
	config := suite.config()
	config.StartTime = optional.None[time.Time]()
	config.EndTime = optional.None[time.Time]()

	e := suite.newEngine(config, suite.store(), suite.scripted(nil))

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	// from the first fine open to the last fine close
	suite.Equal(suite.start.Add(-5*time.Minute), summary.StartTime)
	suite.Equal(suite.start.Add(11*time.Minute), summary.EndTime)
	suite.Equal(17, summary.Steps)
}

func (suite *BacktestEngineV1TestSuite) TestOutputFiles() {
	generator := suite.scripted(map[time.Time][]types.Signal{
		suite.start:                  {suite.referenceSignal()},
		suite.start.Add(time.Minute): {suite.referenceSignal()},
	})
	config := suite.config()
	config.MaxPortfolioHeatPct = 0.1

	e := suite.newEngine(config, suite.store(suite.targetPath()...), generator)

	summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
	suite.Require().NoError(err)

	for _, name := range []string{
		SummaryFileName,
		metrics.FileName,
		EventsFileName,
		TradesCSVFileName,
		TradesParquetFileName,
		EquityCSVFileName,
		EquityParquetFileName,
	} {
		suite.FileExists(filepath.Join(suite.resultsDir, name))
	}

	suite.Equal(filepath.Join(suite.resultsDir, TradesCSVFileName), summary.TradesFilePath)
	suite.Equal(filepath.Join(suite.resultsDir, EventsFileName), summary.EventsFilePath)

	stored, err := types.ReadSummary(filepath.Join(suite.resultsDir, SummaryFileName))
	suite.Require().NoError(err)
	suite.Equal(summary.ID, stored.ID)
	suite.Equal(summary.Rejections, stored.Rejections)

	content, err := os.ReadFile(filepath.Join(suite.resultsDir, metrics.FileName))
	suite.Require().NoError(err)
	suite.Contains(string(content), "pump_backtest_steps_total")
	suite.Contains(string(content), `reason="symbol_already_open"`)
}

func (suite *BacktestEngineV1TestSuite) TestRunPreconditions() {
	tests := []struct {
		name    string
		prepare func(e engine_types.Engine)
		code    pkgerrors.ErrorCode
	}{
		{
			name:    "not initialized",
			prepare: func(e engine_types.Engine) {},
			code:    pkgerrors.ErrCodeBacktestNotRunnable,
		},
		{
			name: "no data source",
			prepare: func(e engine_types.Engine) {
				suite.Require().NoError(e.Initialize(suite.encode(suite.config())))
			},
			code: pkgerrors.ErrCodeBacktestNoDataPaths,
		},
		{
			name: "no results folder",
			prepare: func(e engine_types.Engine) {
				suite.Require().NoError(e.Initialize(suite.encode(suite.config())))
				suite.Require().NoError(e.SetDataSource(suite.store()))
			},
			code: pkgerrors.ErrCodeBacktestNoResultsDir,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())
			tc.prepare(e)

			_, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
			suite.Require().Error(err)
			suite.True(pkgerrors.HasCode(err, tc.code), "got %v", err)
		})
	}
}

func (suite *BacktestEngineV1TestSuite) TestInitialize() {
	suite.Run("builds the pump generator from generator settings", func() {
		config := suite.config()
		config.Generator = map[string]any{"min_stop_pct": 0.02, "min_score": 40.0}

		e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())
		suite.Require().NoError(e.Initialize(suite.encode(config)))
		suite.Require().NoError(e.SetDataSource(suite.store()))
		suite.Require().NoError(e.SetResultsFolder(suite.resultsDir))

		summary, err := e.Run(context.Background(), engine_types.LifecycleCallbacks{})
		suite.Require().NoError(err)
		suite.Equal(0, summary.TradeResult.NumberOfTrades)
	})

	suite.Run("rejects unknown generator settings", func() {
		config := suite.config()
		config.Generator = map[string]any{"no_such_key": 1}

		e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())
		err := e.Initialize(suite.encode(config))
		suite.Require().Error(err)
		suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidConfiguration))
	})

	suite.Run("rejects invalid config", func() {
		e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())
		err := e.Initialize("initial_equity: -1")
		suite.Require().Error(err)
		suite.True(pkgerrors.HasCode(err, pkgerrors.ErrCodeInvalidConfiguration))
	})

	suite.Run("rejects nil collaborators", func() {
		e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())
		suite.Error(e.SetDataSource(nil))
		suite.Error(e.SetGenerator(nil))
	})
}

func (suite *BacktestEngineV1TestSuite) TestGetConfigSchema() {
	e := NewBacktestEngineV1WithLogger(logger.NewNopLogger())

	schema, err := e.GetConfigSchema()
	suite.Require().NoError(err)
	suite.Contains(schema, "risk_per_trade_pct")
	suite.Contains(schema, "scan_interval")
}
