package engine

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/log"
	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// BacktestLogTestSuite is a test suite for BacktestLog
type BacktestLogTestSuite struct {
	suite.Suite
	eventLog *BacktestLog
}

func TestBacktestLogSuite(t *testing.T) {
	suite.Run(t, new(BacktestLogTestSuite))
}

func (suite *BacktestLogTestSuite) SetupSuite() {
	eventLog, err := NewBacktestLog(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.eventLog = eventLog
}

func (suite *BacktestLogTestSuite) TearDownSuite() {
	if suite.eventLog != nil {
		suite.eventLog.Close()
	}
}

func (suite *BacktestLogTestSuite) SetupTest() {
	suite.Require().NoError(suite.eventLog.Cleanup())
}

func (suite *BacktestLogTestSuite) TestRecordAndEvents() {
	testCases := []struct {
		name  string
		event log.Event
	}{
		{
			name: "skip with fields",
			event: log.Event{
				Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
				Symbol:    "PEPEUSDT",
				Kind:      log.EventKindSkip,
				Reason:    string(types.SkipInsufficientData),
				Detail:    "15m has 12 of 20 candles",
				Fields:    map[string]string{"interval": "15m"},
			},
		},
		{
			name: "generator failure without symbol",
			event: log.Event{
				Timestamp: time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
				Symbol:    "",
				Kind:      log.EventKindGeneratorFailure,
				Reason:    "panic",
				Detail:    "index out of range",
				Fields:    nil,
			},
		},
	}

	for _, tc := range testCases {
		suite.Require().NoError(suite.eventLog.Record(tc.event), tc.name)
	}

	events, err := suite.eventLog.Events()
	suite.Require().NoError(err)
	suite.Require().Len(events, len(testCases))

	for i, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.Equal(tc.event.Timestamp, events[i].Timestamp)
			suite.Equal(tc.event.Symbol, events[i].Symbol)
			suite.Equal(tc.event.Kind, events[i].Kind)
			suite.Equal(tc.event.Reason, events[i].Reason)
			suite.Equal(tc.event.Detail, events[i].Detail)
			suite.Equal(tc.event.Fields, events[i].Fields)
		})
	}
}

func (suite *BacktestLogTestSuite) TestRejectionsByKindAndCount() {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rejections := []types.Rejection{
		{Symbol: "PEPEUSDT", Timestamp: ts, Reason: types.RejectionSymbolAlreadyOpen},
		{Symbol: "WIFUSDT", Timestamp: ts, Reason: types.RejectionPortfolioHeatExceeded, Detail: "over budget"},
		{Symbol: "BONKUSDT", Timestamp: ts, Reason: types.RejectionPortfolioHeatExceeded},
	}

	for _, rejection := range rejections {
		suite.Require().NoError(suite.eventLog.RecordRejection(rejection))
	}

	suite.Require().NoError(suite.eventLog.Record(log.Event{
		Timestamp: ts,
		Symbol:    "PEPEUSDT",
		Kind:      log.EventKindSkip,
		Reason:    string(types.SkipMissingData),
	}))

	stored, err := suite.eventLog.EventsByKind(log.EventKindRejection)
	suite.Require().NoError(err)
	suite.Len(stored, 3)
	suite.Equal("WIFUSDT", stored[1].Symbol)
	suite.Equal("over budget", stored[1].Detail)

	counts, err := suite.eventLog.CountByReason(log.EventKindRejection)
	suite.Require().NoError(err)
	suite.Equal(map[string]int{
		string(types.RejectionSymbolAlreadyOpen):     1,
		string(types.RejectionPortfolioHeatExceeded): 2,
	}, counts)
}

func (suite *BacktestLogTestSuite) TestWrite() {
	suite.Require().NoError(suite.eventLog.Record(log.Event{
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Symbol:    "PEPEUSDT",
		Kind:      log.EventKindSkip,
		Reason:    string(types.SkipLowQuoteVolume),
	}))

	dir := filepath.Join(suite.T().TempDir(), "results")

	path, err := suite.eventLog.Write(dir)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(dir, EventsFileName), path)

	_, err = os.Stat(path)
	suite.Require().NoError(err)

	db, err := sql.Open("duckdb", "")
	suite.Require().NoError(err)
	defer db.Close()

	var count int
	suite.Require().NoError(db.QueryRow("SELECT COUNT(*) FROM read_parquet('" + path + "')").Scan(&count))
	suite.Equal(1, count)
}

func (suite *BacktestLogTestSuite) TestNilLog() {
	var eventLog *BacktestLog

	suite.Error(eventLog.Record(log.Event{}))

	_, err := eventLog.Events()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestStateNil))

	_, err = eventLog.EventsByKind(log.EventKindSkip)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestStateNil))

	_, err = eventLog.CountByReason(log.EventKindRejection)
	suite.Error(err)

	_, err = eventLog.Write(suite.T().TempDir())
	suite.Error(err)
	suite.NoError(eventLog.Close())
}
