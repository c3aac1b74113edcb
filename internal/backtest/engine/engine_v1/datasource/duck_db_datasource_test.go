package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rxtech-lab/pump-backtest/internal/logger"
	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type DuckDBFileStoreTestSuite struct {
	suite.Suite
	dir   string
	store *DuckDBFileStore
	start time.Time
}

func TestDuckDBFileStoreSuite(t *testing.T) {
	suite.Run(t, new(DuckDBFileStoreTestSuite))
}

func (suite *DuckDBFileStoreTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
	suite.start = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var err error
	suite.store, err = NewDuckDBFileStore(suite.dir, logger.NewNopLogger())
	suite.Require().NoError(err)
}

func (suite *DuckDBFileStoreTestSuite) TearDownTest() {
	suite.NoError(suite.store.Close())
}

func (suite *DuckDBFileStoreTestSuite) writeCSV(name string, rows []string) {
	content := "timestamp,open,high,low,close,volume\n" + strings.Join(rows, "\n") + "\n"
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.dir, name), []byte(content), 0644))
}

func (suite *DuckDBFileStoreTestSuite) row(offset time.Duration, close float64) string {
	ms := suite.start.Add(offset).UnixMilli()

	return fmt.Sprintf("%d,%.2f,%.2f,%.2f,%.2f,%.1f", ms, close, close+1, close-1, close, 50.0)
}

func (suite *DuckDBFileStoreTestSuite) TestLoadCSV() {
	// rows out of order plus one duplicate timestamp
	suite.writeCSV("PEPEUSDT_15m.csv", []string{
		suite.row(30*time.Minute, 102),
		suite.row(0, 100),
		suite.row(15*time.Minute, 101),
		suite.row(15*time.Minute, 999),
	})

	series, err := suite.store.Load("PEPEUSDT", types.Interval15m)
	suite.Require().NoError(err)
	suite.Equal("PEPEUSDT", series.Symbol)
	suite.Equal(types.Interval15m, series.Interval)
	suite.Require().Equal(3, series.Len())
	suite.Equal(suite.start, series.Candles[0].Timestamp)
	suite.Equal(time.UTC, series.Candles[0].Timestamp.Location())
	suite.Equal(100.0, series.Candles[0].Close)
	suite.Equal(101.0, series.Candles[0].High)
	suite.Equal(99.0, series.Candles[0].Low)
	suite.Equal(50.0, series.Candles[0].Volume)
	suite.Equal(102.0, series.Candles[2].Close)

	// later loads are served from memory even if the file goes away
	suite.Require().NoError(os.Remove(filepath.Join(suite.dir, "PEPEUSDT_15m.csv")))
	again, err := suite.store.Load("PEPEUSDT", types.Interval15m)
	suite.NoError(err)
	suite.Equal(series.Len(), again.Len())
}

func (suite *DuckDBFileStoreTestSuite) TestLoadMissing() {
	_, err := suite.store.Load("WIFUSDT", types.Interval1h)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

func (suite *DuckDBFileStoreTestSuite) TestLoadMalformed() {
	suite.writeCSV("BADUSDT_1m.csv", []string{"not-a-number,1,2,3,4,5"})

	_, err := suite.store.Load("BADUSDT", types.Interval1m)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeQueryFailed))
}

func (suite *DuckDBFileStoreTestSuite) TestSliceThroughFileStore() {
	suite.writeCSV("PEPEUSDT_1h.csv", []string{
		suite.row(0, 100),
		suite.row(time.Hour, 101),
		suite.row(2*time.Hour, 102),
	})

	series, err := suite.store.Load("PEPEUSDT", types.Interval1h)
	suite.Require().NoError(err)

	snapshot := suite.store.SliceAsOf(series, suite.start.Add(150*time.Minute), 5)
	suite.Equal(2, snapshot.Len())
	suite.Equal(101.0, snapshot.LastClose())
}

func (suite *DuckDBFileStoreTestSuite) TestSymbols() {
	suite.writeCSV("PEPEUSDT_1m.csv", []string{suite.row(0, 1)})
	suite.writeCSV("PEPEUSDT_15m.csv", []string{suite.row(0, 1)})
	suite.writeCSV("BTC_USDT_1h.csv", []string{suite.row(0, 1)})
	suite.writeCSV("notes_final.csv", []string{suite.row(0, 1)})
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.dir, "README.md"), []byte("x"), 0644))

	symbols, err := suite.store.Symbols()
	suite.NoError(err)
	suite.Equal([]string{"BTC_USDT", "PEPEUSDT"}, symbols)
}

func (suite *DuckDBFileStoreTestSuite) TestNewStoreRejectsMissingDirectory() {
	_, err := NewDuckDBFileStore(filepath.Join(suite.dir, "missing"), logger.NewNopLogger())
	suite.True(errors.HasCode(err, errors.ErrCodeDataSourceUnavailable))
}
