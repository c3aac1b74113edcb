package engine

import (
	"errors"
	"testing"

	"github.com/rxtech-lab/pump-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type EngineTestSuite struct {
	suite.Suite
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) TestRunStateConstants() {
	suite.Equal(RunState("INITIALIZING"), RunStateInitializing)
	suite.Equal(RunState("RUNNING"), RunStateRunning)
	suite.Equal(RunState("COMPLETED"), RunStateCompleted)
}

func (suite *EngineTestSuite) TestOnStepCallbackWithProgress() {
	var progress []int
	callback := OnStepCallback(func(current int, total int) error {
		progress = append(progress, current)
		return nil
	})

	for i := 1; i <= 5; i++ {
		err := callback(i, 5)
		suite.NoError(err)
	}

	suite.Equal([]int{1, 2, 3, 4, 5}, progress)
}

func (suite *EngineTestSuite) TestOnStepCallbackCanAbort() {
	stop := errors.New("stop")
	callback := OnStepCallback(func(current int, total int) error {
		if current == 3 {
			return stop
		}

		return nil
	})

	suite.NoError(callback(2, 5))
	suite.ErrorIs(callback(3, 5), stop)
}

func (suite *EngineTestSuite) TestLifecycleCallbacksAreOptional() {
	var closed []types.ClosedTrade
	onTrade := OnTradeClosedCallback(func(trade types.ClosedTrade) {
		closed = append(closed, trade)
	})

	callbacks := LifecycleCallbacks{OnTradeClosed: &onTrade}

	suite.Nil(callbacks.OnBacktestStart)
	suite.Nil(callbacks.OnStep)
	suite.Require().NotNil(callbacks.OnTradeClosed)

	(*callbacks.OnTradeClosed)(types.ClosedTrade{Symbol: "PEPEUSDT"})
	suite.Len(closed, 1)
}
