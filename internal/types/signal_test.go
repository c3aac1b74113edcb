package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func validSignal() Signal {
	return Signal{
		Symbol:     "PEPEUSDT",
		Side:       SideLong,
		Engine:     "pump",
		Score:      60,
		EntryPrice: 145.20,
		StopPrice:  143.10,
		Targets: []TargetRung{
			{Price: 151.50, Fraction: 0.5},
			{Price: 148.35, Fraction: 0.5},
		},
	}
}

func (suite *SignalTestSuite) TestValidate() {
	tests := []struct {
		name    string
		mutate  func(s *Signal)
		wantErr bool
	}{
		{name: "valid ladder", mutate: func(s *Signal) {}},
		{name: "missing symbol", mutate: func(s *Signal) { s.Symbol = "" }, wantErr: true},
		{name: "short side", mutate: func(s *Signal) { s.Side = "SHORT" }, wantErr: true},
		{name: "stop above entry", mutate: func(s *Signal) { s.StopPrice = 146 }, wantErr: true},
		{name: "stop equal to entry", mutate: func(s *Signal) { s.StopPrice = s.EntryPrice }, wantErr: true},
		{name: "no targets", mutate: func(s *Signal) { s.Targets = nil }, wantErr: true},
		{name: "target below entry", mutate: func(s *Signal) { s.Targets[0].Price = 140 }, wantErr: true},
		{name: "fractions above one", mutate: func(s *Signal) { s.Targets[0].Fraction = 0.8 }, wantErr: true},
		{name: "duplicate rung", mutate: func(s *Signal) { s.Targets[1].Price = s.Targets[0].Price }, wantErr: true},
		{
			name: "invalid trailing distance",
			mutate: func(s *Signal) {
				s.Trailing = optional.Some(TrailingParams{DistancePct: 1.5})
			},
			wantErr: true,
		},
		{
			name: "valid trailing",
			mutate: func(s *Signal) {
				s.Trailing = optional.Some(TrailingParams{ActivationPct: 0.01, DistancePct: 0.05, Delay: 10 * time.Minute})
			},
		},
		{
			name:    "non positive max hold",
			mutate:  func(s *Signal) { s.MaxHold = optional.Some(time.Duration(0)) },
			wantErr: true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			signal := validSignal()
			tc.mutate(&signal)

			err := signal.Validate()
			if tc.wantErr {
				suite.Error(err)
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidSignal))

				return
			}

			suite.NoError(err)
		})
	}
}

func (suite *SignalTestSuite) TestSortedTargets() {
	signal := validSignal()
	sorted := signal.SortedTargets()

	suite.Equal(148.35, sorted[0].Price)
	suite.Equal(151.50, sorted[1].Price)
	// the original ladder is left untouched
	suite.Equal(151.50, signal.Targets[0].Price)
}

func (suite *SignalTestSuite) TestStopDistancePct() {
	signal := validSignal()
	suite.InDelta(2.10/145.20, signal.StopDistancePct(signal.EntryPrice), 1e-12)
	suite.InDelta(2.20/145.30, signal.StopDistancePct(145.30), 1e-12)
	suite.Equal(0.0, signal.StopDistancePct(0))
}

func (suite *SignalTestSuite) TestPositionRisk() {
	position := Position{
		EntryPrice:       100,
		InitialSize:      50,
		Size:             25,
		InitialStopPrice: 98,
		CurrentStopPrice: 98,
	}

	suite.InDelta(1.0, position.InitialRisk(), 1e-12)
	suite.InDelta(0.5, position.OpenRisk(), 1e-12)
	suite.InDelta(2.5, position.UnrealizedPnL(110), 1e-12)

	position.CurrentStopPrice = 100
	suite.Equal(0.0, position.OpenRisk())
}

func (suite *SignalTestSuite) TestIntervalDuration() {
	d, err := Interval15m.Duration()
	suite.NoError(err)
	suite.Equal(15*time.Minute, d)

	_, err = Interval("7m").Duration()
	suite.Error(err)
}
