package strategy

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ThresholdsTestSuite struct {
	suite.Suite
}

func TestThresholdsSuite(t *testing.T) {
	suite.Run(t, new(ThresholdsTestSuite))
}

func (suite *ThresholdsTestSuite) TestCanonicalRegime() {
	tests := []struct {
		regime   string
		expected string
	}{
		{"STRONG_BULL", RegimeStrongBull},
		{"BULL", RegimeStrongBull},
		{"pumpy", RegimeStrongBull},
		{"SIDEWAYS", RegimeSideways},
		{"NEUTRAL", RegimeSideways},
		{"MILD_BEAR", RegimeMildBear},
		{"FULL_BEAR", RegimeFullBear},
		{" bear ", RegimeFullBear},
		{"", RegimeSideways},
		{"MOON", RegimeSideways},
	}

	for _, tc := range tests {
		suite.Run(tc.regime, func() {
			suite.Equal(tc.expected, CanonicalRegime(tc.regime))
		})
	}
}

func (suite *ThresholdsTestSuite) TestStrongBullAndSideways() {
	bull := ThresholdsFor(RegimeStrongBull)
	suite.Equal(100_000.0, bull.MinQuoteVolume)
	suite.Equal(20.0, bull.MinScore)
	suite.Equal(1.5, bull.MinRVOL)
	suite.Equal(5.0, bull.Min24hReturn)
	suite.Equal(1500.0, bull.Max24hReturn)

	sideways := ThresholdsFor(RegimeSideways)
	suite.Equal(150_000.0, sideways.MinQuoteVolume)
	suite.Equal(35.0, sideways.MinScore)
	suite.Equal(1.8, sideways.MinRVOL)
	suite.Equal(400.0, sideways.Max24hReturn)
}

func (suite *ThresholdsTestSuite) TestRegimesTightenTowardsBear() {
	order := []string{RegimeStrongBull, RegimeSideways, RegimeMildBear, RegimeFullBear}

	for i := 1; i < len(order); i++ {
		looser := ThresholdsFor(order[i-1])
		stricter := ThresholdsFor(order[i])

		suite.Less(looser.MinScore, stricter.MinScore, order[i])
		suite.Less(looser.MinQuoteVolume, stricter.MinQuoteVolume, order[i])
		suite.Less(looser.MinRVOL, stricter.MinRVOL, order[i])
		suite.LessOrEqual(stricter.Max24hReturn, looser.Max24hReturn, order[i])
	}
}

func (suite *ThresholdsTestSuite) TestNewListingGatesAreRelaxed() {
	for _, regime := range []string{RegimeStrongBull, RegimeSideways, RegimeMildBear, RegimeFullBear} {
		suite.Run(regime, func() {
			t := ThresholdsFor(regime)
			suite.LessOrEqual(t.NewListingMinRVOL, t.MinRVOL)
			suite.LessOrEqual(t.NewListingMinScore, t.MinScore)
			suite.LessOrEqual(t.NewListingMinMomentum, t.MinMomentum)
			suite.Greater(t.Max24hReturn, t.Min24hReturn)
		})
	}
}

func (suite *ThresholdsTestSuite) TestOverridesApply() {
	minScore := 10.0
	maxReturn := 250.0

	overridden := ThresholdOverrides{MinScore: &minScore, Max24hReturn: &maxReturn}.Apply(ThresholdsFor(RegimeSideways))

	suite.Equal(10.0, overridden.MinScore)
	suite.Equal(250.0, overridden.Max24hReturn)
	suite.Equal(ThresholdsFor(RegimeSideways).MinRVOL, overridden.MinRVOL)
	suite.Equal(35.0, ThresholdsFor(RegimeSideways).MinScore)
}
