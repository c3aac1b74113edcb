package types

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pump-backtest/pkg/errors"
)

type Side string

const (
	SideLong Side = "LONG"
)

// TargetRung is one step of a take-profit ladder.
// Fraction is the share of the initial position size filled at Price.
type TargetRung struct {
	Price    float64 `yaml:"price" json:"price" validate:"gt=0"`
	Fraction float64 `yaml:"fraction" json:"fraction" validate:"gt=0,lte=1"`
}

// TrailingParams configures a trailing stop for one position.
type TrailingParams struct {
	// ActivationPct is the favorable move above entry (0.02 = 2%) before trailing starts.
	ActivationPct float64 `yaml:"activation_pct" json:"activation_pct" validate:"gte=0"`
	// DistancePct is the trail distance below the peak (0.35 = 35%).
	DistancePct float64 `yaml:"distance_pct" json:"distance_pct" validate:"gt=0,lt=1"`
	// Delay is the minimum time in the trade before trailing starts.
	Delay time.Duration `yaml:"delay" json:"delay" validate:"gte=0"`
}

// Signal is a candidate long entry produced by a signal generator for one step.
type Signal struct {
	Symbol string `yaml:"symbol" json:"symbol" validate:"required"`
	Side   Side   `yaml:"side" json:"side" validate:"required,oneof=LONG"`
	// Engine names the generator that produced the signal, carried to the trade log.
	Engine     string       `yaml:"engine" json:"engine"`
	Score      float64      `yaml:"score" json:"score" validate:"gte=0"`
	EntryPrice float64      `yaml:"entry_price" json:"entry_price" validate:"gt=0"`
	StopPrice  float64      `yaml:"stop_price" json:"stop_price" validate:"gt=0,ltfield=EntryPrice"`
	Targets    []TargetRung `yaml:"targets" json:"targets" validate:"required,min=1,dive"`
	// Trailing overrides the configured trailing stop when set.
	Trailing optional.Option[TrailingParams] `yaml:"trailing" json:"trailing"`
	// MaxHold overrides the configured max-hold duration when set.
	MaxHold optional.Option[time.Duration] `yaml:"max_hold" json:"max_hold"`
	// Metadata is opaque to the engine and copied onto the closed trade.
	Metadata map[string]any `yaml:"metadata" json:"metadata"`
}

// Validate checks the struct tags and the ladder shape: every rung above
// entry, strictly ascending, and fractions summing to at most one.
func (s *Signal) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid signal", err)
	}

	if s.Trailing.IsSome() {
		trailing := s.Trailing.Unwrap()
		if err := validate.Struct(trailing); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSignal, "invalid trailing parameters", err)
		}
	}

	if s.MaxHold.IsSome() && s.MaxHold.Unwrap() <= 0 {
		return errors.Newf(errors.ErrCodeInvalidSignal, "max hold must be positive, got %s", s.MaxHold.Unwrap())
	}

	total := 0.0
	rungs := s.SortedTargets()

	for i, rung := range rungs {
		if rung.Price <= s.EntryPrice {
			return errors.Newf(errors.ErrCodeInvalidSignal, "target %.8f is not above entry %.8f", rung.Price, s.EntryPrice)
		}

		if i > 0 && rung.Price == rungs[i-1].Price {
			return errors.Newf(errors.ErrCodeInvalidSignal, "duplicate target price %.8f", rung.Price)
		}

		total += rung.Fraction
	}

	if total > 1+1e-9 {
		return errors.Newf(errors.ErrCodeInvalidSignal, "target fractions sum to %.4f, above 1", total)
	}

	return nil
}

// SortedTargets returns a copy of the ladder in ascending price order.
func (s *Signal) SortedTargets() []TargetRung {
	rungs := make([]TargetRung, len(s.Targets))
	copy(rungs, s.Targets)
	sort.SliceStable(rungs, func(i, j int) bool {
		return rungs[i].Price < rungs[j].Price
	})

	return rungs
}

// StopDistancePct is the fractional distance from a fill at entry down to the stop.
// A non-positive entry yields zero.
func (s *Signal) StopDistancePct(entry float64) float64 {
	if entry <= 0 {
		return 0
	}

	return (entry - s.StopPrice) / entry
}
