package types

import (
	"fmt"
	"time"
)

// RejectionReason is why the ledger refused a signal. Rejections are outcomes, not errors.
type RejectionReason string

const (
	RejectionInvalidSignal         RejectionReason = "invalid_signal"
	RejectionDailyLossBreached     RejectionReason = "daily_loss_breached"
	RejectionSymbolAlreadyOpen     RejectionReason = "symbol_already_open"
	RejectionConcurrencyLimit      RejectionReason = "concurrency_limit"
	RejectionPortfolioHeatExceeded RejectionReason = "portfolio_heat_exceeded"
	RejectionPositionTooSmall      RejectionReason = "position_too_small"
	RejectionMaxEntriesPerStep     RejectionReason = "max_entries_per_step"
)

// Rejection carries the reason and context for a refused signal.
type Rejection struct {
	Symbol    string
	Timestamp time.Time
	Reason    RejectionReason
	Detail    string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return fmt.Sprintf("%s rejected: %s", r.Symbol, r.Reason)
	}

	return fmt.Sprintf("%s rejected: %s (%s)", r.Symbol, r.Reason, r.Detail)
}

// SkipReason is why a symbol was left out of a step's snapshot map.
type SkipReason string

const (
	SkipInsufficientData     SkipReason = "insufficient_data"
	SkipMissingData          SkipReason = "missing_data"
	SkipAggregateUnavailable SkipReason = "aggregate_unavailable"
	SkipLowQuoteVolume       SkipReason = "low_quote_volume"
)
