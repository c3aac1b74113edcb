// Package strategy holds the signal generators the backtest engine can replay.
package strategy

import "github.com/rxtech-lab/pump-backtest/internal/types"

// SignalGenerator turns one step's snapshots into candidate entries.
//
// Implementations must be deterministic: the same snapshots and regime always
// produce the same signals. Snapshots only contain data visible at the step time.
type SignalGenerator interface {
	// Name labels the generator in logs and on the trade log.
	Name() string
	// Generate returns the candidate signals for the step. Order does not matter,
	// the engine ranks them by score before admission.
	Generate(snapshots map[string]types.MultiTimeframeSnapshot, regime string) ([]types.Signal, error)
}
