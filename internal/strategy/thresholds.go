package strategy

import "strings"

// Thresholds are the regime-dependent gates of the pump generator.
// Returns are in percent, so 5 means +5% over 24 hours.
type Thresholds struct {
	MinQuoteVolume float64 `yaml:"min_24h_quote_volume"`
	MinScore       float64 `yaml:"min_score"`
	MinRVOL        float64 `yaml:"min_rvol"`
	MinMomentum    float64 `yaml:"min_momentum"`
	Min24hReturn   float64 `yaml:"min_24h_return"`
	Max24hReturn   float64 `yaml:"max_24h_return"`

	// Relaxed gates for symbols whose relative volume marks them as a new listing.
	NewListingMinRVOL     float64 `yaml:"new_listing_min_rvol"`
	NewListingMinScore    float64 `yaml:"new_listing_min_score"`
	NewListingMinMomentum float64 `yaml:"new_listing_min_momentum"`
}

const (
	RegimeStrongBull = "STRONG_BULL"
	RegimeSideways   = "SIDEWAYS"
	RegimeMildBear   = "MILD_BEAR"
	RegimeFullBear   = "FULL_BEAR"
)

var regimeThresholds = map[string]Thresholds{
	RegimeStrongBull: {
		MinQuoteVolume:        100_000,
		MinScore:              20,
		MinRVOL:               1.5,
		MinMomentum:           5,
		Min24hReturn:          5,
		Max24hReturn:          1500,
		NewListingMinRVOL:     1.2,
		NewListingMinScore:    15,
		NewListingMinMomentum: 3,
	},
	RegimeSideways: {
		MinQuoteVolume:        150_000,
		MinScore:              35,
		MinRVOL:               1.8,
		MinMomentum:           8,
		Min24hReturn:          5,
		Max24hReturn:          400,
		NewListingMinRVOL:     1.5,
		NewListingMinScore:    25,
		NewListingMinMomentum: 5,
	},
	RegimeMildBear: {
		MinQuoteVolume:        200_000,
		MinScore:              45,
		MinRVOL:               2.0,
		MinMomentum:           10,
		Min24hReturn:          5,
		Max24hReturn:          400,
		NewListingMinRVOL:     1.8,
		NewListingMinScore:    35,
		NewListingMinMomentum: 8,
	},
	RegimeFullBear: {
		MinQuoteVolume:        300_000,
		MinScore:              55,
		MinRVOL:               2.5,
		MinMomentum:           12,
		Min24hReturn:          5,
		Max24hReturn:          400,
		NewListingMinRVOL:     2.0,
		NewListingMinScore:    45,
		NewListingMinMomentum: 10,
	},
}

var regimeAliases = map[string]string{
	"BULL":    RegimeStrongBull,
	"PUMPY":   RegimeStrongBull,
	"NEUTRAL": RegimeSideways,
	"BEAR":    RegimeFullBear,
}

// CanonicalRegime maps aliases onto the four threshold sets. Unknown labels fall back to SIDEWAYS.
func CanonicalRegime(regime string) string {
	regime = strings.ToUpper(strings.TrimSpace(regime))

	if alias, ok := regimeAliases[regime]; ok {
		return alias
	}

	if _, ok := regimeThresholds[regime]; ok {
		return regime
	}

	return RegimeSideways
}

// ThresholdsFor returns the gates for a regime label.
func ThresholdsFor(regime string) Thresholds {
	return regimeThresholds[CanonicalRegime(regime)]
}

// ThresholdOverrides replaces individual gates regardless of regime. Nil fields keep the regime value.
type ThresholdOverrides struct {
	MinQuoteVolume *float64 `yaml:"min_24h_quote_volume" validate:"omitempty,gte=0"`
	MinScore       *float64 `yaml:"min_score" validate:"omitempty,gte=0"`
	MinRVOL        *float64 `yaml:"min_rvol" validate:"omitempty,gte=0"`
	MinMomentum    *float64 `yaml:"min_momentum"`
	Min24hReturn   *float64 `yaml:"min_24h_return"`
	Max24hReturn   *float64 `yaml:"max_24h_return"`
}

// Apply returns t with the set overrides written over it.
func (o ThresholdOverrides) Apply(t Thresholds) Thresholds {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	set(&t.MinQuoteVolume, o.MinQuoteVolume)
	set(&t.MinScore, o.MinScore)
	set(&t.MinRVOL, o.MinRVOL)
	set(&t.MinMomentum, o.MinMomentum)
	set(&t.Min24hReturn, o.Min24hReturn)
	set(&t.Max24hReturn, o.Max24hReturn)

	return t
}
