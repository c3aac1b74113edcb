package commission_fee

// CommissionFee prices one fill.
type CommissionFee interface {
	// Calculate returns the fee in quote currency for a fill of the given quote notional.
	Calculate(notional float64) float64
	// Rate returns the proportional rate, or 0 for flat models.
	Rate() float64
}

// FeeModel selects a CommissionFee implementation from configuration.
type FeeModel string

const (
	FeeModelPercentage FeeModel = "percentage"
	FeeModelZero       FeeModel = "zero_commission"
)

// DefaultFeeRate is the taker fee charged on every fill, 0.1%.
const DefaultFeeRate = 0.001

var AllFeeModels = []any{
	FeeModelPercentage,
	FeeModelZero,
}

// GetCommissionFeeHandler returns the fee model for the configuration.
// Unknown models fall back to the percentage model.
func GetCommissionFeeHandler(model FeeModel, rate float64) CommissionFee {
	switch model {
	case FeeModelZero:
		return NewZeroCommissionFee()
	case FeeModelPercentage:
		return NewPercentageCommissionFee(rate)
	default:
		return NewPercentageCommissionFee(rate)
	}
}
