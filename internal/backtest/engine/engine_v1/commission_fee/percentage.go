package commission_fee

import "github.com/shopspring/decimal"

// PercentageCommissionFee charges a fixed share of every fill's notional.
type PercentageCommissionFee struct {
	rate decimal.Decimal
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{
		rate: decimal.NewFromFloat(rate),
	}
}

// Calculate returns notional * rate. Non-positive notionals cost nothing.
func (c *PercentageCommissionFee) Calculate(notional float64) float64 {
	if notional <= 0 {
		return 0
	}

	return decimal.NewFromFloat(notional).Mul(c.rate).InexactFloat64()
}

func (c *PercentageCommissionFee) Rate() float64 {
	return c.rate.InexactFloat64()
}
