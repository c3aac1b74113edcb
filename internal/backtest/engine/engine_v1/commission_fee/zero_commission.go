package commission_fee

// ZeroCommissionFee charges nothing.
type ZeroCommissionFee struct{}

func NewZeroCommissionFee() CommissionFee {
	return &ZeroCommissionFee{}
}

func (c *ZeroCommissionFee) Calculate(notional float64) float64 {
	return 0.0
}

func (c *ZeroCommissionFee) Rate() float64 {
	return 0.0
}
