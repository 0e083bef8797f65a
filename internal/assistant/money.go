package assistant

import "github.com/shopspring/decimal"

// formatMoney renders amounts the way answers quote them: "$600", "$42.5",
// "-$12.75". Values are rounded to cents.
func formatMoney(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	if d.IsNegative() {
		return "-$" + d.Neg().String()
	}
	return "$" + d.String()
}

func roundCents(amount float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Round(2).Float64()
	return f
}
