package orders

import "github.com/shopspring/decimal"

var (
	// TaxRate is applied after the discount.
	TaxRate = decimal.RequireFromString("0.10")

	hundred = decimal.NewFromInt(100)
)

type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeTotals is pure; call it again whenever the lines or the discount change.
// The discount percent is clamped to [0, 100].
func ComputeTotals(lines []CartLine, discountPercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}
	discount := subtotal.Mul(ClampPercent(discountPercent)).Div(hundred)
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(TaxRate)
	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Tax:            tax,
		Total:          taxable.Add(tax),
	}
}

func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// ClampPrice floors negative prices at zero.
func ClampPrice(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}
