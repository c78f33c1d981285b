package orderline

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/money"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

const codeDiscount = "discount"

// DiscountCollector aggregates all per-item discounts into a single negative
// line with a weighted-average tax rate.
type DiscountCollector struct{}

func NewDiscountCollector() *DiscountCollector { return &DiscountCollector{} }

func (c *DiscountCollector) Code() string { return codeDiscount }

func (c *DiscountCollector) Collect(object quotedomain.Priceable, acc *Accumulator) error {
	if object == nil {
		return ErrNilPriceable
	}
	amount, _, _ := blendDiscount(object, acc.SeparateTaxLine())
	if amount.IsZero() {
		return nil
	}
	acc.AddTotal(codeDiscount, -money.ToMinor(amount))
	return nil
}

func (c *DiscountCollector) Fetch(object quotedomain.Priceable, acc *Accumulator) ([]Line, error) {
	if object == nil {
		return nil, ErrNilPriceable
	}

	separate := acc.SeparateTaxLine()
	amount, taxAmount, rate := blendDiscount(object, separate)
	if amount.IsZero() {
		return nil, nil
	}

	name := "Discount"
	if total, ok := object.TotalByCode(quotedomain.TotalCodeDiscount); ok && total.Title != "" {
		name = total.Title
	}

	line := Line{
		Type:        TypeDiscount,
		Reference:   codeDiscount,
		Name:        name,
		Quantity:    1,
		UnitPrice:   -money.ToMinor(amount),
		TotalAmount: -money.ToMinor(amount),
	}
	if !separate {
		line.TaxRate = money.RateToMinor(rate)
		line.TotalTaxAmount = -money.ToMinor(taxAmount)
	}
	return []Line{line}, nil
}

// blendDiscount sums the per-item discounts and blends their tax rates into a
// weighted average: rate = Σ(discount_i × rate_i) / Σ(discount_i). Items with
// a zero discount are excluded from the denominator entirely, mirroring the
// division guard of the host's calculation.
func blendDiscount(object quotedomain.Priceable, separateTax bool) (amount, taxAmount, rate decimal.Decimal) {
	hundredth := decimal.NewFromInt(100)

	var exclSum, weighted decimal.Decimal
	for _, b := range billableItems(object) {
		d := b.item.DiscountAmount.Mul(b.multiplier)
		if !d.IsPositive() {
			continue
		}
		r := effectiveTaxRate(b.item)
		exclSum = exclSum.Add(d)
		weighted = weighted.Add(d.Mul(r))
	}
	if exclSum.IsZero() {
		return decimal.Zero, decimal.Zero, decimal.Zero
	}

	rate = weighted.Div(exclSum)
	taxAmount = exclSum.Mul(rate).Div(hundredth)

	if separateTax {
		// Tax reported as its own line: the discount stays tax-exclusive.
		return exclSum, decimal.Zero, rate
	}
	return exclSum.Add(taxAmount), taxAmount, rate
}
