package orderline

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/money"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

const codeSurcharge = "surcharge"

// SurchargeCollector aggregates fixed-product-tax style per-item charges into
// one line. It only applies when the merchant displays the charge in the
// subtotal; otherwise the host folds it elsewhere and no line is emitted.
type SurchargeCollector struct{}

func NewSurchargeCollector() *SurchargeCollector { return &SurchargeCollector{} }

func (c *SurchargeCollector) Code() string { return codeSurcharge }

func (c *SurchargeCollector) Collect(object quotedomain.Priceable, acc *Accumulator) error {
	if object == nil {
		return ErrNilPriceable
	}
	if !acc.Merchant.DisplaySurchargeInSubtotal {
		return nil
	}
	amount, _, _ := sumSurcharges(object, acc.SeparateTaxLine())
	if amount.IsZero() {
		return nil
	}
	acc.AddTotal(codeSurcharge, money.ToMinor(amount))
	return nil
}

func (c *SurchargeCollector) Fetch(object quotedomain.Priceable, acc *Accumulator) ([]Line, error) {
	if object == nil {
		return nil, ErrNilPriceable
	}
	if !acc.Merchant.DisplaySurchargeInSubtotal {
		return nil, nil
	}

	separate := acc.SeparateTaxLine()
	amount, taxAmount, titles := sumSurcharges(object, separate)
	if amount.IsZero() {
		return nil, nil
	}

	name := strings.Join(titles, ", ")
	line := Line{
		Type:        TypeSurcharge,
		Reference:   name,
		Name:        name,
		Quantity:    1,
		UnitPrice:   money.ToMinor(amount),
		TotalAmount: money.ToMinor(amount),
	}
	if !separate && amount.GreaterThan(taxAmount) && taxAmount.IsPositive() {
		excl := amount.Sub(taxAmount)
		line.TotalTaxAmount = money.ToMinor(taxAmount)
		line.TaxRate = money.RateToMinor(taxAmount.Div(excl).Mul(decimal.NewFromInt(100)))
	}
	return []Line{line}, nil
}

// sumSurcharges adds up the applicable charges across all billable items and
// returns the union of their attribute names in first-seen order.
func sumSurcharges(object quotedomain.Priceable, separateTax bool) (amount, taxAmount decimal.Decimal, titles []string) {
	seen := map[string]bool{}
	for _, b := range billableItems(object) {
		for _, charge := range b.item.SurchargeLines {
			incl := charge.AmountInclTax.Mul(b.multiplier)
			excl := charge.Amount.Mul(b.multiplier)
			if separateTax {
				amount = amount.Add(excl)
			} else {
				amount = amount.Add(incl)
				taxAmount = taxAmount.Add(incl.Sub(excl))
			}
			title := strings.TrimSpace(charge.Title)
			if title != "" && !seen[title] {
				seen[title] = true
				titles = append(titles, title)
			}
		}
	}
	return amount, taxAmount, titles
}
