package orderline

import (
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/money"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

const codeShipping = "shipping"

// ShippingCollector emits the shipping fee line. An active shipping gateway
// override supersedes every host-side shipping tax computation: the
// provider's chosen option was never priced by the host's rate table.
type ShippingCollector struct{}

func NewShippingCollector() *ShippingCollector { return &ShippingCollector{} }

func (c *ShippingCollector) Code() string { return codeShipping }

func (c *ShippingCollector) Collect(object quotedomain.Priceable, acc *Accumulator) error {
	if object == nil {
		return ErrNilPriceable
	}
	if acc.Override != nil {
		acc.AddTotal(codeShipping, acc.Override.Amount)
		return nil
	}

	info := object.Shipping()
	if !hasShipping(info) {
		return nil
	}
	if acc.SeparateTaxLine() {
		acc.AddTotal(codeShipping, money.ToMinor(info.AmountExclTax))
	} else {
		acc.AddTotal(codeShipping, money.ToMinor(info.AmountInclTax))
	}
	return nil
}

func (c *ShippingCollector) Fetch(object quotedomain.Priceable, acc *Accumulator) ([]Line, error) {
	if object == nil {
		return nil, ErrNilPriceable
	}

	if override := acc.Override; override != nil {
		name := override.Name
		if name == "" {
			name = "Shipping"
		}
		return []Line{{
			Type:           TypeShippingFee,
			Reference:      codeShipping,
			Name:           name,
			Quantity:       1,
			UnitPrice:      override.Amount,
			TaxRate:        override.TaxRate,
			TotalAmount:    override.Amount,
			TotalTaxAmount: override.TaxAmount,
		}}, nil
	}

	info := object.Shipping()
	if !hasShipping(info) {
		return nil, nil
	}

	name := info.Description
	if name == "" {
		name = "Shipping"
	}

	line := Line{
		Type:      TypeShippingFee,
		Reference: codeShipping,
		Name:      name,
		Quantity:  1,
	}
	if acc.SeparateTaxLine() {
		line.UnitPrice = money.ToMinor(info.AmountExclTax)
		line.TotalAmount = line.UnitPrice
	} else {
		line.UnitPrice = money.ToMinor(info.AmountInclTax)
		line.TotalAmount = line.UnitPrice
		line.TotalTaxAmount = money.ToMinor(info.TaxAmount)
		line.TaxRate = money.RateToMinor(shippingTaxRate(info))
	}
	return []Line{line}, nil
}

func hasShipping(info quotedomain.ShippingInfo) bool {
	if info.Method == "" {
		return false
	}
	if info.Free {
		return true
	}
	return info.AmountInclTax.IsPositive() || info.AmountExclTax.IsPositive()
}

func shippingTaxRate(info quotedomain.ShippingInfo) decimal.Decimal {
	if info.TaxRate.IsPositive() {
		return info.TaxRate
	}
	if info.AmountExclTax.IsPositive() && info.TaxAmount.IsPositive() {
		return info.TaxAmount.Div(info.AmountExclTax).Mul(decimal.NewFromInt(100))
	}
	return decimal.Zero
}
