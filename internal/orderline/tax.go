package orderline

import (
	"github.com/smallbiznis/kassa/internal/money"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

const codeSalesTax = "sales_tax"

// TaxCollector emits an explicit tax line only under separate-tax-line
// configuration. When tax is folded into unit prices it still records the raw
// tax total for bookkeeping but emits nothing.
type TaxCollector struct{}

func NewTaxCollector() *TaxCollector { return &TaxCollector{} }

func (c *TaxCollector) Code() string { return codeSalesTax }

func (c *TaxCollector) Collect(object quotedomain.Priceable, acc *Accumulator) error {
	if object == nil {
		return ErrNilPriceable
	}
	tax := money.ToMinor(object.TaxTotal())
	acc.AddRawTax(tax)
	if acc.SeparateTaxLine() {
		acc.AddTotal(codeSalesTax, tax)
	}
	return nil
}

func (c *TaxCollector) Fetch(object quotedomain.Priceable, acc *Accumulator) ([]Line, error) {
	if object == nil {
		return nil, ErrNilPriceable
	}
	if !acc.SeparateTaxLine() {
		return nil, nil
	}

	tax := money.ToMinor(object.TaxTotal())
	if tax == 0 {
		return nil, nil
	}

	return []Line{{
		Type:        TypeSalesTax,
		Reference:   codeSalesTax,
		Name:        "Sales Tax",
		Quantity:    1,
		UnitPrice:   tax,
		TotalAmount: tax,
	}}, nil
}
