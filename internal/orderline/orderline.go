// Package orderline turns a priceable object into the normalized line items
// the hosted-checkout provider requires. Collectors run in two passes: a
// collect pass accumulating intermediate totals, then a fetch pass emitting
// lines. The accumulator is threaded explicitly through every call.
package orderline

import (
	"errors"

	"github.com/smallbiznis/kassa/internal/config"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

// Provider line-item types.
const (
	TypePhysical    = "physical"
	TypeDigital     = "digital"
	TypeShippingFee = "shipping_fee"
	TypeDiscount    = "discount"
	TypeSalesTax    = "sales_tax"
	TypeSurcharge   = "surcharge"
)

// Line is one normalized order line in provider wire shape. All amounts are
// minor units; tax_rate 2500 means 25%.
type Line struct {
	Type                string              `json:"type"`
	Reference           string              `json:"reference"`
	Name                string              `json:"name"`
	Quantity            int64               `json:"quantity"`
	QuantityUnit        string              `json:"quantity_unit,omitempty"`
	UnitPrice           int64               `json:"unit_price"`
	TaxRate             int64               `json:"tax_rate"`
	TotalAmount         int64               `json:"total_amount"`
	TotalTaxAmount      int64               `json:"total_tax_amount"`
	TotalDiscountAmount int64               `json:"total_discount_amount,omitempty"`
	DiscountRate        int64               `json:"discount_rate,omitempty"`
	ProductURL          string              `json:"product_url,omitempty"`
	ImageURL            string              `json:"image_url,omitempty"`
	ShippingAttributes  *ShippingAttributes `json:"shipping_attributes,omitempty"`
}

// ShippingAttributes describe a physical line for shipment planning. Only
// live cart items carry them.
type ShippingAttributes struct {
	// Weight is in grams regardless of the shop's configured unit.
	Weight     int64       `json:"weight,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
}

// Dimensions are in millimeters.
type Dimensions struct {
	Height int64 `json:"height,omitempty"`
	Width  int64 `json:"width,omitempty"`
	Length int64 `json:"length,omitempty"`
}

// ShippingOverride is the active shipping gateway record projected into the
// collector pass. When present its stored values supersede every host-side
// shipping tax computation.
type ShippingOverride struct {
	Amount        int64
	TaxAmount     int64
	TaxRate       int64
	IsPickupPoint bool
	Name          string
}

// Accumulator carries the intermediate totals between the collect and fetch
// passes plus the per-request configuration snapshot.
type Accumulator struct {
	Merchant config.MerchantConfig

	// Override is the active shipping gateway record, nil when the host's
	// native shipping selection is in effect.
	Override *ShippingOverride

	totals map[string]int64
	rawTax int64
}

func NewAccumulator(merchant config.MerchantConfig) *Accumulator {
	return &Accumulator{
		Merchant: merchant,
		totals:   map[string]int64{},
	}
}

// AddTotal accumulates a collector's contribution under its code.
func (a *Accumulator) AddTotal(code string, amount int64) {
	if a.totals == nil {
		a.totals = map[string]int64{}
	}
	a.totals[code] += amount
}

// Total returns the accumulated amount for a collector code.
func (a *Accumulator) Total(code string) int64 {
	return a.totals[code]
}

// OrderAmount is the sum of every collector contribution, which must equal
// the payload's top-level order amount.
func (a *Accumulator) OrderAmount() int64 {
	var sum int64
	for _, v := range a.totals {
		sum += v
	}
	return sum
}

// AddRawTax records tax bookkeeping that does not contribute to the order
// amount when tax is folded into unit prices.
func (a *Accumulator) AddRawTax(amount int64) {
	a.rawTax += amount
}

// RawTax returns the raw tax total recorded during the collect pass.
func (a *Accumulator) RawTax() int64 {
	return a.rawTax
}

// SeparateTaxLine reports whether tax is emitted as its own line instead of
// being folded into unit prices.
func (a *Accumulator) SeparateTaxLine() bool {
	return a.Merchant.SeparateTaxLine
}

// Collector inspects one aspect of a priceable object. Collect accumulates
// the totals it contributes; Fetch appends zero or one lines.
type Collector interface {
	Code() string
	Collect(object quotedomain.Priceable, acc *Accumulator) error
	Fetch(object quotedomain.Priceable, acc *Accumulator) ([]Line, error)
}

// ErrNilPriceable indicates the builder context was not threaded between the
// collect and fetch phases. It is an integration bug, never swallowed.
var ErrNilPriceable = errors.New("orderline: nil priceable object")

// ErrUnknownVariant indicates a registry lookup for an unconfigured variant.
var ErrUnknownVariant = errors.New("orderline: unknown checkout variant")
