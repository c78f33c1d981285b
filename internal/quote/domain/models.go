package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Store is the shop-scoped context a priceable object was created in.
type Store struct {
	Code     string
	Currency string
	Country  string
	Locale   string
	BaseURL  string
}

// Address mirrors the host platform's customer address record.
type Address struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FirstName    string `json:"given_name"`
	LastName     string `json:"family_name"`
	Company      string `json:"organization_name,omitempty"`
	Title        string `json:"title,omitempty"`
	Street       string `json:"street_address"`
	Street2      string `json:"street_address2,omitempty"`
	City         string `json:"city"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postal_code"`
	Country      string `json:"country"`
	CustomerType string `json:"customer_type,omitempty"`
}

// SameAsExceptEmail reports whether two addresses are identical once the
// email field is ignored. The provider treats that shape as "same as billing,
// nothing else known yet" and the shipping block is omitted.
func (a Address) SameAsExceptEmail(other Address) bool {
	x, y := a, other
	x.Email, y.Email = "", ""
	return x == y
}

// Item is one line of a priceable object, prices in shop decimals.
type Item struct {
	ItemID       string
	ParentItemID string
	SKU          string
	Name         string
	ProductType  string
	Qty          decimal.Decimal

	// Unit and row prices. RowTotal excludes tax, RowTotalInclTax includes it.
	PriceExclTax    decimal.Decimal
	PriceInclTax    decimal.Decimal
	RowTotal        decimal.Decimal
	RowTotalInclTax decimal.Decimal

	TaxPercent decimal.Decimal
	TaxAmount  decimal.Decimal

	DiscountAmount decimal.Decimal

	// DynamicPriced marks a bundle whose price is the sum of its children.
	DynamicPriced bool
	HasChildren   bool

	IsVirtual bool

	Weight     decimal.Decimal
	Length     decimal.Decimal
	Width      decimal.Decimal
	Height     decimal.Decimal
	Categories []string

	ProductURL string
	ImageURL   string

	// SurchargeLines are fixed-product-tax style charges applied to the item.
	SurchargeLines []Surcharge

	Recurring bool
}

// Surcharge is a weee/eco-tax style per-item charge.
type Surcharge struct {
	Title         string
	Amount        decimal.Decimal
	AmountInclTax decimal.Decimal
	TaxPercent    decimal.Decimal
}

const (
	ProductTypeSimple       = "simple"
	ProductTypeVirtual      = "virtual"
	ProductTypeBundle       = "bundle"
	ProductTypeConfigurable = "configurable"
)

// Total is one entry of the host's totals-by-code table.
type Total struct {
	Code   string
	Title  string
	Amount decimal.Decimal
}

// Totals-by-code keys used by the collectors.
const (
	TotalCodeSubtotal   = "subtotal"
	TotalCodeShipping   = "shipping"
	TotalCodeDiscount   = "discount"
	TotalCodeTax        = "tax"
	TotalCodeSurcharge  = "surcharge"
	TotalCodeGrandTotal = "grand_total"
)

// ShippingInfo carries the host-computed shipping selection and pricing.
type ShippingInfo struct {
	Method        string
	Description   string
	AmountExclTax decimal.Decimal
	AmountInclTax decimal.Decimal
	TaxAmount     decimal.Decimal
	TaxRate       decimal.Decimal
	Free          bool
}

// Priceable is any host-side entity that can be summarized into order lines:
// a live cart, an invoice, or a credit memo. Read-only within one build pass.
type Priceable interface {
	PriceableID() string
	StoreContext() Store
	LineItems() []Item
	TotalByCode(code string) (Total, bool)
	GrandTotalInclTax() decimal.Decimal
	TaxTotal() decimal.Decimal
	Shipping() ShippingInfo
	// TaxInPrices reports whether catalog prices already include tax.
	TaxInPrices() bool
	// LiveCart is true for carts; invoice and credit-memo lines never carry
	// shipping attributes.
	LiveCart() bool
	Recurring() bool
}

// document is the shared backing of Quote, Invoice and CreditMemo.
type document struct {
	ID            string
	Store         Store
	Items         []Item
	Totals        []Total
	GrandTotal    decimal.Decimal
	Tax           decimal.Decimal
	ShippingInf   ShippingInfo
	PricesInclTax bool
}

func (d *document) PriceableID() string { return d.ID }

func (d *document) StoreContext() Store { return d.Store }

func (d *document) LineItems() []Item { return d.Items }

func (d *document) TotalByCode(code string) (Total, bool) {
	code = strings.TrimSpace(code)
	for _, total := range d.Totals {
		if total.Code == code {
			return total, true
		}
	}
	return Total{}, false
}

func (d *document) GrandTotalInclTax() decimal.Decimal { return d.GrandTotal }

func (d *document) TaxTotal() decimal.Decimal { return d.Tax }

func (d *document) Shipping() ShippingInfo { return d.ShippingInf }

func (d *document) TaxInPrices() bool { return d.PricesInclTax }

// Quote is a live cart.
type Quote struct {
	document

	CustomerEmail   string
	CustomerDOB     string
	BillingAddress  *Address
	ShippingAddress *Address

	// PrefillConsented is true once the shopper accepted the prefill notice
	// in countries that require it.
	PrefillConsented bool

	PaymentMethod   string
	HasRecurring    bool
	IsVirtualOnly   bool
	ReservedOrderID string
}

func (q *Quote) LiveCart() bool { return true }

func (q *Quote) Recurring() bool { return q.HasRecurring }

// Invoice is a captured slice of an order.
type Invoice struct {
	document
	OrderID string
}

func (i *Invoice) LiveCart() bool { return false }

func (i *Invoice) Recurring() bool { return false }

// CreditMemo is a refunded slice of an order.
type CreditMemo struct {
	document
	OrderID string
}

func (c *CreditMemo) LiveCart() bool { return false }

func (c *CreditMemo) Recurring() bool { return false }

// NewQuote builds a live cart priceable. Used by host adapters and tests.
func NewQuote(id string, store Store, items []Item, totals []Total, grandTotal decimal.Decimal, opts ...QuoteOption) *Quote {
	q := &Quote{
		document: document{
			ID:         id,
			Store:      store,
			Items:      items,
			Totals:     totals,
			GrandTotal: grandTotal,
		},
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

type QuoteOption func(*Quote)

func WithShipping(info ShippingInfo) QuoteOption {
	return func(q *Quote) { q.ShippingInf = info }
}

func WithTax(amount decimal.Decimal, inclInPrices bool) QuoteOption {
	return func(q *Quote) {
		q.Tax = amount
		q.PricesInclTax = inclInPrices
	}
}

func WithAddresses(billing, shipping *Address) QuoteOption {
	return func(q *Quote) {
		q.BillingAddress = billing
		q.ShippingAddress = shipping
	}
}

// NewInvoice builds an invoice priceable for order-management lines.
func NewInvoice(id, orderID string, store Store, items []Item, totals []Total, grandTotal decimal.Decimal) *Invoice {
	return &Invoice{
		document: document{
			ID:         id,
			Store:      store,
			Items:      items,
			Totals:     totals,
			GrandTotal: grandTotal,
		},
		OrderID: orderID,
	}
}

// NewCreditMemo builds a credit-memo priceable for refund lines.
func NewCreditMemo(id, orderID string, store Store, items []Item, totals []Total, grandTotal decimal.Decimal) *CreditMemo {
	return &CreditMemo{
		document: document{
			ID:         id,
			Store:      store,
			Items:      items,
			Totals:     totals,
			GrandTotal: grandTotal,
		},
		OrderID: orderID,
	}
}
