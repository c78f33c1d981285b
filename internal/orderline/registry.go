package orderline

import (
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

// Variant selects the ordered collector list for one integration flavor.
type Variant string

const (
	// VariantCheckout builds lines for a live cart session.
	VariantCheckout Variant = "checkout"
	// VariantOrderManagement builds lines for invoice and credit-memo
	// operations (capture, refund).
	VariantOrderManagement Variant = "ordermanagement"
)

// Registry is the startup-time table mapping a variant to its ordered
// collectors. Order matters: discount and tax need the item totals first.
type Registry struct {
	collectors map[Variant][]Collector
}

// NewRegistry builds the default collector table.
func NewRegistry() *Registry {
	return &Registry{
		collectors: map[Variant][]Collector{
			VariantCheckout: {
				NewItemsCollector(),
				NewShippingCollector(),
				NewSurchargeCollector(),
				NewDiscountCollector(),
				NewTaxCollector(),
			},
			VariantOrderManagement: {
				NewItemsCollector(),
				NewShippingCollector(),
				NewDiscountCollector(),
				NewTaxCollector(),
			},
		},
	}
}

// Result is the outcome of one two-pass build.
type Result struct {
	Lines []Line
	// OrderAmount is the minor-unit sum of all line contributions.
	OrderAmount int64
	// TaxAmount is the raw tax total recorded during the collect pass.
	TaxAmount int64
}

// Build runs the collect pass then the fetch pass for the given variant.
func (r *Registry) Build(variant Variant, object quotedomain.Priceable, acc *Accumulator) (*Result, error) {
	if object == nil {
		return nil, ErrNilPriceable
	}
	collectors, ok := r.collectors[variant]
	if !ok {
		return nil, ErrUnknownVariant
	}

	for _, collector := range collectors {
		if err := collector.Collect(object, acc); err != nil {
			return nil, err
		}
	}

	lines := make([]Line, 0, len(object.LineItems())+4)
	for _, collector := range collectors {
		fetched, err := collector.Fetch(object, acc)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fetched...)
	}

	return &Result{
		Lines:       lines,
		OrderAmount: acc.OrderAmount(),
		TaxAmount:   acc.RawTax(),
	}, nil
}

// Variants lists the configured variants. Used by startup validation.
func (r *Registry) Variants() []Variant {
	out := make([]Variant, 0, len(r.collectors))
	for v := range r.collectors {
		out = append(out, v)
	}
	return out
}
