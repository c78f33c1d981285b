package orderline

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/money"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

const codeItems = "items"

// ItemsCollector emits one line per billable item of the priceable object.
type ItemsCollector struct{}

func NewItemsCollector() *ItemsCollector { return &ItemsCollector{} }

func (c *ItemsCollector) Code() string { return codeItems }

func (c *ItemsCollector) Collect(object quotedomain.Priceable, acc *Accumulator) error {
	if object == nil {
		return ErrNilPriceable
	}
	for _, billable := range billableItems(object) {
		acc.AddTotal(codeItems, itemTotal(billable, acc.SeparateTaxLine()))
	}
	return nil
}

func (c *ItemsCollector) Fetch(object quotedomain.Priceable, acc *Accumulator) ([]Line, error) {
	if object == nil {
		return nil, ErrNilPriceable
	}

	merchant := acc.Merchant
	separate := acc.SeparateTaxLine()
	live := object.LiveCart()

	var lines []Line
	for _, billable := range billableItems(object) {
		item := billable.item

		line := Line{
			Type:      TypePhysical,
			Reference: item.SKU,
			Name:      item.Name,
			Quantity:  billable.qty.Round(0).IntPart(),
		}
		if item.IsVirtual {
			line.Type = TypeDigital
		}

		rate := effectiveTaxRate(item)
		if separate {
			line.UnitPrice = money.ToMinor(item.PriceExclTax)
			line.TotalAmount = itemTotal(billable, true)
		} else {
			line.UnitPrice = money.ToMinor(item.PriceInclTax)
			line.TotalAmount = itemTotal(billable, false)
			line.TotalTaxAmount = money.ToMinor(item.TaxAmount.Mul(billable.multiplier))
			line.TaxRate = money.RateToMinor(rate)
		}

		if live {
			line.ProductURL = item.ProductURL
			line.ImageURL = item.ImageURL
			if !item.IsVirtual {
				line.ShippingAttributes = shippingAttributes(item, merchant)
			}
		}

		lines = append(lines, line)
	}
	return lines, nil
}

// billable pairs an item with its effective quantity. Children of dynamically
// priced bundles are billed with quantity multiplied by the parent quantity.
type billable struct {
	item       quotedomain.Item
	qty        decimal.Decimal
	multiplier decimal.Decimal
}

// billableItems applies the bundle skip rules: children of fixed-price bundle
// parents are skipped (the parent line carries the price), dynamically priced
// bundle parents are skipped (the children carry the price).
func billableItems(object quotedomain.Priceable) []billable {
	items := object.LineItems()
	byID := make(map[string]quotedomain.Item, len(items))
	for _, item := range items {
		byID[item.ItemID] = item
	}

	out := make([]billable, 0, len(items))
	for _, item := range items {
		if item.ParentItemID != "" {
			parent, ok := byID[item.ParentItemID]
			if !ok {
				continue
			}
			if parent.ProductType == quotedomain.ProductTypeBundle && parent.DynamicPriced {
				out = append(out, billable{
					item:       item,
					qty:        item.Qty.Mul(parent.Qty),
					multiplier: parent.Qty,
				})
			}
			continue
		}
		if item.ProductType == quotedomain.ProductTypeBundle && item.DynamicPriced && item.HasChildren {
			continue
		}
		out = append(out, billable{item: item, qty: item.Qty, multiplier: decimal.NewFromInt(1)})
	}
	return out
}

func itemTotal(b billable, separateTax bool) int64 {
	if separateTax {
		return money.ToMinor(b.item.RowTotal.Mul(b.multiplier))
	}
	return money.ToMinor(b.item.RowTotalInclTax.Mul(b.multiplier))
}

// effectiveTaxRate uses the stored percentage when present, otherwise derives
// it from the tax amount over the tax-exclusive row total.
func effectiveTaxRate(item quotedomain.Item) decimal.Decimal {
	if item.TaxPercent.IsPositive() {
		return item.TaxPercent
	}
	if item.RowTotal.IsPositive() && item.TaxAmount.IsPositive() {
		return item.TaxAmount.Div(item.RowTotal).Mul(decimal.NewFromInt(100))
	}
	return decimal.Zero
}

func shippingAttributes(item quotedomain.Item, merchant config.MerchantConfig) *ShippingAttributes {
	attrs := &ShippingAttributes{
		Weight: item.Weight.Mul(weightMultiplier(merchant.WeightUnit)).Round(0).IntPart(),
		Tags:   item.Categories,
	}

	mult := dimensionMultiplier(merchant.DimensionUnit)
	if item.Height.IsPositive() || item.Width.IsPositive() || item.Length.IsPositive() {
		attrs.Dimensions = &Dimensions{
			Height: item.Height.Mul(mult).Round(0).IntPart(),
			Width:  item.Width.Mul(mult).Round(0).IntPart(),
			Length: item.Length.Mul(mult).Round(0).IntPart(),
		}
	}

	if attrs.Weight == 0 && attrs.Dimensions == nil && len(attrs.Tags) == 0 {
		return nil
	}
	return attrs
}

func dimensionMultiplier(unit string) decimal.Decimal {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "cm":
		return decimal.NewFromInt(10)
	case "inch":
		return decimal.NewFromFloat(25.4)
	default:
		return decimal.NewFromInt(1)
	}
}

func weightMultiplier(unit string) decimal.Decimal {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "kg", "kgs":
		return decimal.NewFromInt(1000)
	case "lb", "lbs":
		return decimal.NewFromFloat(453.59237)
	default:
		return decimal.NewFromInt(1)
	}
}
