package orderline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/config"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore() quotedomain.Store {
	return quotedomain.Store{
		Code:     "default",
		Currency: "SEK",
		Country:  "SE",
		Locale:   "sv-SE",
		BaseURL:  "https://shop.example.com",
	}
}

// testQuote is a one-item cart: qty 2 at 100.00 excl / 125.00 incl (25% tax)
// plus flat-rate shipping at 10.00 excl / 12.50 incl.
func testQuote() *quotedomain.Quote {
	items := []quotedomain.Item{
		{
			ItemID:          "1",
			SKU:             "sku-1",
			Name:            "Widget",
			ProductType:     quotedomain.ProductTypeSimple,
			Qty:             decimal.NewFromInt(2),
			PriceExclTax:    decimal.NewFromFloat(100.00),
			PriceInclTax:    decimal.NewFromFloat(125.00),
			RowTotal:        decimal.NewFromFloat(200.00),
			RowTotalInclTax: decimal.NewFromFloat(250.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(50.00),
		},
	}
	return quotedomain.NewQuote("cart-1", testStore(), items, nil, decimal.NewFromFloat(262.50),
		quotedomain.WithShipping(quotedomain.ShippingInfo{
			Method:        "flatrate_flatrate",
			Description:   "Flat Rate",
			AmountExclTax: decimal.NewFromFloat(10.00),
			AmountInclTax: decimal.NewFromFloat(12.50),
			TaxAmount:     decimal.NewFromFloat(2.50),
			TaxRate:       decimal.NewFromFloat(25),
		}),
		quotedomain.WithTax(decimal.NewFromFloat(52.50), true),
	)
}

func lineByType(t *testing.T, lines []Line, typ string) Line {
	t.Helper()
	for _, line := range lines {
		if line.Type == typ {
			return line
		}
	}
	t.Fatalf("no line of type %s", typ)
	return Line{}
}

func sumTotals(lines []Line) int64 {
	var sum int64
	for _, line := range lines {
		sum += line.TotalAmount
	}
	return sum
}

func TestBuild_FoldedTax(t *testing.T) {
	registry := NewRegistry()
	acc := NewAccumulator(config.DefaultMerchantConfig())

	result, err := registry.Build(VariantCheckout, testQuote(), acc)
	require.NoError(t, err)
	require.Len(t, result.Lines, 2)

	item := lineByType(t, result.Lines, TypePhysical)
	assert.Equal(t, "sku-1", item.Reference)
	assert.Equal(t, int64(2), item.Quantity)
	assert.Equal(t, int64(12500), item.UnitPrice)
	assert.Equal(t, int64(25000), item.TotalAmount)
	assert.Equal(t, int64(5000), item.TotalTaxAmount)
	assert.Equal(t, int64(2500), item.TaxRate)

	shipping := lineByType(t, result.Lines, TypeShippingFee)
	assert.Equal(t, "Flat Rate", shipping.Name)
	assert.Equal(t, int64(1250), shipping.TotalAmount)
	assert.Equal(t, int64(250), shipping.TotalTaxAmount)
	assert.Equal(t, int64(2500), shipping.TaxRate)

	assert.Equal(t, int64(26250), result.OrderAmount)
	assert.Equal(t, int64(5250), result.TaxAmount)
}

func TestBuild_SeparateTaxLine(t *testing.T) {
	registry := NewRegistry()
	merchant := config.DefaultMerchantConfig()
	merchant.SeparateTaxLine = true
	acc := NewAccumulator(merchant)

	result, err := registry.Build(VariantCheckout, testQuote(), acc)
	require.NoError(t, err)
	require.Len(t, result.Lines, 3)

	item := lineByType(t, result.Lines, TypePhysical)
	assert.Equal(t, int64(10000), item.UnitPrice)
	assert.Equal(t, int64(20000), item.TotalAmount)
	assert.Equal(t, int64(0), item.TotalTaxAmount)
	assert.Equal(t, int64(0), item.TaxRate)

	shipping := lineByType(t, result.Lines, TypeShippingFee)
	assert.Equal(t, int64(1000), shipping.TotalAmount)

	tax := lineByType(t, result.Lines, TypeSalesTax)
	assert.Equal(t, int64(5250), tax.TotalAmount)

	assert.Equal(t, int64(26250), result.OrderAmount)
}

// The payload's top-level order amount must equal the sum of its line
// total amounts or the provider rejects the session.
func TestBuild_LineSumMatchesOrderAmount(t *testing.T) {
	registry := NewRegistry()

	for name, merchant := range map[string]config.MerchantConfig{
		"folded":   config.DefaultMerchantConfig(),
		"separate": {SeparateTaxLine: true, WeightUnit: "kg", DimensionUnit: "cm"},
	} {
		acc := NewAccumulator(merchant)
		result, err := registry.Build(VariantCheckout, discountedQuote(), acc)
		require.NoError(t, err, name)
		assert.Equal(t, result.OrderAmount, sumTotals(result.Lines), name)
	}
}

func TestBuild_OrderManagementVariantSkipsSurcharge(t *testing.T) {
	items := []quotedomain.Item{
		{
			ItemID:          "1",
			SKU:             "sku-1",
			Name:            "Widget",
			Qty:             decimal.NewFromInt(1),
			PriceInclTax:    decimal.NewFromFloat(125.00),
			RowTotal:        decimal.NewFromFloat(100.00),
			RowTotalInclTax: decimal.NewFromFloat(125.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(25.00),
			SurchargeLines: []quotedomain.Surcharge{
				{Title: "Eco Tax", Amount: decimal.NewFromFloat(5.00), AmountInclTax: decimal.NewFromFloat(6.25)},
			},
		},
	}
	invoice := quotedomain.NewInvoice("inv-1", "order-1", testStore(), items, nil, decimal.NewFromFloat(125.00))

	merchant := config.DefaultMerchantConfig()
	merchant.DisplaySurchargeInSubtotal = true

	registry := NewRegistry()
	result, err := registry.Build(VariantOrderManagement, invoice, NewAccumulator(merchant))
	require.NoError(t, err)

	for _, line := range result.Lines {
		assert.NotEqual(t, TypeSurcharge, line.Type)
	}
}

func TestBuild_UnknownVariant(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Build(Variant("bogus"), testQuote(), NewAccumulator(config.DefaultMerchantConfig()))
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestBuild_NilPriceable(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Build(VariantCheckout, nil, NewAccumulator(config.DefaultMerchantConfig()))
	assert.ErrorIs(t, err, ErrNilPriceable)
}
