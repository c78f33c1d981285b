package orderline

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/config"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surchargedQuote() *quotedomain.Quote {
	items := []quotedomain.Item{
		{
			ItemID:          "1",
			SKU:             "fridge",
			Name:            "Fridge",
			Qty:             decimal.NewFromInt(1),
			PriceInclTax:    decimal.NewFromFloat(500.00),
			RowTotal:        decimal.NewFromFloat(400.00),
			RowTotalInclTax: decimal.NewFromFloat(500.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(100.00),
			SurchargeLines: []quotedomain.Surcharge{
				{Title: "Eco Tax", Amount: decimal.NewFromFloat(5.00), AmountInclTax: decimal.NewFromFloat(6.25)},
			},
		},
		{
			ItemID:          "2",
			SKU:             "freezer",
			Name:            "Freezer",
			Qty:             decimal.NewFromInt(1),
			PriceInclTax:    decimal.NewFromFloat(300.00),
			RowTotal:        decimal.NewFromFloat(240.00),
			RowTotalInclTax: decimal.NewFromFloat(300.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(60.00),
			SurchargeLines: []quotedomain.Surcharge{
				{Title: "Eco Tax", Amount: decimal.NewFromFloat(3.00), AmountInclTax: decimal.NewFromFloat(3.75)},
				{Title: "Recycling Fee", Amount: decimal.NewFromFloat(2.00), AmountInclTax: decimal.NewFromFloat(2.50)},
			},
		},
	}
	return quotedomain.NewQuote("cart-fpt", testStore(), items, nil, decimal.NewFromFloat(812.50))
}

func TestSurchargeCollector_DisabledByDefault(t *testing.T) {
	collector := NewSurchargeCollector()
	quote := surchargedQuote()
	acc := NewAccumulator(config.DefaultMerchantConfig())

	require.NoError(t, collector.Collect(quote, acc))
	lines, err := collector.Fetch(quote, acc)
	require.NoError(t, err)
	assert.Empty(t, lines)
	assert.Equal(t, int64(0), acc.Total("surcharge"))
}

func TestSurchargeCollector_AggregatesCharges(t *testing.T) {
	collector := NewSurchargeCollector()
	quote := surchargedQuote()

	merchant := config.DefaultMerchantConfig()
	merchant.DisplaySurchargeInSubtotal = true
	acc := NewAccumulator(merchant)

	require.NoError(t, collector.Collect(quote, acc))
	lines, err := collector.Fetch(quote, acc)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, TypeSurcharge, line.Type)
	// Titles are deduplicated in first-seen order.
	assert.Equal(t, "Eco Tax, Recycling Fee", line.Name)
	// 6.25 + 3.75 + 2.50 incl tax.
	assert.Equal(t, int64(1250), line.TotalAmount)
	// 10.00 excl, 2.50 tax at 25%.
	assert.Equal(t, int64(250), line.TotalTaxAmount)
	assert.Equal(t, int64(2500), line.TaxRate)

	assert.Equal(t, int64(1250), acc.Total("surcharge"))
}

func TestSurchargeCollector_SeparateTaxUsesExclAmounts(t *testing.T) {
	collector := NewSurchargeCollector()
	quote := surchargedQuote()

	merchant := config.DefaultMerchantConfig()
	merchant.DisplaySurchargeInSubtotal = true
	merchant.SeparateTaxLine = true
	acc := NewAccumulator(merchant)

	require.NoError(t, collector.Collect(quote, acc))
	lines, err := collector.Fetch(quote, acc)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	assert.Equal(t, int64(1000), lines[0].TotalAmount)
	assert.Equal(t, int64(0), lines[0].TotalTaxAmount)
	assert.Equal(t, int64(0), lines[0].TaxRate)
}
