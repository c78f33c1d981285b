package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/money"
	"github.com/smallbiznis/kassa/internal/orderline"
	"github.com/smallbiznis/kassa/internal/quote/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testStore(t *testing.T, dsn string, merchant config.MerchantConfig) domain.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&CartRecord{}, &OrderRecord{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return Provide(db, node, config.NewStaticMerchantConfigHolder(merchant))
}

// bundleQuote is a dynamically priced bundle: the parent row carries no price
// of its own, the two child rows do. Parent qty 2, children priced per one
// parent unit.
func bundleQuote() *domain.Quote {
	items := []domain.Item{
		{
			ItemID:        "10",
			SKU:           "kit",
			Name:          "Starter Kit",
			ProductType:   domain.ProductTypeBundle,
			DynamicPriced: true,
			HasChildren:   true,
			Qty:           decimal.NewFromInt(2),
		},
		{
			ItemID:          "11",
			ParentItemID:    "10",
			SKU:             "kit-a",
			Name:            "Kit Part A",
			ProductType:     domain.ProductTypeSimple,
			Qty:             decimal.NewFromInt(1),
			PriceExclTax:    decimal.NewFromFloat(12.00),
			PriceInclTax:    decimal.NewFromFloat(15.00),
			RowTotal:        decimal.NewFromFloat(12.00),
			RowTotalInclTax: decimal.NewFromFloat(15.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(3.00),
		},
		{
			ItemID:          "12",
			ParentItemID:    "10",
			SKU:             "kit-b",
			Name:            "Kit Part B",
			ProductType:     domain.ProductTypeSimple,
			Qty:             decimal.NewFromInt(1),
			PriceExclTax:    decimal.NewFromFloat(8.00),
			PriceInclTax:    decimal.NewFromFloat(10.00),
			RowTotal:        decimal.NewFromFloat(8.00),
			RowTotalInclTax: decimal.NewFromFloat(10.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(2.00),
		},
	}
	store := domain.Store{Code: "default", Currency: "SEK", Country: "SE"}
	return domain.NewQuote("cart-bundle", store, items, nil, decimal.Zero,
		domain.WithTax(decimal.Zero, true))
}

func TestCollectTotals_DynamicBundleChildrenCounted(t *testing.T) {
	merchant := config.DefaultMerchantConfig()
	repo := testStore(t, "file:quote_bundle?mode=memory&cache=shared", merchant)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, bundleQuote()))
	collected, err := repo.CollectTotals(ctx, "cart-bundle")
	require.NoError(t, err)

	result, err := orderline.NewRegistry().Build(
		orderline.VariantCheckout, collected, orderline.NewAccumulator(merchant))
	require.NoError(t, err)

	var lineSum int64
	for _, line := range result.Lines {
		lineSum += line.TotalAmount
	}
	// Both children count twice (parent qty 2): 2x15.00 + 2x10.00.
	assert.Equal(t, int64(5000), lineSum)
	assert.Equal(t, lineSum, result.OrderAmount)
	assert.Equal(t, result.OrderAmount, money.ToMinor(collected.GrandTotalInclTax()))
	assert.Equal(t, int64(1000), money.ToMinor(collected.TaxTotal()))
}

func surchargedCollectQuote() *domain.Quote {
	items := []domain.Item{
		{
			ItemID:          "1",
			SKU:             "fridge",
			Name:            "Fridge",
			ProductType:     domain.ProductTypeSimple,
			Qty:             decimal.NewFromInt(1),
			PriceExclTax:    decimal.NewFromFloat(400.00),
			PriceInclTax:    decimal.NewFromFloat(500.00),
			RowTotal:        decimal.NewFromFloat(400.00),
			RowTotalInclTax: decimal.NewFromFloat(500.00),
			TaxPercent:      decimal.NewFromFloat(25),
			TaxAmount:       decimal.NewFromFloat(100.00),
			SurchargeLines: []domain.Surcharge{
				{Title: "Eco Tax", Amount: decimal.NewFromFloat(5.00), AmountInclTax: decimal.NewFromFloat(6.25)},
			},
		},
	}
	store := domain.Store{Code: "default", Currency: "SEK", Country: "SE"}
	return domain.NewQuote("cart-surcharge", store, items, nil, decimal.Zero,
		domain.WithTax(decimal.Zero, true))
}

func TestCollectTotals_SurchargeFollowsMerchantFlag(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name    string
		display bool
		want    int64
	}{
		{name: "hidden", display: false, want: 50000},
		{name: "displayed", display: true, want: 50625},
	} {
		t.Run(tc.name, func(t *testing.T) {
			merchant := config.DefaultMerchantConfig()
			merchant.DisplaySurchargeInSubtotal = tc.display
			repo := testStore(t, "file:quote_surcharge_"+tc.name+"?mode=memory&cache=shared", merchant)

			require.NoError(t, repo.Save(ctx, surchargedCollectQuote()))
			collected, err := repo.CollectTotals(ctx, "cart-surcharge")
			require.NoError(t, err)

			result, err := orderline.NewRegistry().Build(
				orderline.VariantCheckout, collected, orderline.NewAccumulator(merchant))
			require.NoError(t, err)

			var lineSum int64
			for _, line := range result.Lines {
				lineSum += line.TotalAmount
			}
			assert.Equal(t, tc.want, lineSum)
			assert.Equal(t, tc.want, money.ToMinor(collected.GrandTotalInclTax()))
		})
	}
}
