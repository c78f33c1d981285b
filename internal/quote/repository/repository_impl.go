// Package repository is the reference implementation of the host collaborator
// contracts, backed by the bridge's own database. Production deployments
// replace it with an adapter over the real shop platform; this one keeps local
// development and the demo binary self-contained.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/money"
	"github.com/smallbiznis/kassa/internal/quote/domain"
	sgdomain "github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CartRecord stores a serialized cart document.
type CartRecord struct {
	ID        string         `gorm:"primaryKey;type:text"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (CartRecord) TableName() string { return "checkout_carts" }

// OrderRecord is a locally persisted order created from a cart.
type OrderRecord struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	CartID    string       `gorm:"type:text;not null"`
	SessionID string       `gorm:"type:text;not null"`
	Status    string       `gorm:"type:text;not null"`
	Payload   datatypes.JSON
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (OrderRecord) TableName() string { return "checkout_orders" }

const (
	orderStatusPending       = "pending"
	orderStatusPaymentFailed = "payment_failed"
	orderStatusCanceled      = "canceled"
)

// cartDTO is the JSON shape of a stored cart.
type cartDTO struct {
	ID               string                `json:"id"`
	Store            domain.Store          `json:"store"`
	Items            []domain.Item         `json:"items"`
	Totals           []domain.Total        `json:"totals"`
	GrandTotal       decimal.Decimal       `json:"grand_total"`
	Tax              decimal.Decimal       `json:"tax"`
	PricesInclTax    bool                  `json:"prices_incl_tax"`
	Shipping         domain.ShippingInfo   `json:"shipping"`
	CustomerEmail    string                `json:"customer_email,omitempty"`
	CustomerDOB      string                `json:"customer_dob,omitempty"`
	BillingAddress   *domain.Address       `json:"billing_address,omitempty"`
	ShippingAddress  *domain.Address       `json:"shipping_address,omitempty"`
	PrefillConsented bool                  `json:"prefill_consented,omitempty"`
	PaymentMethod    string                `json:"payment_method,omitempty"`
	HasRecurring     bool                  `json:"has_recurring,omitempty"`
	IsVirtualOnly    bool                  `json:"is_virtual_only,omitempty"`
	ReservedOrderID  string                `json:"reserved_order_id,omitempty"`
}

type store struct {
	db       *gorm.DB
	genID    *snowflake.Node
	merchant *config.MerchantConfigHolder
}

func Provide(db *gorm.DB, genID *snowflake.Node, merchant *config.MerchantConfigHolder) domain.Repository {
	return &store{db: db, genID: genID, merchant: merchant}
}

func ProvideOrderWriter(db *gorm.DB, genID *snowflake.Node) domain.OrderWriter {
	return &store{db: db, genID: genID}
}

func (s *store) Get(ctx context.Context, cartID string) (*domain.Quote, error) {
	dto, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, domain.ErrCartNotFound
	}
	return quoteFromDTO(dto), nil
}

func (s *store) Save(ctx context.Context, quote *domain.Quote) error {
	return s.persist(ctx, dtoFromQuote(quote))
}

func (s *store) UpdateAddresses(ctx context.Context, cartID string, billing, shipping *domain.Address) error {
	dto, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}
	if dto == nil {
		return domain.ErrCartNotFound
	}
	if billing != nil {
		dto.BillingAddress = billing
		if billing.Email != "" {
			dto.CustomerEmail = billing.Email
		}
	}
	if shipping != nil {
		dto.ShippingAddress = shipping
	}
	return s.persist(ctx, dto)
}

func (s *store) SetShippingMethod(ctx context.Context, cartID, method string) error {
	dto, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}
	if dto == nil {
		return domain.ErrCartNotFound
	}
	dto.Shipping.Method = method
	return s.persist(ctx, dto)
}

// CollectTotals recomputes the totals table from the stored line items. The
// real shop platform runs its full calculation chain here; the reference store
// only needs sums consistent with what the collectors read.
func (s *store) CollectTotals(ctx context.Context, cartID string) (*domain.Quote, error) {
	dto, err := s.load(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if dto == nil {
		return nil, domain.ErrCartNotFound
	}

	subtotal := decimal.Zero
	discount := decimal.Zero
	tax := decimal.Zero
	surcharge := decimal.Zero
	add := func(item domain.Item, mult decimal.Decimal) {
		subtotal = subtotal.Add(item.RowTotalInclTax.Mul(mult))
		discount = discount.Add(item.DiscountAmount.Mul(mult))
		tax = tax.Add(item.TaxAmount.Mul(mult))
		for _, sc := range item.SurchargeLines {
			surcharge = surcharge.Add(sc.AmountInclTax.Mul(mult))
		}
	}
	// The bundle rules must match the order-line collectors: a dynamically
	// priced bundle parent carries no price of its own, its children do (times
	// the parent quantity). A fixed-price parent carries the price and its
	// children are skipped.
	byID := make(map[string]domain.Item, len(dto.Items))
	for _, item := range dto.Items {
		byID[item.ItemID] = item
	}
	for _, item := range dto.Items {
		if item.ParentItemID != "" {
			parent, ok := byID[item.ParentItemID]
			if ok && parent.ProductType == domain.ProductTypeBundle && parent.DynamicPriced {
				add(item, parent.Qty)
			}
			continue
		}
		if item.ProductType == domain.ProductTypeBundle && item.DynamicPriced && item.HasChildren {
			continue
		}
		add(item, decimal.NewFromInt(1))
	}
	if !s.merchant.Get().DisplaySurchargeInSubtotal {
		surcharge = decimal.Zero
	}
	shipping := dto.Shipping.AmountInclTax
	shippingTax := dto.Shipping.TaxAmount
	if dto.Shipping.Method == sgdomain.MethodCode {
		record, err := s.activeGatewayRecord(ctx, dto.ID)
		if err != nil {
			return nil, err
		}
		if record != nil {
			shipping = money.ToMajor(record.ShippingAmount)
			shippingTax = money.ToMajor(record.TaxAmount)
		}
	}
	tax = tax.Add(shippingTax)

	dto.Totals = []domain.Total{
		{Code: domain.TotalCodeSubtotal, Title: "Subtotal", Amount: subtotal},
		{Code: domain.TotalCodeDiscount, Title: "Discount", Amount: discount.Neg()},
		{Code: domain.TotalCodeShipping, Title: "Shipping", Amount: shipping},
		{Code: domain.TotalCodeSurcharge, Title: "Surcharge", Amount: surcharge},
		{Code: domain.TotalCodeTax, Title: "Tax", Amount: tax},
	}
	dto.GrandTotal = subtotal.Sub(discount).Add(shipping).Add(surcharge)
	dto.Tax = tax
	dto.Totals = append(dto.Totals, domain.Total{
		Code:   domain.TotalCodeGrandTotal,
		Title:  "Grand Total",
		Amount: dto.GrandTotal,
	})

	if err := s.persist(ctx, dto); err != nil {
		return nil, err
	}
	return quoteFromDTO(dto), nil
}

// CollectShippingRates is a no-op for the reference store: it has no carrier
// catalog. Ordering relative to CollectTotals still matters for real hosts.
func (s *store) CollectShippingRates(ctx context.Context, cartID string) error {
	dto, err := s.load(ctx, cartID)
	if err != nil {
		return err
	}
	if dto == nil {
		return domain.ErrCartNotFound
	}
	return nil
}

// activeGatewayRecord resolves the gateway shipping override for a cart
// through its active session link. Real shop platforms do this inside their
// shipping total calculators when they see the synthetic method code.
func (s *store) activeGatewayRecord(ctx context.Context, cartID string) (*sgdomain.Record, error) {
	var record sgdomain.Record
	err := s.db.WithContext(ctx).Raw(
		`SELECT r.id, r.session_id, r.shipping_amount, r.tax_amount, r.tax_rate, r.is_active
		 FROM shipping_gateway_records r
		 JOIN checkout_session_links l ON l.session_id = r.session_id
		 WHERE l.cart_id = ? AND l.is_active = ? AND r.is_active = ?
		 ORDER BY l.created_at DESC
		 LIMIT 1`,
		cartID,
		true,
		true,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (s *store) CreateFromQuote(ctx context.Context, quote *domain.Quote, sessionID string) (string, error) {
	payload, err := json.Marshal(dtoFromQuote(quote))
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	record := &OrderRecord{
		ID:        s.genID.Generate(),
		CartID:    quote.PriceableID(),
		SessionID: sessionID,
		Status:    orderStatusPending,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return "", err
	}
	return record.ID.String(), nil
}

func (s *store) MarkPaymentFailed(ctx context.Context, orderID string) error {
	return s.setOrderStatus(ctx, orderID, orderStatusPaymentFailed)
}

func (s *store) CancelOrder(ctx context.Context, orderID string) error {
	return s.setOrderStatus(ctx, orderID, orderStatusCanceled)
}

func (s *store) OrderExists(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM checkout_orders WHERE id = ?`,
		orderID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *store) setOrderStatus(ctx context.Context, orderID, status string) error {
	result := s.db.WithContext(ctx).Exec(
		`UPDATE checkout_orders SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		orderID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *store) load(ctx context.Context, cartID string) (*cartDTO, error) {
	var record CartRecord
	err := s.db.WithContext(ctx).Raw(
		`SELECT id, payload, created_at, updated_at FROM checkout_carts WHERE id = ?`,
		cartID,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == "" {
		return nil, nil
	}
	var dto cartDTO
	if err := json.Unmarshal(record.Payload, &dto); err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *store) persist(ctx context.Context, dto *cartDTO) error {
	payload, err := json.Marshal(dto)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return s.db.WithContext(ctx).Exec(
		`INSERT INTO checkout_carts (id, payload, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		dto.ID,
		payload,
		now,
		now,
	).Error
}

func dtoFromQuote(q *domain.Quote) *cartDTO {
	return &cartDTO{
		ID:               q.PriceableID(),
		Store:            q.StoreContext(),
		Items:            q.LineItems(),
		Totals:           totalsOf(q),
		GrandTotal:       q.GrandTotalInclTax(),
		Tax:              q.TaxTotal(),
		PricesInclTax:    q.TaxInPrices(),
		Shipping:         q.Shipping(),
		CustomerEmail:    q.CustomerEmail,
		CustomerDOB:      q.CustomerDOB,
		BillingAddress:   q.BillingAddress,
		ShippingAddress:  q.ShippingAddress,
		PrefillConsented: q.PrefillConsented,
		PaymentMethod:    q.PaymentMethod,
		HasRecurring:     q.HasRecurring,
		IsVirtualOnly:    q.IsVirtualOnly,
		ReservedOrderID:  q.ReservedOrderID,
	}
}

func quoteFromDTO(dto *cartDTO) *domain.Quote {
	q := domain.NewQuote(dto.ID, dto.Store, dto.Items, dto.Totals, dto.GrandTotal,
		domain.WithShipping(dto.Shipping),
		domain.WithTax(dto.Tax, dto.PricesInclTax),
		domain.WithAddresses(dto.BillingAddress, dto.ShippingAddress),
	)
	q.CustomerEmail = dto.CustomerEmail
	q.CustomerDOB = dto.CustomerDOB
	q.PrefillConsented = dto.PrefillConsented
	q.PaymentMethod = dto.PaymentMethod
	q.HasRecurring = dto.HasRecurring
	q.IsVirtualOnly = dto.IsVirtualOnly
	q.ReservedOrderID = dto.ReservedOrderID
	return q
}

func totalsOf(q *domain.Quote) []domain.Total {
	codes := []string{
		domain.TotalCodeSubtotal,
		domain.TotalCodeShipping,
		domain.TotalCodeDiscount,
		domain.TotalCodeTax,
		domain.TotalCodeSurcharge,
		domain.TotalCodeGrandTotal,
	}
	var out []domain.Total
	for _, code := range codes {
		if total, ok := q.TotalByCode(code); ok {
			out = append(out, total)
		}
	}
	return out
}
