package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kassa/internal/locker"
	"github.com/smallbiznis/kassa/internal/orderline"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	"github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockTTL = 10 * time.Second

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
	Quotes quotedomain.Repository
	Locks  locker.Locker
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	repo   domain.Repository
	quotes quotedomain.Repository
	locks  locker.Locker
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("shippinggateway.service"),
		genID:  p.GenID,
		repo:   p.Repo,
		quotes: p.Quotes,
		locks:  p.Locks,
	}
}

func (s *Service) Apply(ctx context.Context, cartID, sessionID string, option provider.ShippingOption, nativeCodes []string) error {
	release, ok, err := s.locks.Acquire(ctx, "cart:"+cartID, lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoRecord
	}
	defer release(ctx)

	existing, err := s.repo.FindBySession(ctx, s.db, sessionID)
	if err != nil {
		return err
	}

	// Once the gateway is active the cart only carries the synthetic code, so
	// the record's remembered native method is what a host-rate re-selection
	// has to be matched against.
	if existing != nil && existing.NativeMethod != "" {
		nativeCodes = append(nativeCodes, existing.NativeMethod)
	}
	if code := nativeCode(option, nativeCodes); code != "" {
		return s.fallback(ctx, cartID, sessionID, code)
	}

	now := time.Now().UTC()
	record := &domain.Record{
		ID:              s.genID.Generate(),
		SessionID:       sessionID,
		IsActive:        true,
		IsPickupPoint:   option.IsPickupPoint(),
		PickupPointName: option.Name,
		NativeMethod:    firstNative(nativeCodes),
		ShippingAmount:  option.Price,
		TaxAmount:       option.TaxAmount,
		TaxRate:         option.TaxRate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if existing != nil {
		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if existing.NativeMethod != "" {
			record.NativeMethod = existing.NativeMethod
		}
	}

	if err := s.repo.Upsert(ctx, s.db, record); err != nil {
		return err
	}

	// Force the synthetic method so tax/shipping total calculators detect
	// the active gateway and defer to the stored values.
	if err := s.quotes.SetShippingMethod(ctx, cartID, domain.MethodCode); err != nil {
		return err
	}
	if _, err := s.quotes.CollectTotals(ctx, cartID); err != nil {
		return err
	}

	s.log.Info("shipping gateway activated",
		zap.String("cart_id", cartID),
		zap.String("session_id", sessionID),
		zap.String("option", option.Name),
		zap.Bool("pickup_point", record.IsPickupPoint),
	)
	return nil
}

func (s *Service) Deactivate(ctx context.Context, cartID, sessionID string) error {
	release, ok, err := s.locks.Acquire(ctx, "cart:"+cartID, lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoRecord
	}
	defer release(ctx)

	nativeMethod := ""
	if existing, err := s.repo.FindBySession(ctx, s.db, sessionID); err != nil {
		return err
	} else if existing != nil {
		nativeMethod = existing.NativeMethod
	}
	return s.fallback(ctx, cartID, sessionID, nativeMethod)
}

// fallback deactivates the record, clears any synthetic selection, then
// recollects totals before shipping rates. Recollecting rates first can bill
// a "per order" fee twice.
func (s *Service) fallback(ctx context.Context, cartID, sessionID, nativeMethod string) error {
	if err := s.repo.SetActive(ctx, s.db, sessionID, false); err != nil {
		return err
	}
	if nativeMethod != "" {
		if err := s.quotes.SetShippingMethod(ctx, cartID, nativeMethod); err != nil {
			return err
		}
	}
	if _, err := s.quotes.CollectTotals(ctx, cartID); err != nil {
		return err
	}
	if err := s.quotes.CollectShippingRates(ctx, cartID); err != nil {
		return err
	}
	return nil
}

func (s *Service) ActiveOverride(ctx context.Context, sessionID string) (*orderline.ShippingOverride, error) {
	record, err := s.repo.FindBySession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if record == nil || !record.IsActive {
		return nil, nil
	}
	return &orderline.ShippingOverride{
		Amount:        record.ShippingAmount,
		TaxAmount:     record.TaxAmount,
		TaxRate:       record.TaxRate,
		IsPickupPoint: record.IsPickupPoint,
		Name:          record.PickupPointName,
	}, nil
}

// nativeCode returns the matched host rate code when the option is one of the
// host's own methods, or "" when it belongs to the gateway. The synthetic
// method code never counts as native.
func nativeCode(option provider.ShippingOption, nativeCodes []string) string {
	for _, code := range nativeCodes {
		if code == "" || code == domain.MethodCode {
			continue
		}
		if code == option.ID || code == option.ShippingMethod {
			return code
		}
	}
	return ""
}

func firstNative(nativeCodes []string) string {
	for _, code := range nativeCodes {
		if code != "" && code != domain.MethodCode {
			return code
		}
	}
	return ""
}
