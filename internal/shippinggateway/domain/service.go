package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kassa/internal/orderline"
	"github.com/smallbiznis/kassa/internal/provider"
	"gorm.io/gorm"
)

// Service tracks provider-selected shipping options that bypass the host's
// shipping-rate model.
type Service interface {
	// Apply records a provider-selected shipping option. Options matching a
	// host-native rate code fall back to host rates; everything else
	// activates the gateway record and forces the synthetic method code.
	Apply(ctx context.Context, cartID, sessionID string, option provider.ShippingOption, nativeCodes []string) error

	// Deactivate clears the record and restores host shipping selection.
	// Totals are recollected before shipping rates; the reverse order can
	// double a per-order fee.
	Deactivate(ctx context.Context, cartID, sessionID string) error

	// ActiveOverride projects the active record into the collector pass.
	// Returns nil when host rates apply.
	ActiveOverride(ctx context.Context, sessionID string) (*orderline.ShippingOverride, error)
}

type Repository interface {
	FindBySession(ctx context.Context, db *gorm.DB, sessionID string) (*Record, error)
	Upsert(ctx context.Context, db *gorm.DB, record *Record) error
	SetActive(ctx context.Context, db *gorm.DB, sessionID string, active bool) error
}

var ErrNoRecord = errors.New("shipping_gateway_record_not_found")
