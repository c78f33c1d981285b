package domain

import (
	"context"
	"errors"
)

// Repository is the host-platform collaborator contract for cart access.
// The bridge never owns cart persistence; the host supplies an implementation.
type Repository interface {
	Get(ctx context.Context, cartID string) (*Quote, error)
	Save(ctx context.Context, quote *Quote) error

	// UpdateAddresses writes provider-reconciled addresses back to the cart.
	UpdateAddresses(ctx context.Context, cartID string, billing, shipping *Address) error

	// SetShippingMethod forces the cart's shipping selection to the given
	// code. Used when a provider-chosen gateway option is active.
	SetShippingMethod(ctx context.Context, cartID, method string) error

	// CollectTotals re-runs the host's total calculation and returns the
	// refreshed cart.
	CollectTotals(ctx context.Context, cartID string) (*Quote, error)

	// CollectShippingRates re-runs the host's shipping rate collection.
	// Totals must be recollected before rates or per-order fees double.
	CollectShippingRates(ctx context.Context, cartID string) error
}

// OrderWriter is the host-platform collaborator contract for order creation.
type OrderWriter interface {
	// CreateFromQuote converts the cart into a persisted order and returns
	// the local order id. Must be called at most once per remote session.
	CreateFromQuote(ctx context.Context, quote *Quote, sessionID string) (string, error)

	// MarkPaymentFailed flags the order's payment as failed after a late
	// reconciliation abort.
	MarkPaymentFailed(ctx context.Context, orderID string) error

	// CancelOrder cancels a local order whose confirmation never completed.
	CancelOrder(ctx context.Context, orderID string) error

	// OrderExists reports whether a local order id is still present.
	OrderExists(ctx context.Context, orderID string) (bool, error)
}

var (
	ErrCartNotFound  = errors.New("cart_not_found")
	ErrOrderNotFound = errors.New("order_not_found")
)
