package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/kassa/internal/provider"
)

// Service owns the cart-to-remote-session lifecycle.
type Service interface {
	// InitCheckout prepares the cart for checkout and attempts session init.
	// Init failures are logged and swallowed: the checkout page renders
	// without a live snippet and the caller must tolerate a nil result.
	InitCheckout(ctx context.Context, cartID string) (*Snippet, error)

	// EnsureSession returns a live remote session for the cart, creating or
	// resyncing as requested. An ambiguous or read-only update failure falls
	// back to creating a fresh session when creation is allowed.
	EnsureSession(ctx context.Context, cartID string, createIfMissing, updateItems bool) (*provider.Session, error)

	// MarkCartChanged flags the active link stale after a cart mutation.
	MarkCartChanged(ctx context.Context, cartID string) error

	// ActiveLink returns the active link for a cart, nil when none exists.
	ActiveLink(ctx context.Context, cartID string) (*SessionLink, error)

	// LinkBySession resolves a link from a remote session id, for callbacks.
	LinkBySession(ctx context.Context, sessionID string) (*SessionLink, error)
}

// Snippet is the hosted checkout HTML handed to the storefront page.
type Snippet struct {
	SessionID string
	HTML      string
}

var (
	ErrNoSession          = errors.New("no_active_session")
	ErrCartNotPriceable   = errors.New("cart_not_priceable")
	ErrSessionUnavailable = errors.New("session_unavailable")
	ErrCartBusy           = errors.New("cart_busy")
)
