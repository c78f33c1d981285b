package domain

import (
	"context"
	"errors"
)

// Path identifies which delivery path triggered a reconciliation.
type Path string

const (
	// PathConfirmation is the synchronous browser redirect after checkout.
	PathConfirmation Path = "confirmation"
	// PathPush is the asynchronous server-to-server notification.
	PathPush Path = "push"
)

// Result is the outcome of a successful reconciliation.
type Result struct {
	OrderID string
	// AlreadyExists is true when a previous reconciliation created the order.
	// The confirmation path surfaces it to the shopper; the push path treats
	// it as silent success.
	AlreadyExists bool
}

// Service converts a completed remote session into a local order exactly once.
type Service interface {
	Reconcile(ctx context.Context, sessionID string, path Path, payload []byte) (*Result, error)
}

var (
	ErrSessionNotComplete = errors.New("session_not_complete")
	ErrTotalMismatch      = errors.New("order_total_mismatch")
	ErrAttemptsExhausted  = errors.New("push_attempts_exhausted")
)
