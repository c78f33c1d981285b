// Package hooks exposes the typed extension points merchant code can attach
// to. A hook observes or vetoes; returning an error vetoes the operation and
// must not silently change unrelated behavior.
package hooks

import (
	"context"
	"sync"

	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
)

// RequestHook runs around session payload generation.
type RequestHook func(ctx context.Context, quote *quotedomain.Quote, req *provider.SessionRequest) error

// OrderHook runs around local order creation from a remote session.
type OrderHook func(ctx context.Context, quote *quotedomain.Quote, session *provider.Session) error

// PostOrderHook observes a persisted local order.
type PostOrderHook func(ctx context.Context, orderID string, session *provider.Session)

// ReconcileHook runs before a push reconciliation attempt.
type ReconcileHook func(ctx context.Context, sessionID string) error

// Registry holds the registered hooks. Registration happens at startup;
// invocation is read-only and safe across requests.
type Registry struct {
	mu               sync.RWMutex
	preRequestBuild  []RequestHook
	postRequestBuild []RequestHook
	preOrderSave     []OrderHook
	postOrderSave    []PostOrderHook
	prePushReconcile []ReconcileHook
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) OnPreRequestBuild(h RequestHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preRequestBuild = append(r.preRequestBuild, h)
}

func (r *Registry) OnPostRequestBuild(h RequestHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postRequestBuild = append(r.postRequestBuild, h)
}

func (r *Registry) OnPreOrderSave(h OrderHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preOrderSave = append(r.preOrderSave, h)
}

func (r *Registry) OnPostOrderSave(h PostOrderHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postOrderSave = append(r.postOrderSave, h)
}

func (r *Registry) OnPrePushReconcile(h ReconcileHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prePushReconcile = append(r.prePushReconcile, h)
}

func (r *Registry) PreRequestBuild(ctx context.Context, quote *quotedomain.Quote, req *provider.SessionRequest) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.preRequestBuild {
		if err := h(ctx, quote, req); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) PostRequestBuild(ctx context.Context, quote *quotedomain.Quote, req *provider.SessionRequest) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.postRequestBuild {
		if err := h(ctx, quote, req); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) PreOrderSave(ctx context.Context, quote *quotedomain.Quote, session *provider.Session) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.preOrderSave {
		if err := h(ctx, quote, session); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) PostOrderSave(ctx context.Context, orderID string, session *provider.Session) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.postOrderSave {
		h(ctx, orderID, session)
	}
}

func (r *Registry) PrePushReconcile(ctx context.Context, sessionID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.prePushReconcile {
		if err := h(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}
