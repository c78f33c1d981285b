package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/kassa/internal/money"
	"github.com/smallbiznis/kassa/internal/orderline"
	ordersyncdomain "github.com/smallbiznis/kassa/internal/ordersync/domain"
	"github.com/smallbiznis/kassa/internal/payload"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	sgdomain "github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	"go.uber.org/zap"
)

// addressUpdateRequest is the subset of the provider's callback body the
// bridge acts on.
type addressUpdateRequest struct {
	BillingAddress  *quotedomain.Address `json:"billing_address"`
	ShippingAddress *quotedomain.Address `json:"shipping_address"`
}

type shippingUpdateRequest struct {
	SelectedShippingOption provider.ShippingOption `json:"selected_shipping_option"`
}

type validateRequest struct {
	OrderAmount int64 `json:"order_amount"`
}

type notificationRequest struct {
	EventType string `json:"event_type"`
	OrderID   string `json:"order_id"`
}

// orderLinesResponse is the shape all line-returning callbacks answer with.
type orderLinesResponse struct {
	OrderAmount      int64            `json:"order_amount"`
	OrderTaxAmount   int64            `json:"order_tax_amount"`
	OrderLines       []orderline.Line `json:"order_lines"`
	PurchaseCurrency string           `json:"purchase_currency,omitempty"`
}

// AddressUpdate receives the shopper's address selection mid-checkout, writes
// it back to the cart and answers with the recomputed order lines. A failure
// redirects the hosted checkout to the merchant failure page instead of
// surfacing an API error the provider cannot render.
func (s *Server) AddressUpdate(c *gin.Context) {
	sid := c.Query("sid")
	var req addressUpdateRequest
	if sid == "" || c.ShouldBindJSON(&req) != nil {
		s.metrics.callback("address_update", "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	link, err := s.sessionSvc.LinkBySession(c.Request.Context(), sid)
	if err != nil {
		s.metrics.callback("address_update", "unknown_session")
		s.redirectToFailure(c)
		return
	}

	if req.BillingAddress != nil || req.ShippingAddress != nil {
		if err := s.quotes.UpdateAddresses(c.Request.Context(), link.CartID, req.BillingAddress, req.ShippingAddress); err != nil {
			s.log.Warn("address write-back failed", zap.String("cart_id", link.CartID), zap.Error(err))
			s.metrics.callback("address_update", "error")
			s.redirectToFailure(c)
			return
		}
	}

	resp, err := s.regenerateLines(c, link.CartID, sid)
	if err != nil {
		s.metrics.callback("address_update", "error")
		s.redirectToFailure(c)
		return
	}

	s.metrics.callback("address_update", "ok")
	c.JSON(http.StatusOK, resp)
}

// ShippingUpdate applies the shopper's shipping choice. Options not present in
// the host's rate catalog (pickup points included) activate the gateway
// override; native options fall back to host rates.
func (s *Server) ShippingUpdate(c *gin.Context) {
	sid := c.Query("sid")
	var req shippingUpdateRequest
	if sid == "" || c.ShouldBindJSON(&req) != nil {
		s.metrics.callback("shipping_update", "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	link, err := s.sessionSvc.LinkBySession(c.Request.Context(), sid)
	if err != nil {
		s.metrics.callback("shipping_update", "unknown_session")
		s.redirectToFailure(c)
		return
	}

	quote, err := s.quotes.Get(c.Request.Context(), link.CartID)
	if err != nil || quote == nil {
		s.metrics.callback("shipping_update", "error")
		s.redirectToFailure(c)
		return
	}

	if err := s.gatewaySvc.Apply(c.Request.Context(), link.CartID, sid, req.SelectedShippingOption, nativeMethods(quote)); err != nil {
		s.log.Warn("shipping option apply failed",
			zap.String("cart_id", link.CartID),
			zap.String("option", req.SelectedShippingOption.Name),
			zap.Error(err),
		)
		s.metrics.callback("shipping_update", "error")
		s.redirectToFailure(c)
		return
	}

	resp, err := s.regenerateLines(c, link.CartID, sid)
	if err != nil {
		s.metrics.callback("shipping_update", "error")
		s.redirectToFailure(c)
		return
	}

	s.metrics.callback("shipping_update", "ok")
	c.JSON(http.StatusOK, resp)
}

// Validate is the provider's last check before completing the purchase. 200
// lets the purchase through; any business failure answers 303 with a Location
// to the merchant failure page.
func (s *Server) Validate(c *gin.Context) {
	sid := c.Query("sid")
	var req validateRequest
	if sid == "" || c.ShouldBindJSON(&req) != nil {
		s.metrics.callback("validate", "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	link, err := s.sessionSvc.LinkBySession(c.Request.Context(), sid)
	if err != nil {
		s.metrics.callback("validate", "unknown_session")
		s.validationFailure(c)
		return
	}

	quote, err := s.quotes.CollectTotals(c.Request.Context(), link.CartID)
	if err != nil || quote == nil || len(quote.LineItems()) == 0 {
		s.metrics.callback("validate", "cart_gone")
		s.validationFailure(c)
		return
	}

	localTotal := money.ToMinor(quote.GrandTotalInclTax())
	diff := req.OrderAmount - localTotal
	if diff < 0 {
		diff = -diff
	}
	if diff > s.cfg.Provider.TotalTolerance && !quote.Recurring() {
		s.log.Warn("validation total mismatch",
			zap.String("session_id", sid),
			zap.Int64("remote_total", req.OrderAmount),
			zap.Int64("local_total", localTotal),
		)
		s.metrics.callback("validate", "total_mismatch")
		s.validationFailure(c)
		return
	}

	s.metrics.callback("validate", "ok")
	c.Status(http.StatusOK)
}

// Push is the asynchronous order-created notification. 200 stops redelivery,
// 500 asks the provider to retry.
func (s *Server) Push(c *gin.Context) {
	sid := c.Query("sid")
	if sid == "" {
		s.metrics.callback("push", "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing sid"})
		return
	}
	body, _ := io.ReadAll(c.Request.Body)

	result, err := s.reconciler.Reconcile(c.Request.Context(), sid, ordersyncdomain.PathPush, body)
	switch {
	case err == nil:
		outcome := "created"
		if result.AlreadyExists {
			outcome = "already_exists"
		}
		s.metrics.callback("push", "ok")
		s.metrics.reconciliation("push", outcome)
		c.Status(http.StatusOK)
	case errors.Is(err, ordersyncdomain.ErrAttemptsExhausted):
		// The reservation was cancelled; tell the provider to stop.
		s.metrics.callback("push", "ok")
		s.metrics.reconciliation("push", "cancelled")
		c.Status(http.StatusOK)
	default:
		s.log.Warn("push reconcile failed", zap.String("session_id", sid), zap.Error(err))
		s.metrics.callback("push", "error")
		s.metrics.reconciliation("push", "error")
		c.Status(http.StatusInternalServerError)
	}
}

// Notification is fire-and-forget. It always answers 200 once the body parses;
// reconciliation is attempted best-effort so a lost confirmation redirect
// still produces an order eventually.
func (s *Server) Notification(c *gin.Context) {
	sid := c.Query("sid")
	var req notificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.callback("notification", "malformed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed callback"})
		return
	}

	s.log.Info("provider notification",
		zap.String("session_id", sid),
		zap.String("event_type", req.EventType),
	)

	if sid != "" {
		if _, err := s.reconciler.Reconcile(c.Request.Context(), sid, ordersyncdomain.PathPush, nil); err != nil {
			s.log.Debug("notification reconcile skipped", zap.String("session_id", sid), zap.Error(err))
		}
	}

	s.metrics.callback("notification", "ok")
	c.Status(http.StatusOK)
}

// Confirmation is the shopper's browser redirect after completing checkout.
// It reconciles synchronously and forwards to the merchant success page; on
// failure the shopper lands back on the checkout page.
func (s *Server) Confirmation(c *gin.Context) {
	sid := c.Query("sid")
	if sid == "" {
		s.metrics.callback("confirmation", "malformed")
		s.redirectToFailure(c)
		return
	}

	result, err := s.reconciler.Reconcile(c.Request.Context(), sid, ordersyncdomain.PathConfirmation, nil)
	if err != nil {
		s.log.Warn("confirmation reconcile failed", zap.String("session_id", sid), zap.Error(err))
		s.metrics.callback("confirmation", "error")
		s.metrics.reconciliation("confirmation", "error")
		s.redirectToFailure(c)
		return
	}

	outcome := "created"
	if result.AlreadyExists {
		outcome = "already_exists"
	}
	s.metrics.callback("confirmation", "ok")
	s.metrics.reconciliation("confirmation", outcome)

	base := strings.TrimSuffix(s.merchant.Get().CallbackBaseURL, "/")
	target := base + "/checkout/success?order=" + result.OrderID
	if result.AlreadyExists {
		target += "&existing=1"
	}
	c.Redirect(http.StatusFound, target)
}

// regenerateLines rebuilds the order-line view of the cart after a callback
// mutated it, honoring an active gateway override.
func (s *Server) regenerateLines(c *gin.Context, cartID, sessionID string) (*orderLinesResponse, error) {
	quote, err := s.quotes.CollectTotals(c.Request.Context(), cartID)
	if err != nil {
		return nil, err
	}

	override, err := s.gatewaySvc.ActiveOverride(c.Request.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	req, err := s.builder.Generate(c.Request.Context(), payload.ModeUpdate, quote, override)
	if err != nil {
		return nil, err
	}

	return &orderLinesResponse{
		OrderAmount:      req.OrderAmount,
		OrderTaxAmount:   req.OrderTaxAmount,
		OrderLines:       req.OrderLines,
		PurchaseCurrency: quote.StoreContext().Currency,
	}, nil
}

func (s *Server) redirectToFailure(c *gin.Context) {
	base := strings.TrimSuffix(s.merchant.Get().CallbackBaseURL, "/")
	c.Redirect(http.StatusSeeOther, base+"/checkout?payment_failed=1")
}

func (s *Server) validationFailure(c *gin.Context) {
	base := strings.TrimSuffix(s.merchant.Get().CallbackBaseURL, "/")
	c.Header("Location", base+"/checkout?validation_failed=1")
	c.Status(http.StatusSeeOther)
}

// nativeMethods lists the host rate codes the selected option is matched
// against. The synthetic gateway code is not a host method; while it is on
// the cart the remembered pre-override method on the gateway record takes
// over the matching.
func nativeMethods(quote *quotedomain.Quote) []string {
	method := quote.Shipping().Method
	if method == "" || method == sgdomain.MethodCode {
		return nil
	}
	return []string{method}
}
