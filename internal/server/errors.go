package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ordersyncdomain "github.com/smallbiznis/kassa/internal/ordersync/domain"
	"github.com/smallbiznis/kassa/internal/provider"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	sessiondomain "github.com/smallbiznis/kassa/internal/session/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, quotedomain.ErrCartNotFound),
		errors.Is(err, quotedomain.ErrOrderNotFound),
		errors.Is(err, sessiondomain.ErrNoSession),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, sessiondomain.ErrCartNotPriceable):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "cart_not_priceable",
			Message: "cart has no priceable items",
		}
	case errors.Is(err, sessiondomain.ErrCartBusy):
		return http.StatusConflict, errorPayload{
			Type:    "cart_busy",
			Message: "another operation holds the cart",
		}
	case errors.Is(err, ordersyncdomain.ErrTotalMismatch):
		return http.StatusConflict, errorPayload{
			Type:    "order_total_mismatch",
			Message: "remote and local totals disagree",
		}
	case errors.Is(err, provider.ErrTimeout),
		errors.Is(err, provider.ErrTransport),
		errors.Is(err, sessiondomain.ErrSessionUnavailable):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_unavailable",
			Message: "provider unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
