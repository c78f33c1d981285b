package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// InitCheckout prepares the hosted checkout for a cart and returns the HTML
// snippet. When the provider is unreachable the page still renders: the
// response carries available=false and no snippet.
func (s *Server) InitCheckout(c *gin.Context) {
	cartID := c.Param("cart_id")

	snippet, err := s.sessionSvc.InitCheckout(c.Request.Context(), cartID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if snippet == nil {
		c.JSON(http.StatusOK, gin.H{"available": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"available":    true,
		"session_id":   snippet.SessionID,
		"html_snippet": snippet.HTML,
	})
}

// MarkCartChanged flags the cart's session stale after a mutation so the next
// checkout interaction resyncs the order lines.
func (s *Server) MarkCartChanged(c *gin.Context) {
	if err := s.sessionSvc.MarkCartChanged(c.Request.Context(), c.Param("cart_id")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) GetCheckoutSession(c *gin.Context) {
	session, err := s.sessionSvc.EnsureSession(c.Request.Context(), c.Param("cart_id"), false, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
