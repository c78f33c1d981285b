package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Order-management operations against a completed session's remote order.
// Reads bypass the response cache: reconciliation decisions key on the
// current remote status, never a cached one.

func (c *Client) GetOrder(ctx context.Context, orderID string) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodGet, orderPath(orderID), nil)
}

// FraudStatus returns the remote fraud decision for an order.
func (c *Client) FraudStatus(ctx context.Context, orderID string) (string, *OrderResponse, error) {
	resp, err := c.orderCall(ctx, http.MethodGet, orderPath(orderID), nil)
	if err != nil {
		return "", nil, err
	}
	return resp.Order.FraudStatus, resp, nil
}

func (c *Client) Capture(ctx context.Context, orderID string, req *CaptureRequest) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(orderID)+"/captures", req)
}

func (c *Client) Refund(ctx context.Context, orderID string, req *RefundRequest) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(orderID)+"/refunds", req)
}

func (c *Client) Cancel(ctx context.Context, orderID string) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(orderID)+"/cancel", nil)
}

// Release frees the remaining authorization without cancelling captures.
func (c *Client) Release(ctx context.Context, orderID string) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(orderID)+"/release-remaining-authorization", nil)
}

func (c *Client) Acknowledge(ctx context.Context, orderID string) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(orderID)+"/acknowledge", nil)
}

func (c *Client) UpdateReferences(ctx context.Context, orderID string, req *UpdateReferencesRequest) (*OrderResponse, error) {
	return c.orderCall(ctx, http.MethodPatch, orderPath(orderID)+"/merchant-references", req)
}

func orderPath(orderID string) string {
	return orderManagementBasePath + "/" + url.PathEscape(orderID)
}

func (c *Client) orderCall(ctx context.Context, method, path string, payload any) (*OrderResponse, error) {
	raw, err := c.do(ctx, method, path, nil, payload, false)
	if err != nil {
		return nil, err
	}

	out := &OrderResponse{Response: *raw}
	if raw.Successful && len(raw.Raw) > 0 {
		if err := json.Unmarshal(raw.Raw, &out.Order); err != nil {
			// Some order operations answer 204 with no body; only a present
			// but unparsable body is a failure.
			out.Successful = false
			out.ErrorMessages = append(out.ErrorMessages, "malformed order body")
		}
	}
	return out, nil
}
