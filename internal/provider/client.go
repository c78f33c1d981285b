// Package provider is the thin REST wrapper around the hosted-checkout
// provider's session and order-management endpoints.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/smallbiznis/kassa/internal/config"
	"go.uber.org/zap"
)

const (
	checkoutBasePath        = "/checkout/v1/sessions"
	orderManagementBasePath = "/ordermanagement/v1/orders"
)

// Client issues session CRUD and order-management calls. Business failures
// come back as structured responses; only transport and configuration faults
// surface as errors.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	username   string
	password   string
	cache      *responseCache
	log        *zap.Logger
}

// NewClient validates provider configuration and builds the client.
func NewClient(cfg config.ProviderConfig, log *zap.Logger) (*Client, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return nil, ErrMissingCredentials
	}
	switch cfg.APIVariant {
	case config.APIVariantStandard, config.APIVariantExtended:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, cfg.APIVariant)
	}

	parsed, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    parsed,
		username:   cfg.Username,
		password:   cfg.Password,
		cache:      newResponseCache(time.Duration(cfg.CacheTTLSecs) * time.Second),
		log:        log.Named("provider.client"),
	}, nil
}

// CreateSession creates a new checkout session.
func (c *Client) CreateSession(ctx context.Context, payload *SessionRequest) (*SessionResponse, error) {
	return c.sessionCall(ctx, http.MethodPost, checkoutBasePath, payload)
}

// UpdateSession regenerates the mutable parts of an existing session.
func (c *Client) UpdateSession(ctx context.Context, sessionID string, payload *SessionRequest) (*SessionResponse, error) {
	path := checkoutBasePath + "/" + url.PathEscape(sessionID)
	resp, err := c.sessionCall(ctx, http.MethodPost, path, payload)
	if err == nil && resp.IsSuccessful() {
		c.cache.InvalidatePath(path)
	}
	return resp, err
}

// GetSession fetches a session. Successful reads may be served from cache.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionResponse, error) {
	return c.sessionCall(ctx, http.MethodGet, checkoutBasePath+"/"+url.PathEscape(sessionID), nil)
}

func (c *Client) sessionCall(ctx context.Context, method, path string, payload *SessionRequest) (*SessionResponse, error) {
	var body any
	if payload != nil {
		body = payload
	}
	raw, err := c.do(ctx, method, path, nil, body, true)
	if err != nil {
		return nil, err
	}

	out := &SessionResponse{Response: *raw}
	if raw.Successful && len(raw.Raw) > 0 {
		if err := json.Unmarshal(raw.Raw, &out.Session); err != nil {
			out.Successful = false
			out.ErrorMessages = append(out.ErrorMessages, "malformed session body")
		}
	}
	return out, nil
}

// do executes one HTTP exchange. With cacheable set, GET responses are
// cached by request shape; order-management reads pass false because the
// reconciler must always see the current remote state.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, payload any, cacheable bool) (*Response, error) {
	key := ""
	if cacheable && method == http.MethodGet {
		key = cacheKey(method, path, params)
		if body, status, ok := c.cache.Get(key); ok {
			return c.decode(body, status), nil
		}
	}

	target := *c.baseURL
	target.Path = strings.TrimSuffix(target.Path, "/") + path
	if len(params) > 0 {
		target.RawQuery = params.Encode()
	}

	var reqBody *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: encode payload: %v", ErrTransport, err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.log.Warn("provider call timed out",
				zap.String("method", method),
				zap.String("path", path),
			)
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}

	if key != "" && resp.StatusCode < 300 {
		c.cache.Set(key, body, resp.StatusCode)
	}

	return c.decode(body, resp.StatusCode), nil
}

func (c *Client) decode(body []byte, status int) *Response {
	out := &Response{
		HTTPStatus: status,
		Successful: status >= 200 && status < 300,
		Raw:        body,
	}
	if !out.Successful && len(body) > 0 {
		var parsed errorBody
		if err := json.Unmarshal(body, &parsed); err == nil {
			out.ErrorCode = parsed.ErrorCode
			out.ErrorMessages = parsed.ErrorMessages
		}
	}
	return out
}

func isTimeout(err error) bool {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
