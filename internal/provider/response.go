package provider

import (
	"encoding/json"
	"errors"
)

// Configuration faults. These are raised immediately and never retried.
var (
	ErrMissingCredentials = errors.New("provider: missing api credentials")
	ErrInvalidBaseURL     = errors.New("provider: invalid base url")
	ErrUnknownVariant     = errors.New("provider: unknown api variant")
)

// ErrTimeout marks a transport timeout. The remote state is unknown; callers
// must never treat it as a definite failure.
var ErrTimeout = errors.New("provider: request timed out")

// ErrTransport marks a non-timeout transport failure.
var ErrTransport = errors.New("provider: transport failure")

// Error codes the session manager keys recovery decisions on.
const (
	ErrCodeReadOnlyOrder = "READ_ONLY_ORDER"
	ErrCodeNotFound      = "NOT_FOUND"
)

// Response is the structured outcome of a provider call. Business failures
// are carried here, never as Go errors, so callers can decide to retry, fall
// back or cancel without exception-driven control flow.
type Response struct {
	Successful    bool
	HTTPStatus    int
	ErrorCode     string
	ErrorMessages []string
	Raw           json.RawMessage
}

// IsSuccessful reports whether the remote call succeeded at business level.
func (r *Response) IsSuccessful() bool {
	return r != nil && r.Successful
}

// Ambiguous reports a failure with no usable error code: an expired or locked
// session often answers this way and the caller may fall back to creating a
// fresh one.
func (r *Response) Ambiguous() bool {
	return r != nil && !r.Successful && r.ErrorCode == ""
}

// ReadOnly reports the remote session can no longer be written.
func (r *Response) ReadOnly() bool {
	return r != nil && r.ErrorCode == ErrCodeReadOnlyOrder
}

type errorBody struct {
	ErrorCode     string   `json:"error_code"`
	ErrorMessages []string `json:"error_messages"`
}

// SessionResponse wraps a session CRUD outcome.
type SessionResponse struct {
	Response
	Session Session
}

// OrderResponse wraps an order-management outcome.
type OrderResponse struct {
	Response
	Order RemoteOrder
}
