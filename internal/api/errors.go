package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// ErrUnsupported is returned by sources that cannot serve an endpoint
// (e.g. a snapshot file has no conversational backend behind it).
var ErrUnsupported = errors.New("endpoint not supported by this source")

// APIError represents a structured error response from the backend.
type APIError struct {
	StatusCode int            `json:"-"`
	Path       string         `json:"-"`
	Code       string         `json:"code,omitempty"`
	Message    string         `json:"message,omitempty"`
	Raw        map[string]any `json:"-"`
	RequestID  string         `json:"-"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api error: status=%d", e.StatusCode)
	if e.Path != "" {
		msg += " path=" + e.Path
	}
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.RequestID != "" {
		msg += " request_id=" + e.RequestID
	}
	if e.Message != "" {
		msg += " message=" + e.Message
	}
	return msg
}

// NotFoundError indicates the backend does not expose the requested endpoint.
type NotFoundError struct{ *APIError }

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.APIError.Error()) }

// BadRequestError indicates a 4xx request problem (e.g. missing question).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

// ServerError indicates 5xx errors from the backend.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("backend error: %s", e.APIError.Error()) }

// UnreachableError indicates the backend could not be contacted at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("backend unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// DecodeError indicates a 2xx response whose body did not have the expected shape.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("decode %s: %v", e.Path, e.Err) }

func (e *DecodeError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err means the backend could not give a usable
// answer: network failures, timeouts, 5xx, malformed payloads and unsupported
// endpoints all count. Callers with a local fallback treat these the same way.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnsupported) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var (
		unreachable *UnreachableError
		server      *ServerError
		decode      *DecodeError
		notFound    *NotFoundError
		nerr        net.Error
	)
	switch {
	case errors.As(err, &unreachable), errors.As(err, &server), errors.As(err, &decode), errors.As(err, &notFound):
		return true
	case errors.As(err, &nerr):
		return true
	}
	return false
}

// classifyAPIError maps generic APIError to typed errors.
func classifyAPIError(apiErr *APIError) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusNotFound:
		return &NotFoundError{APIError: apiErr}
	case sc == http.StatusTooManyRequests:
		return &RateLimitError{APIError: apiErr}
	case sc >= 400 && sc <= 499:
		return &BadRequestError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// RateLimitError indicates the backend throttled the request (HTTP 429).
type RateLimitError struct {
	*APIError
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.APIError.Error())
	}
	return fmt.Sprintf("rate limited: %s", e.APIError.Error())
}
