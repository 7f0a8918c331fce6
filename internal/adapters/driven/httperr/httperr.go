// Package httperr classifies HTTP API failures from AI providers into the
// domain's retryable and permanent errors.
package httperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// maxBodyInError caps how much of a response body is quoted in an error.
const maxBodyInError = 512

// APIError is a non-2xx response from a provider API.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string

	// RetryAfter is parsed from the Retry-After header, zero when absent.
	RetryAfter time.Duration

	kind error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap exposes ErrRateLimited or ErrUpstreamUnavailable for retryable statuses.
func (e *APIError) Unwrap() error { return e.kind }

// FromResponse builds an APIError from a failed response. message, when
// non-empty, is the provider's decoded error text; otherwise the raw body is used.
func FromResponse(provider string, resp *http.Response, body []byte, message string) error {
	if message == "" {
		message = strings.TrimSpace(string(body))
		if len(message) > maxBodyInError {
			message = message[:maxBodyInError] + "..."
		}
	}
	e := &APIError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    message,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		e.kind = domain.ErrRateLimited
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= http.StatusInternalServerError:
		e.kind = domain.ErrUpstreamUnavailable
	}
	return e
}

// FromTransport wraps a request failure. Timeouts and connection errors are
// marked retryable unless the caller's context ended.
func FromTransport(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", provider, ctx.Err())
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", provider, domain.ErrUpstreamUnavailable, err)
	}
	return fmt.Errorf("%s: send request: %w", provider, err)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
