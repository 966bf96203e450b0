package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies a provider failure for the job queue's retry decision.
type ErrorKind string

const (
	// Retryable with backoff
	KindRateLimited ErrorKind = "rate_limited"
	KindTimeout     ErrorKind = "timeout"

	// Terminal: operator or user action required
	KindAuthFailed        ErrorKind = "auth_failed"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// ProviderError wraps every failure crossing the Provider boundary.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (%s): %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying with backoff.
// Rate limits and timeouts clear on their own; auth failures and garbage
// responses do not.
func (e *ProviderError) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindTimeout
}

func newError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// classifyTransportError maps request-level failures. Timeouts and transport
// errors are equivalent for retry purposes.
func classifyTransportError(provider string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(provider, KindTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(provider, KindTimeout, err)
	}
	// Connection refused, DNS failure, reset: treated like a timeout.
	return newError(provider, KindTimeout, err)
}

// classifyStatus maps a non-200 HTTP response to an error kind.
func classifyStatus(provider string, status int, body string) *ProviderError {
	err := fmt.Errorf("API error (status %d): %s", status, body)
	switch {
	case status == http.StatusTooManyRequests:
		return newError(provider, KindRateLimited, err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(provider, KindAuthFailed, err)
	case status == http.StatusRequestTimeout || status >= 500:
		return newError(provider, KindTimeout, err)
	default:
		return newError(provider, KindMalformedResponse, err)
	}
}
