package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Classified error codes. Timeout, rate-limited and network errors are
// retryable; invalid recipient and auth failures are terminal.
const (
	CodeProviderTimeout     = "PROVIDER_TIMEOUT"
	CodeProviderRateLimited = "PROVIDER_RATE_LIMITED"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeTemporaryFailure    = "TEMPORARY_FAILURE"
	CodeInvalidRecipient    = "INVALID_RECIPIENT"
	CodeAuthFailure         = "AUTH_FAILURE"
	CodeProviderError       = "PROVIDER_ERROR"
	CodeUnknownError        = "UNKNOWN_ERROR"
)

// ProviderError classifies provider call failures as transient/permanent.
type ProviderError struct {
	Provider   string
	Code       string
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 5)
	parts = append(parts, "provider error")

	if p := strings.TrimSpace(e.Provider); p != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", p))
	}
	if c := strings.TrimSpace(e.Code); c != "" {
		parts = append(parts, fmt.Sprintf("code=%s", c))
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether an error should be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// ErrorCode extracts the classified code from an error chain.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) && strings.TrimSpace(providerErr.Code) != "" {
		return providerErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeProviderTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return CodeProviderTimeout
		}
		return CodeNetworkError
	}

	return CodeUnknownError
}

// IsTimeout reports whether an error chain represents a timed-out send.
func IsTimeout(err error) bool {
	return ErrorCode(err) == CodeProviderTimeout
}
