package verifier

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/leadagent/mailfinder/pkg/httpclient"
)

// ErrorCategory is the normalized failure taxonomy for providers.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned invalid or malformed data.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates a rejected API key or token.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unavailable.
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates too many requests.
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected local error.
	ErrorInternal ErrorCategory = "internal"
)

// Sentinel errors.
var (
	// ErrNoToken is returned when the token endpoint answers without a token.
	ErrNoToken = errors.New("provider returned no token")

	// ErrCircuitOpen is returned while the provider circuit breaker is open.
	ErrCircuitOpen = httpclient.ErrCircuitOpen
)

// ProviderError wraps provider failures with a normalized category.
type ProviderError struct {
	Category   ErrorCategory
	ProviderID string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("provider %s [%s]: %s: %v", e.ProviderID, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("provider %s [%s]: %s", e.ProviderID, e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// NewProviderError creates a categorized provider error. Timeouts, outages
// and rate limiting are retryable.
func NewProviderError(category ErrorCategory, providerID, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		ProviderID: providerID,
		Message:    message,
		Underlying: underlying,
		Retryable: category == ErrorTimeout ||
			category == ErrorProviderOutage ||
			category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a retryable ProviderError.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// CategoryOf extracts the category of err. Unclassified errors are internal.
func CategoryOf(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// ClassifyTransport categorizes an error returned by the HTTP transport
// before any provider answer was read. Cancellation is returned unchanged so
// callers can tell an abandoned check from a failed one.
func ClassifyTransport(providerID string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var (
		netErr    net.Error
		serverErr *httpclient.ServerError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return NewProviderError(ErrorTimeout, providerID, "request timed out", err)
	case errors.Is(err, ErrCircuitOpen):
		return NewProviderError(ErrorProviderOutage, providerID, "circuit open", err)
	case errors.As(err, &serverErr):
		return NewProviderError(ErrorProviderOutage, providerID, serverErr.Message(), err)
	default:
		return NewProviderError(ErrorProviderOutage, providerID, "request failed", err)
	}
}

// StatusCategory maps a non-2xx HTTP status to a category.
func StatusCategory(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}
