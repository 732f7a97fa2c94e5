package verifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadagent/mailfinder/pkg/httpclient"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestNewProviderError_Retryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		retryable bool
	}{
		{ErrorTimeout, true},
		{ErrorProviderOutage, true},
		{ErrorRateLimited, true},
		{ErrorAuthentication, false},
		{ErrorBadData, false},
		{ErrorInternal, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			err := NewProviderError(tt.category, "mailtester", "boom", nil)
			assert.Equal(t, tt.retryable, err.Retryable)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}
}

func TestProviderError_ErrorAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewProviderError(ErrorProviderOutage, "mailtester", "request failed", cause)

	assert.Equal(t, "provider mailtester [provider_outage]: request failed: dial tcp: refused", err.Error())
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("verify: %w", err)
	assert.Equal(t, ErrorProviderOutage, CategoryOf(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestCategoryOf_Unclassified(t *testing.T) {
	assert.Equal(t, ErrorInternal, CategoryOf(errors.New("plain")))
	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestClassifyTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"deadline", context.DeadlineExceeded, ErrorTimeout},
		{"net timeout", timeoutErr{}, ErrorTimeout},
		{"circuit open", fmt.Errorf("wrapped: %w", httpclient.ErrCircuitOpen), ErrorProviderOutage},
		{"server error", &httpclient.ServerError{StatusCode: http.StatusBadGateway}, ErrorProviderOutage},
		{"other", errors.New("connection reset"), ErrorProviderOutage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyTransport("mailtester", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, CategoryOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestClassifyTransport_PassesThroughCancellation(t *testing.T) {
	assert.NoError(t, ClassifyTransport("mailtester", nil))
	assert.Equal(t, context.Canceled, ClassifyTransport("mailtester", context.Canceled))
}

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, ErrorAuthentication, StatusCategory(http.StatusUnauthorized))
	assert.Equal(t, ErrorAuthentication, StatusCategory(http.StatusForbidden))
	assert.Equal(t, ErrorRateLimited, StatusCategory(http.StatusTooManyRequests))
	assert.Equal(t, ErrorProviderOutage, StatusCategory(http.StatusServiceUnavailable))
	assert.Equal(t, ErrorBadData, StatusCategory(http.StatusBadRequest))
}
