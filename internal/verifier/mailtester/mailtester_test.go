package mailtester

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadagent/mailfinder/internal/verifier"
	"github.com/leadagent/mailfinder/pkg/logger"
)

const (
	testTokenURL = "https://token.test/token"
	testCheckURL = "https://check.test/ninja"
)

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	c := New(Config{TokenURL: testTokenURL, CheckURL: testCheckURL, Timeout: time.Second}, logger.Discard())
	transport := httpmock.NewMockTransport()
	c.http.HTTPClient().Transport = transport
	return c, transport
}

func registerCheck(transport *httpmock.MockTransport, address string, responder httpmock.Responder) {
	transport.RegisterResponderWithQuery(http.MethodGet, testCheckURL,
		map[string]string{"email": address, "token": "tok"}, responder)
}

func TestToken_Success(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponderWithQuery(http.MethodGet, testTokenURL, "key=secret",
		httpmock.NewStringResponder(http.StatusOK, `{"token":"tok-123"}`))

	token, err := c.Token(context.Background(), "secret")

	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestToken_EmptyToken(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testTokenURL,
		httpmock.NewStringResponder(http.StatusOK, `{"token":""}`))

	_, err := c.Token(context.Background(), "secret")

	require.Error(t, err)
	assert.ErrorIs(t, err, verifier.ErrNoToken)
	assert.Equal(t, verifier.ErrorBadData, verifier.CategoryOf(err))
}

func TestToken_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   verifier.ErrorCategory
	}{
		{"unauthorized", http.StatusUnauthorized, verifier.ErrorAuthentication},
		{"rate limited", http.StatusTooManyRequests, verifier.ErrorRateLimited},
		{"outage", http.StatusServiceUnavailable, verifier.ErrorProviderOutage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport := newTestClient(t)
			transport.RegisterResponder(http.MethodGet, testTokenURL,
				httpmock.NewStringResponder(tt.status, `{"message":"nope"}`))

			token, err := c.Token(context.Background(), "secret")

			require.Error(t, err)
			assert.Empty(t, token)
			assert.Equal(t, tt.want, verifier.CategoryOf(err))
			assert.Equal(t, 1, transport.GetTotalCallCount(), "token requests are never retried")
		})
	}
}

func TestToken_TransportFailure(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testTokenURL,
		httpmock.NewErrorResponder(errors.New("connection refused")))

	_, err := c.Token(context.Background(), "secret")

	require.Error(t, err)
	assert.Equal(t, verifier.ErrorProviderOutage, verifier.CategoryOf(err))
}

func TestVerify_Deliverable(t *testing.T) {
	c, transport := newTestClient(t)
	registerCheck(transport, "jane.doe@acme.com",
		httpmock.NewStringResponder(http.StatusOK, `{"code":"ok","message":"Accepted"}`))

	out, err := c.Verify(context.Background(), "jane.doe@acme.com", "tok")

	require.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Equal(t, "Accepted", out.Status)
	assert.Equal(t, "ok", out.Code)
	assert.Equal(t, "jane.doe@acme.com", out.Address)
}

func TestVerify_CatchAll(t *testing.T) {
	c, transport := newTestClient(t)
	registerCheck(transport, "jdoe@acme.com",
		httpmock.NewStringResponder(http.StatusOK, `{"code":"mb","message":"Catch-All"}`))

	out, err := c.Verify(context.Background(), "jdoe@acme.com", "tok")

	require.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Equal(t, "Catch-All", out.Status)
}

func TestVerify_Rejected(t *testing.T) {
	c, transport := newTestClient(t)
	registerCheck(transport, "jane@acme.com",
		httpmock.NewStringResponder(http.StatusOK, `{"code":"ko","message":"Rejected"}`))

	out, err := c.Verify(context.Background(), "jane@acme.com", "tok")

	require.NoError(t, err)
	assert.False(t, out.Deliverable)
	assert.Equal(t, "Rejected", out.Status)
}

func TestVerify_StatusFallsBackToCode(t *testing.T) {
	c, transport := newTestClient(t)
	registerCheck(transport, "jane@acme.com",
		httpmock.NewStringResponder(http.StatusOK, `{"code":"ok"}`))

	out, err := c.Verify(context.Background(), "jane@acme.com", "tok")

	require.NoError(t, err)
	assert.True(t, out.Deliverable)
	assert.Equal(t, "ok", out.Status)
}

func TestVerify_Non200IsAnOutcome(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"message body", http.StatusBadRequest, `{"message":"Invalid Token"}`, "Invalid Token"},
		{"empty body", http.StatusForbidden, "", "http 403"},
		{"server error", http.StatusBadGateway, "", "http 502"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport := newTestClient(t)
			registerCheck(transport, "jane@acme.com", httpmock.NewStringResponder(tt.status, tt.body))

			out, err := c.Verify(context.Background(), "jane@acme.com", "tok")

			require.NoError(t, err)
			assert.False(t, out.Deliverable)
			assert.Equal(t, tt.want, out.Status)
		})
	}
}

func TestVerify_ServerErrorsLeaveTokenEndpointOpen(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testTokenURL,
		httpmock.NewStringResponder(http.StatusOK, `{"token":"tok"}`))
	registerCheck(transport, "jane@acme.com",
		httpmock.NewStringResponder(http.StatusServiceUnavailable, "maintenance"))

	for range 15 {
		out, err := c.Verify(context.Background(), "jane@acme.com", "tok")
		require.NoError(t, err)
		assert.False(t, out.Deliverable)
		assert.Equal(t, "maintenance", out.Status)
	}

	token, err := c.Token(context.Background(), "secret")

	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	assert.Equal(t, gobreaker.StateClosed, c.token.State())
}

func TestToken_BreakerOpensAfterRepeatedOutages(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodGet, testTokenURL,
		httpmock.NewStringResponder(http.StatusInternalServerError, ""))

	for range 10 {
		_, err := c.Token(context.Background(), "secret")
		require.Error(t, err)
	}
	calls := transport.GetTotalCallCount()

	_, err := c.Token(context.Background(), "secret")

	require.Error(t, err)
	assert.ErrorIs(t, err, verifier.ErrCircuitOpen)
	assert.Equal(t, verifier.ErrorProviderOutage, verifier.CategoryOf(err))
	assert.Equal(t, calls, transport.GetTotalCallCount(), "open breaker short-circuits the request")
}

func TestVerify_MalformedBody(t *testing.T) {
	c, transport := newTestClient(t)
	registerCheck(transport, "jane@acme.com", httpmock.NewStringResponder(http.StatusOK, `not json`))

	out, err := c.Verify(context.Background(), "jane@acme.com", "tok")

	require.Error(t, err)
	assert.False(t, out.Deliverable)
	assert.Equal(t, verifier.ErrorBadData, verifier.CategoryOf(err))
}

func TestVerify_Canceled(t *testing.T) {
	c, transport := newTestClient(t)
	registerCheck(transport, "jane@acme.com", func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	out, err := c.Verify(ctx, "jane@acme.com", "tok")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, out.Deliverable)
}

func TestVerify_RateLimited(t *testing.T) {
	c := New(Config{TokenURL: testTokenURL, CheckURL: testCheckURL, Timeout: time.Second, RateLimit: 1, RateBurst: 1}, logger.Discard())
	transport := httpmock.NewMockTransport()
	c.http.HTTPClient().Transport = transport
	registerCheck(transport, "jane@acme.com",
		httpmock.NewStringResponder(http.StatusOK, `{"code":"ok","message":"Accepted"}`))

	out, err := c.Verify(context.Background(), "jane@acme.com", "tok")
	require.NoError(t, err)
	assert.True(t, out.Deliverable)

	// The bucket is empty and refills after a second, past this deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Verify(ctx, "jane@acme.com", "tok")

	require.Error(t, err)
	assert.Equal(t, verifier.ErrorRateLimited, verifier.CategoryOf(err))
	assert.True(t, verifier.IsRetryable(err))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestPing(t *testing.T) {
	c, transport := newTestClient(t)
	transport.RegisterResponder(http.MethodHead, "https://token.test/",
		httpmock.NewStringResponder(http.StatusNotFound, ""))

	assert.NoError(t, c.Ping(context.Background()))
}

func TestIsCatchAll(t *testing.T) {
	assert.True(t, isCatchAll("Catch-All"))
	assert.True(t, isCatchAll("domain is catch all"))
	assert.False(t, isCatchAll("Accepted"))
	assert.False(t, isCatchAll(""))
}

func TestName(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Equal(t, ProviderName, c.Name())
}
