// Package mailtester implements verifier.Provider against the MailTester
// Ninja token and check endpoints.
package mailtester

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadagent/mailfinder/internal/verifier"
	"github.com/leadagent/mailfinder/pkg/httpclient"
)

// ProviderName identifies this provider in errors, logs and metrics.
const ProviderName = "mailtester"

// Default endpoints.
const (
	DefaultTokenURL = "https://token.mailtester.ninja/token"
	DefaultCheckURL = "https://happy.mailtester.ninja/ninja"
)

const codeOK = "ok"

// maxResponseBody caps decoded provider responses.
const maxResponseBody = 1 << 20

// Config holds the endpoints and transport settings.
type Config struct {
	TokenURL   string
	CheckURL   string
	Timeout    time.Duration
	MaxRetries int

	// RateLimit caps requests per second across all goroutines; <=0 disables it.
	RateLimit float64
	// RateBurst is the limiter bucket size; <=0 uses 1.
	RateBurst int
}

// DefaultConfig returns the production endpoints with a 10s timeout.
func DefaultConfig() Config {
	return Config{
		TokenURL: DefaultTokenURL,
		CheckURL: DefaultCheckURL,
		Timeout:  10 * time.Second,
	}
}

// Client talks to the provider through a retrying HTTP client. Only the token
// endpoint sits behind the circuit breaker; a failed check concerns a single
// candidate and never trips it.
type Client struct {
	http     *httpclient.Client
	token    *httpclient.CircuitBreakerClient
	limiter  *rate.Limiter
	tokenURL string
	checkURL string
	logger   *slog.Logger
}

var _ verifier.Provider = (*Client)(nil)

// New creates a provider client.
func New(cfg Config, logger *slog.Logger) *Client {
	httpCfg := httpclient.DefaultConfig()
	if cfg.Timeout > 0 {
		httpCfg.Timeout = cfg.Timeout
	}
	httpCfg.MaxRetries = cfg.MaxRetries

	hc := httpclient.New(httpCfg)
	breaker := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig(ProviderName), logger)

	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.CheckURL == "" {
		cfg.CheckURL = DefaultCheckURL
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		http:     hc,
		token:    breaker,
		limiter:  limiter,
		tokenURL: cfg.TokenURL,
		checkURL: cfg.CheckURL,
		logger:   logger,
	}
}

// HTTPClient exposes the underlying *http.Client shared by token and check
// requests, e.g. for swapping in an httpmock transport.
func (c *Client) HTTPClient() *http.Client {
	return c.http.HTTPClient()
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Token exchanges apiKey for a session token with a single request.
func (c *Client) Token(ctx context.Context, apiKey string) (string, error) {
	endpoint, err := withQuery(c.tokenURL, url.Values{"key": {apiKey}})
	if err != nil {
		return "", verifier.NewProviderError(verifier.ErrorInternal, ProviderName, "build token url", err)
	}
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	resp, err := c.token.Get(ctx, endpoint)
	if err != nil {
		return "", verifier.ClassifyTransport(ProviderName, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := httpclient.ErrorMessage(resp)
		return "", verifier.NewProviderError(verifier.StatusCategory(resp.StatusCode), ProviderName,
			fmt.Sprintf("token request rejected: %s", msg), nil)
	}

	var body tokenResponse
	if err := decode(resp, &body); err != nil {
		return "", verifier.NewProviderError(verifier.ErrorBadData, ProviderName, "decode token response", err)
	}
	if strings.TrimSpace(body.Token) == "" {
		return "", verifier.NewProviderError(verifier.ErrorBadData, ProviderName, "token response", verifier.ErrNoToken)
	}
	return body.Token, nil
}

type checkResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Verify checks one address. Any provider answer, including a non-200 one,
// is reported as an Outcome; only transport failures and unreadable 200
// bodies are errors.
func (c *Client) Verify(ctx context.Context, address, token string) (verifier.Outcome, error) {
	out := verifier.Outcome{Address: address}

	endpoint, err := withQuery(c.checkURL, url.Values{"email": {address}, "token": {token}})
	if err != nil {
		return out, verifier.NewProviderError(verifier.ErrorInternal, ProviderName, "build check url", err)
	}
	if err := c.wait(ctx); err != nil {
		return out, err
	}

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return out, verifier.ClassifyTransport(ProviderName, err)
	}

	if resp.StatusCode != http.StatusOK {
		out.Status = httpclient.ErrorMessage(resp)
		return out, nil
	}

	var body checkResponse
	if err := decode(resp, &body); err != nil {
		return out, verifier.NewProviderError(verifier.ErrorBadData, ProviderName, "decode check response", err)
	}

	out.Code = body.Code
	out.Deliverable = body.Code == codeOK || isCatchAll(body.Message)
	out.Status = body.Message
	if out.Status == "" {
		out.Status = body.Code
	}

	c.logger.DebugContext(ctx, "mailtester check",
		slog.String("address", address),
		slog.String("code", body.Code),
		slog.String("message", body.Message),
		slog.Bool("deliverable", out.Deliverable),
	)
	return out, nil
}

// wait blocks until the limiter admits one request. A wait that cannot finish
// before the context deadline fails at once as rate_limited.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return verifier.NewProviderError(verifier.ErrorRateLimited, ProviderName, "request budget exhausted", err)
	}
	return nil
}

// Ping checks that the provider host answers HTTP at all.
func (c *Client) Ping(ctx context.Context) error {
	u, err := url.Parse(c.tokenURL)
	if err != nil {
		return fmt.Errorf("parse token url: %w", err)
	}
	root := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, root.String(), http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return verifier.ClassifyTransport(ProviderName, err)
	}
	_ = resp.Body.Close()
	return nil
}

// isCatchAll reports whether a provider message marks a catch-all domain,
// whose mailboxes all accept mail.
func isCatchAll(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "catch-all") || strings.Contains(m, "catch all")
}

func withQuery(raw string, params url.Values) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func decode(resp *http.Response, dst any) error {
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(dst)
}
