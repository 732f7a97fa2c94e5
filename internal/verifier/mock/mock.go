package mock

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/leadagent/mailfinder/internal/verifier"
)

// Token is the session token issued by Provider.
const Token = "mock-token"

// Provider is a verifier that needs no network. Addresses whose local part
// contains exactly one dot are deliverable; everything else is reported as
// not found. Each check waits for the configured latency to mimic a real
// provider round trip.
type Provider struct {
	latency time.Duration
	logger  *slog.Logger
}

var _ verifier.Provider = (*Provider)(nil)

// NewProvider creates a mock provider.
func NewProvider(latency time.Duration, logger *slog.Logger) *Provider {
	return &Provider{
		latency: latency,
		logger:  logger,
	}
}

// Name returns the name of this provider.
func (p *Provider) Name() string {
	return "mock"
}

// Token returns a fixed token for any non-empty key.
func (p *Provider) Token(_ context.Context, apiKey string) (string, error) {
	if apiKey == "" {
		return "", verifier.NewProviderError(verifier.ErrorAuthentication, p.Name(), "empty api key", nil)
	}
	return Token, nil
}

// Verify simulates a provider check.
func (p *Provider) Verify(ctx context.Context, address, token string) (verifier.Outcome, error) {
	out := verifier.Outcome{Address: address}
	if token != Token {
		out.Status = "Invalid Token"
		return out, nil
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}

	local, _, _ := strings.Cut(address, "@")
	if strings.Count(local, ".") == 1 {
		out.Deliverable = true
		out.Code = "ok"
		out.Status = "ok"
	} else {
		out.Code = "ko"
		out.Status = "mailbox not found"
	}

	p.logger.DebugContext(ctx, "mock provider: address checked",
		slog.String("address", address),
		slog.Bool("deliverable", out.Deliverable),
	)
	return out, nil
}
