// Package resolver finds a person's deliverable mailbox by verifying every
// candidate address concurrently and keeping the first (or best ranked)
// confirmed one.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/leadagent/mailfinder/internal/address"
	"github.com/leadagent/mailfinder/internal/domain"
	"github.com/leadagent/mailfinder/internal/verifier"
	"github.com/leadagent/mailfinder/pkg/logger"
	"github.com/leadagent/mailfinder/pkg/tracing"
)

// Strategy selects which deliverable candidate wins.
type Strategy string

const (
	// StrategyFirst returns the first candidate confirmed deliverable and
	// abandons the remaining checks.
	StrategyFirst Strategy = "first"

	// StrategyRanked waits for every check and returns the deliverable
	// candidate with the lowest rank.
	StrategyRanked Strategy = "ranked"
)

// ParseStrategy converts a configuration value into a Strategy. An empty
// value selects StrategyFirst.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyFirst:
		return StrategyFirst, nil
	case StrategyRanked:
		return StrategyRanked, nil
	default:
		return "", fmt.Errorf("unknown resolver strategy %q", s)
	}
}

const defaultCheckTimeout = 10 * time.Second

// Config holds the resolver settings.
type Config struct {
	// APIKey is the provider account key. Empty means verification is not
	// configured and every resolution ends as unconfigured.
	APIKey string
	// Workers bounds concurrent checks per resolution; <=0 uses runtime.NumCPU().
	Workers int
	// CheckTimeout bounds each verification call; <=0 uses 10s.
	CheckTimeout time.Duration
	Strategy     Strategy
}

// Resolver runs resolutions against a verification provider. It holds no
// per-request state and is safe for concurrent use.
type Resolver struct {
	provider verifier.Provider
	cfg      Config
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates a resolver, applying defaults to zero config values.
func New(provider verifier.Provider, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = defaultCheckTimeout
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyFirst
	}
	return &Resolver{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		tracer:   tracing.Tracer("mailfinder/resolver"),
	}
}

// Strategy returns the configured strategy.
func (r *Resolver) Strategy() Strategy {
	return r.cfg.Strategy
}

// Resolve returns the verified address for the person at mailDomain. It never
// fails: every problem yields a not-found result with a reason and a log line.
func (r *Resolver) Resolve(ctx context.Context, firstName, lastName, mailDomain string) domain.Result {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(
		attribute.String("mailfinder.domain", mailDomain),
		attribute.String("mailfinder.strategy", string(r.cfg.Strategy)),
		attribute.String("mailfinder.provider", r.provider.Name()),
	))
	defer span.End()

	result := r.resolve(ctx, span, firstName, lastName, mailDomain)

	outcome := outcomeFound
	if !result.Found {
		outcome = string(result.Reason)
	}
	span.SetAttributes(attribute.String("mailfinder.outcome", outcome))
	if result.Found {
		span.SetAttributes(attribute.Int("mailfinder.winner_rank", result.Candidate.Rank))
	}
	resolutionsTotal.WithLabelValues(outcome).Inc()
	resolutionDuration.Observe(time.Since(start).Seconds())

	return result
}

func (r *Resolver) resolve(ctx context.Context, span trace.Span, firstName, lastName, mailDomain string) domain.Result {
	log := logger.WithContext(ctx, r.logger)

	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	dom := strings.ToLower(strings.TrimSpace(mailDomain))

	if first == "" || last == "" || dom == "" {
		log.WarnContext(ctx, "missing required input",
			slog.Bool("first_name", first != ""),
			slog.Bool("last_name", last != ""),
			slog.Bool("domain", dom != ""),
		)
		return domain.NotFound(domain.ReasonInvalidInput)
	}

	if !address.IsValidFormat("test@" + dom) {
		log.WarnContext(ctx, "invalid domain format", slog.String("domain", dom))
		return domain.NotFound(domain.ReasonInvalidDomain)
	}

	if r.cfg.APIKey == "" {
		log.InfoContext(ctx, "verification api key not configured")
		return domain.NotFound(domain.ReasonUnconfigured)
	}

	token, err := r.provider.Token(ctx, r.cfg.APIKey)
	if err != nil {
		if ctx.Err() != nil {
			return domain.NotFound(domain.ReasonCanceled)
		}
		log.ErrorContext(ctx, "failed to acquire verification token",
			slog.String("provider", r.provider.Name()),
			slog.String("category", string(verifier.CategoryOf(err))),
			slog.String("error", err.Error()),
		)
		return domain.NotFound(domain.ReasonTokenFailed)
	}

	generated := address.Generate(first, last, dom)
	candidates := make([]domain.Candidate, 0, len(generated))
	for _, c := range generated {
		if address.IsValidFormat(c.Address) {
			candidates = append(candidates, c)
		}
	}
	span.SetAttributes(attribute.Int("mailfinder.candidates", len(candidates)))
	if len(candidates) == 0 {
		log.WarnContext(ctx, "no candidate passed format validation", slog.String("domain", dom))
		return domain.NotFound(domain.ReasonNoCandidates)
	}

	return r.race(ctx, log, candidates, token)
}

type checkResult struct {
	candidate domain.Candidate
	outcome   verifier.Outcome
	err       error
}

// race verifies candidates on a bounded pool and consumes results in
// completion order. The results channel has room for every candidate so
// workers never block after the consumer has returned.
func (r *Resolver) race(ctx context.Context, log *slog.Logger, candidates []domain.Candidate, token string) domain.Result {
	checkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan checkResult, len(candidates))

	g, gctx := errgroup.WithContext(checkCtx)
	g.SetLimit(r.cfg.Workers)
	go func() {
		for _, c := range candidates {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- r.check(gctx, c, token)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	var (
		best    *checkResult
		checked int
	)
	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "resolution canceled", slog.Int("checked", checked))
			return domain.NotFound(domain.ReasonCanceled)

		case res, ok := <-results:
			if !ok {
				return r.settle(ctx, log, best, checked)
			}
			checked++

			if res.err != nil {
				if !errors.Is(res.err, context.Canceled) {
					log.WarnContext(ctx, "verification check failed",
						slog.String("address", res.candidate.Address),
						slog.String("category", string(verifier.CategoryOf(res.err))),
						slog.String("error", res.err.Error()),
					)
				}
				continue
			}
			if !res.outcome.Deliverable {
				continue
			}

			if r.cfg.Strategy == StrategyFirst {
				cancel()
				log.InfoContext(ctx, "deliverable address found",
					slog.String("address", res.candidate.Address),
					slog.String("status", res.outcome.Status),
					slog.Int("rank", res.candidate.Rank),
				)
				return domain.Found(res.candidate, res.outcome.Status)
			}
			if best == nil || res.candidate.Rank < best.candidate.Rank {
				best = &res
			}
		}
	}
}

func (r *Resolver) settle(ctx context.Context, log *slog.Logger, best *checkResult, checked int) domain.Result {
	if ctx.Err() != nil {
		return domain.NotFound(domain.ReasonCanceled)
	}
	if best != nil {
		log.InfoContext(ctx, "deliverable address found",
			slog.String("address", best.candidate.Address),
			slog.String("status", best.outcome.Status),
			slog.Int("rank", best.candidate.Rank),
		)
		return domain.Found(best.candidate, best.outcome.Status)
	}
	log.InfoContext(ctx, "no deliverable address found", slog.Int("checked", checked))
	return domain.NotFound(domain.ReasonNoDeliverable)
}

// check verifies one candidate under its own timeout. Candidates whose turn
// comes after the resolution was decided are skipped.
func (r *Resolver) check(ctx context.Context, c domain.Candidate, token string) checkResult {
	if err := ctx.Err(); err != nil {
		checksTotal.WithLabelValues(checkCanceled).Inc()
		return checkResult{candidate: c, err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CheckTimeout)
	defer cancel()

	out, err := r.provider.Verify(ctx, c.Address, token)
	switch {
	case err != nil && errors.Is(err, context.Canceled):
		checksTotal.WithLabelValues(checkCanceled).Inc()
	case err != nil:
		checksTotal.WithLabelValues(checkError).Inc()
	case out.Deliverable:
		checksTotal.WithLabelValues(checkDeliverable).Inc()
	default:
		checksTotal.WithLabelValues(checkUndeliverable).Inc()
	}
	return checkResult{candidate: c, outcome: out, err: err}
}
