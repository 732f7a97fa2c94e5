package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadagent/mailfinder/internal/address"
	"github.com/leadagent/mailfinder/internal/domain"
	"github.com/leadagent/mailfinder/internal/resolver"
	"github.com/leadagent/mailfinder/internal/verifier"
	"github.com/leadagent/mailfinder/internal/verifier/mailtester"
	"github.com/leadagent/mailfinder/internal/verifier/mock"
	"github.com/leadagent/mailfinder/pkg/logger"
)

type resolveOptions struct {
	FirstName   string
	LastName    string
	Domain      string
	CompanyName string
	Strategy    string
	APIKey      string
	Workers     int
	Timeout     time.Duration
	RateLimit   float64
	Mock        bool
	MockLatency time.Duration
	LogLevel    string
}

type resolveOutput struct {
	Email       string        `json:"email,omitempty"`
	Status      string        `json:"status,omitempty"`
	Found       bool          `json:"found"`
	Pattern     string        `json:"pattern,omitempty"`
	Reason      domain.Reason `json:"reason,omitempty"`
	FallbackURL string        `json:"fallback_url,omitempty"`
}

func newResolveCmd() *cobra.Command {
	var opts resolveOptions

	cmd := &cobra.Command{
		Use:   "resolve --first <name> --last <name> --domain <domain>",
		Short: "Generate candidate addresses and return the first one the provider confirms",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(opts.FirstName) == "" {
				return errors.New("--first is required")
			}
			if strings.TrimSpace(opts.LastName) == "" {
				return errors.New("--last is required")
			}
			if strings.TrimSpace(opts.Domain) == "" {
				return errors.New("--domain is required")
			}
			strategy, err := resolver.ParseStrategy(opts.Strategy)
			if err != nil {
				return err
			}

			log := logger.NewWithWriter("mailfinder-cli", opts.LogLevel, cmd.ErrOrStderr())

			var provider verifier.Provider
			apiKey := opts.APIKey
			if opts.Mock {
				provider = mock.NewProvider(opts.MockLatency, log)
				if apiKey == "" {
					apiKey = "mock"
				}
			} else {
				cfg := mailtester.DefaultConfig()
				cfg.Timeout = opts.Timeout
				cfg.RateLimit = opts.RateLimit
				provider = mailtester.New(cfg, log)
			}

			res := resolver.New(provider, resolver.Config{
				APIKey:       apiKey,
				Workers:      opts.Workers,
				CheckTimeout: opts.Timeout,
				Strategy:     strategy,
			}, log)

			first := strings.TrimSpace(opts.FirstName)
			last := strings.TrimSpace(opts.LastName)
			mailDomain := address.NormalizeDomain(opts.Domain)

			result := res.Resolve(cmd.Context(), first, last, mailDomain)
			if result.Reason == domain.ReasonCanceled {
				return fmt.Errorf("resolve canceled: %w", cmd.Context().Err())
			}

			out := resolveOutput{Found: result.Found}
			if result.Found {
				out.Email = result.Address
				out.Status = result.Status
				out.Pattern = address.LocalPattern(result.Address, first, last)
			} else {
				out.Reason = result.Reason
				out.FallbackURL = domain.LinkedInSearchURL(first, last, opts.CompanyName, mailDomain)
			}

			log.Debug("resolution finished",
				slog.Bool("found", out.Found),
				slog.String("reason", string(out.Reason)),
			)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&opts.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&opts.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "company domain or website URL")
	cmd.Flags().StringVar(&opts.CompanyName, "company", "", "company name for the fallback search link")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", string(resolver.StrategyFirst), "first or ranked")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", os.Getenv("MAILTESTER_API_KEY"), "verification provider key (defaults to $MAILTESTER_API_KEY)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "concurrent checks (0 uses the CPU count)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "timeout for each verification call")
	cmd.Flags().Float64Var(&opts.RateLimit, "rate-limit", 0, "maximum provider requests per second (0 means unlimited)")
	cmd.Flags().BoolVar(&opts.Mock, "mock", false, "use the offline mock provider")
	cmd.Flags().DurationVar(&opts.MockLatency, "mock-latency", 0, "simulated latency of the mock provider")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	return cmd
}
