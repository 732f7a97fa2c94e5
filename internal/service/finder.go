package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadagent/mailfinder/internal/address"
	"github.com/leadagent/mailfinder/internal/domain"
	"github.com/leadagent/mailfinder/internal/event"
	"github.com/leadagent/mailfinder/internal/repository"
	apperrors "github.com/leadagent/mailfinder/pkg/errors"
	"github.com/leadagent/mailfinder/pkg/logger"
	"github.com/leadagent/mailfinder/pkg/pagination"
)

// EmailResolver finds a verified address for a person at a domain.
type EmailResolver interface {
	Resolve(ctx context.Context, firstName, lastName, mailDomain string) domain.Result
}

// FinderService implements email discovery on top of the resolver: input
// checks, caching, lookup history and events.
type FinderService struct {
	resolver EmailResolver
	repo     repository.LookupRepository
	cache    repository.LookupCache
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewFinderService creates a new finder service. cache may be nil.
func NewFinderService(
	resolver EmailResolver,
	repo repository.LookupRepository,
	cache repository.LookupCache,
	producer *event.Producer,
	logger *slog.Logger,
) *FinderService {
	return &FinderService{
		resolver: resolver,
		repo:     repo,
		cache:    cache,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FindEmailInput holds the parameters for an email lookup. Domain may be a
// bare domain or a company website URL.
type FindEmailInput struct {
	FirstName   string
	LastName    string
	Domain      string
	CompanyName string
}

// normalize trims the input and reduces Domain to a bare host.
func (in *FindEmailInput) normalize() error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.CompanyName = strings.TrimSpace(in.CompanyName)
	in.Domain = address.NormalizeDomain(in.Domain)

	if in.FirstName == "" || in.LastName == "" || in.Domain == "" {
		return apperrors.InvalidInput("first_name, last_name and domain are required")
	}
	if !address.IsValidFormat("test@" + in.Domain) {
		return apperrors.InvalidInput(fmt.Sprintf("domain %q is not a valid mail domain", in.Domain))
	}
	return nil
}

// FindEmail resolves, records and announces the address of one person.
// Confirmed addresses are served from the cache when possible.
func (s *FinderService) FindEmail(ctx context.Context, input *FindEmailInput) (*domain.Lookup, error) {
	in := *input
	if err := in.normalize(); err != nil {
		return nil, err
	}

	if cached := s.cached(ctx, &in); cached != nil {
		return cached, nil
	}

	id := uuid.NewString()
	ctx = logger.WithLookupID(ctx, id)

	result := s.resolver.Resolve(ctx, in.FirstName, in.LastName, in.Domain)
	if result.Reason == domain.ReasonCanceled {
		return nil, fmt.Errorf("find email: %w", context.Cause(ctx))
	}

	lookup := &domain.Lookup{
		ID:          id,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Domain:      in.Domain,
		CompanyName: in.CompanyName,
		CreatedAt:   s.now(),
	}
	if result.Found {
		lookup.Email = result.Address
		lookup.Status = result.Status
		lookup.Verified = true
		lookup.Pattern = address.LocalPattern(result.Address, in.FirstName, in.LastName)
	} else {
		lookup.Reason = result.Reason
		lookup.FallbackURL = domain.LinkedInSearchURL(in.FirstName, in.LastName, in.CompanyName, in.Domain)
	}

	if err := s.repo.Create(ctx, lookup); err != nil {
		return nil, fmt.Errorf("create lookup: %w", err)
	}

	if lookup.Verified && s.cache != nil {
		if err := s.cache.Save(ctx, lookup); err != nil {
			s.logger.WarnContext(ctx, "failed to cache lookup",
				slog.String("lookup_id", lookup.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishLookupCompleted(ctx, lookup); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish lookup event",
			slog.String("lookup_id", lookup.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the lookup if event publishing fails.
	}

	s.logger.InfoContext(ctx, "lookup completed",
		slog.String("lookup_id", lookup.ID),
		slog.String("domain", lookup.Domain),
		slog.Bool("verified", lookup.Verified),
		slog.String("reason", string(lookup.Reason)),
	)

	return lookup, nil
}

func (s *FinderService) cached(ctx context.Context, in *FindEmailInput) *domain.Lookup {
	if s.cache == nil {
		return nil
	}
	hit, err := s.cache.Get(ctx, in.FirstName, in.LastName, in.Domain)
	if err != nil {
		s.logger.WarnContext(ctx, "lookup cache unavailable", slog.String("error", err.Error()))
		return nil
	}
	if hit == nil {
		return nil
	}
	hit.Cached = true
	s.logger.DebugContext(ctx, "lookup served from cache", slog.String("lookup_id", hit.ID))
	return hit
}

// EnqueueLookup validates input and hands it to the asynchronous worker.
// It returns the ID of the request event.
func (s *FinderService) EnqueueLookup(ctx context.Context, input *FindEmailInput) (string, error) {
	in := *input
	if err := in.normalize(); err != nil {
		return "", err
	}
	if !s.producer.Enabled() {
		return "", apperrors.ServiceUnavailable("asynchronous lookups are disabled")
	}

	id, err := s.producer.PublishLookupRequested(ctx, event.LookupRequestedData{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Domain:      in.Domain,
		CompanyName: in.CompanyName,
	})
	if err != nil {
		return "", apperrors.Upstream("failed to enqueue lookup", err)
	}

	s.logger.InfoContext(ctx, "lookup enqueued",
		slog.String("event_id", id),
		slog.String("domain", in.Domain),
	)
	return id, nil
}

// GetLookup retrieves a lookup by its ID.
func (s *FinderService) GetLookup(ctx context.Context, id string) (*domain.Lookup, error) {
	lookup, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lookup by id: %w", err)
	}
	return lookup, nil
}

// ListLookupsByDomain returns a page of the lookup history for a domain.
func (s *FinderService) ListLookupsByDomain(ctx context.Context, rawDomain string, params pagination.Params) (pagination.Result[domain.Lookup], error) {
	d := address.NormalizeDomain(rawDomain)
	if d == "" {
		return pagination.Result[domain.Lookup]{}, apperrors.InvalidInput("domain is required")
	}
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 || params.PerPage > pagination.MaxPerPage {
		params.PerPage = pagination.DefaultParams().PerPage
	}
	params.Offset = (params.Page - 1) * params.PerPage

	lookups, total, err := s.repo.ListByDomain(ctx, d, params.Offset, params.PerPage)
	if err != nil {
		return pagination.Result[domain.Lookup]{}, fmt.Errorf("list lookups: %w", err)
	}
	return pagination.NewResult(lookups, total, params), nil
}
