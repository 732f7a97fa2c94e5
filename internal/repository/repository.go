package repository

import (
	"context"

	"github.com/leadagent/mailfinder/internal/domain"
)

// LookupRepository defines the interface for lookup history persistence.
type LookupRepository interface {
	// Create inserts a new lookup.
	Create(ctx context.Context, lookup *domain.Lookup) error

	// GetByID retrieves a lookup by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Lookup, error)

	// ListByDomain returns lookups for a mail domain, newest first, with the
	// total number of lookups for that domain.
	ListByDomain(ctx context.Context, domain string, offset, limit int) ([]domain.Lookup, int, error)
}

// LookupCache stores confirmed lookups keyed by person and domain.
type LookupCache interface {
	// Get returns the cached lookup, or nil when there is none.
	Get(ctx context.Context, firstName, lastName, domain string) (*domain.Lookup, error)

	// Save caches a lookup under its person and domain.
	Save(ctx context.Context, lookup *domain.Lookup) error
}
