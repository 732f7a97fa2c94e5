package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"

	"github.com/leadagent/mailfinder/internal/domain"
	"github.com/leadagent/mailfinder/pkg/database"
	apperrors "github.com/leadagent/mailfinder/pkg/errors"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for the lookups table.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const lookupColumns = `id, first_name, last_name, domain, company_name, email, status, verified, pattern, reason, fallback_url, created_at`

const (
	insertLookup = `
		INSERT INTO lookups (` + lookupColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	selectLookupByID = `
		SELECT ` + lookupColumns + `
		FROM lookups
		WHERE id = $1`

	selectLookupsByDomain = `
		SELECT ` + lookupColumns + `, COUNT(*) OVER() AS total_count
		FROM lookups
		WHERE domain = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
)

// LookupRepository implements repository.LookupRepository using PostgreSQL.
type LookupRepository struct {
	db     database.DBTX
	tracer database.QueryTracer
}

// NewLookupRepository creates a new PostgreSQL-backed lookup repository.
func NewLookupRepository(db database.DBTX, tracer database.QueryTracer) *LookupRepository {
	return &LookupRepository{db: db, tracer: tracer}
}

// Create inserts a new lookup into the database.
func (r *LookupRepository) Create(ctx context.Context, l *domain.Lookup) (err error) {
	ctx, end := r.tracer.Trace(ctx, "CreateLookup", insertLookup)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, insertLookup,
		l.ID,
		l.FirstName,
		l.LastName,
		l.Domain,
		l.CompanyName,
		l.Email,
		l.Status,
		l.Verified,
		l.Pattern,
		string(l.Reason),
		l.FallbackURL,
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert lookup: %w", err)
	}
	return nil
}

// GetByID retrieves a lookup by its ID.
func (r *LookupRepository) GetByID(ctx context.Context, id string) (_ *domain.Lookup, err error) {
	ctx, end := r.tracer.Trace(ctx, "GetLookup", selectLookupByID)
	defer func() { end(err) }()

	var (
		l      domain.Lookup
		reason string
	)
	err = r.db.QueryRow(ctx, selectLookupByID, id).Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Domain, &l.CompanyName, &l.Email,
		&l.Status, &l.Verified, &l.Pattern, &reason, &l.FallbackURL, &l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("lookup", id)
		}
		return nil, fmt.Errorf("scan lookup: %w", err)
	}
	l.Reason = domain.Reason(reason)
	return &l, nil
}

// ListByDomain returns a page of lookups for a domain, newest first.
func (r *LookupRepository) ListByDomain(ctx context.Context, mailDomain string, offset, limit int) (_ []domain.Lookup, _ int, err error) {
	ctx, end := r.tracer.Trace(ctx, "ListLookupsByDomain", selectLookupsByDomain)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, selectLookupsByDomain, mailDomain, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()

	var (
		lookups []domain.Lookup
		total   int
	)
	for rows.Next() {
		var (
			l      domain.Lookup
			reason string
		)
		if err = rows.Scan(
			&l.ID, &l.FirstName, &l.LastName, &l.Domain, &l.CompanyName, &l.Email,
			&l.Status, &l.Verified, &l.Pattern, &reason, &l.FallbackURL, &l.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan lookup row: %w", err)
		}
		l.Reason = domain.Reason(reason)
		lookups = append(lookups, l)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate lookup rows: %w", err)
	}

	return lookups, total, nil
}
