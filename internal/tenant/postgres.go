package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the validator needs. pgxmock
// satisfies it in tests.
type Pool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres validates tenants against a tenants table. Unknown tenants are
// inactive, not errors; only connection faults surface as errors.
type Postgres struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a Postgres validator with its own connection pool.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "tenant: connect")
	}
	return &Postgres{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool creates a validator over an existing pool. Used by
// tests and callers that manage their own pool lifecycle.
func NewPostgresWithPool(pool Pool) *Postgres {
	return &Postgres{pool: pool}
}

// IsActive reports whether the tenant exists and is marked active.
func (p *Postgres) IsActive(ctx context.Context, tenantID string) (bool, error) {
	var active bool
	err := p.pool.QueryRow(ctx,
		`SELECT active FROM tenants WHERE id = $1`, tenantID,
	).Scan(&active)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "tenant: lookup %s", tenantID)
	}
	return active, nil
}

// Close releases the connection pool if this validator owns one.
func (p *Postgres) Close() {
	if p.closeFn != nil {
		p.closeFn()
	}
}
