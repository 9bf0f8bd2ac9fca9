package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS instrument (
	id         SERIAL PRIMARY KEY,
	class      TEXT NOT NULL,
	identifier TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (class, identifier)
)`

// The no-op update makes RETURNING yield the existing row on conflict.
const declareSQL = `
INSERT INTO instrument (class, identifier)
VALUES ($1, $2)
ON CONFLICT (class, identifier) DO UPDATE SET identifier = EXCLUDED.identifier
RETURNING id`

// Postgres is a Registrar backed by the instrument table. Resolved ids are
// memoized per process; the unique constraint keeps concurrent declarations
// from different processes idempotent.
type Postgres struct {
	pool *pgxpool.Pool
	memo sync.Map // memoryKey -> int
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the instrument table if it does not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create instrument table: %w", err)
	}
	return nil
}

func (p *Postgres) DeclareSecurity(ctx context.Context, ident string) (int, error) {
	return p.declare(ctx, ClassSecurity, ident)
}

func (p *Postgres) DeclareDerivative(ctx context.Context, code string) (int, error) {
	return p.declare(ctx, ClassDerivative, code)
}

func (p *Postgres) DeclareCurrencyPair(ctx context.Context, pair string) (int, error) {
	return p.declare(ctx, ClassCurrencyPair, pair)
}

func (p *Postgres) declare(ctx context.Context, class Class, ident string) (int, error) {
	key, err := Canonical(class, ident)
	if err != nil {
		return 0, err
	}

	k := memoryKey{class, key}
	if id, ok := p.memo.Load(k); ok {
		return id.(int), nil
	}

	var id int32
	if err := p.pool.QueryRow(ctx, declareSQL, string(class), key).Scan(&id); err != nil {
		return 0, fmt.Errorf("declare %s %q: %w", class, key, err)
	}

	actual, _ := p.memo.LoadOrStore(k, int(id))
	return actual.(int), nil
}
