package pgx

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/bantay/core"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.AccountStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}

// EnsureSchema creates the accounts table and its unique constraints if missing.
func (a *Adapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// translateUnique maps a unique violation to the registry error for the
// constraint that fired. Other errors pass through.
func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "accounts_email_key":
		return core.ErrEmailTaken
	case "accounts_google_id_key", "accounts_apple_id_key":
		return core.ErrSubjectTaken
	}
	return fmt.Errorf("%w: %s", core.ErrEmailTaken, pgErr.ConstraintName)
}

func subjectColumn(p core.Provider) (string, error) {
	switch p {
	case core.ProviderGoogle:
		return "google_id", nil
	case core.ProviderApple:
		return "apple_id", nil
	}
	return "", fmt.Errorf("provider %s has no subject column", p)
}
