package pgx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/lborres/bantay/core"
)

const accountColumns = `id, email, password_hash, name, phone_number, location, picture_url,
	auth_provider, google_id, apple_id, is_active, is_staff, is_superuser, created_at, updated_at`

func (a *Adapter) CreateAccount(ctx context.Context, acc *core.Account) error {
	query := `INSERT INTO public.accounts (id, email, password_hash, name, phone_number, location, picture_url,
	              auth_provider, google_id, apple_id, is_active, is_staff, is_superuser)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING created_at, updated_at`

	err := a.pool.QueryRow(ctx, query,
		acc.ID, acc.Email, acc.PasswordHash, acc.Name, acc.PhoneNumber, acc.Location, acc.PictureURL,
		acc.AuthProvider.String(), acc.GoogleID, acc.AppleID, acc.IsActive, acc.IsStaff, acc.IsSuperuser,
	).Scan(&acc.CreatedAt, &acc.UpdatedAt)
	if err == nil {
		return nil
	}
	err = translateUnique(err)
	if errors.Is(err, core.ErrSubjectTaken) && a.emailExists(ctx, acc.Email) {
		return core.ErrEmailTaken
	}
	return err
}

func (a *Adapter) emailExists(ctx context.Context, email string) bool {
	var exists bool
	err := a.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM public.accounts WHERE email = $1)`, email).Scan(&exists)
	return err == nil && exists
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM public.accounts WHERE id = $1`
	return scanAccount(a.pool.QueryRow(ctx, query, id))
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM public.accounts WHERE email = $1`
	return scanAccount(a.pool.QueryRow(ctx, query, core.NormalizeEmail(email)))
}

// LinkSubject is a compare-and-set on the provider column: zero affected rows
// means another request bound the slot first.
func (a *Adapter) LinkSubject(ctx context.Context, id string, p core.Provider, subject, name string) error {
	column, err := subjectColumn(p)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`UPDATE public.accounts
	          SET %[1]s = $2, name = CASE WHEN $3 = '' THEN name ELSE $3 END, updated_at = now()
	          WHERE id = $1 AND %[1]s IS NULL`, column)

	tag, err := a.pool.Exec(ctx, query, id, subject, name)
	if err != nil {
		return translateUnique(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := a.GetAccountByID(ctx, id); err != nil {
			return err
		}
		return core.ErrSubjectTaken
	}
	return nil
}

func scanAccount(row pgx.Row) (*core.Account, error) {
	acc := &core.Account{}
	var provider string
	err := row.Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.PhoneNumber, &acc.Location, &acc.PictureURL,
		&provider, &acc.GoogleID, &acc.AppleID, &acc.IsActive, &acc.IsStaff, &acc.IsSuperuser,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, err
	}

	acc.AuthProvider, err = core.ParseProvider(provider)
	if err != nil {
		return nil, err
	}
	return acc, nil
}
