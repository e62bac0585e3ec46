package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lborres/bantay/core"
)

//go:embed schema.sql
var schema string

const accountColumns = `id, email, password_hash, name, phone_number, location, picture_url,
	auth_provider, google_id, apple_id, is_active, is_staff, is_superuser, created_at, updated_at`

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

// Store is a single-file account registry for development and small deployments.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ core.AccountStorage = (*Store)(nil)

// Open opens the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time; the uniqueness checks rely on it.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) CreateAccount(ctx context.Context, a *core.Account) error {
	now := s.now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.PasswordHash, a.Name, a.PhoneNumber, a.Location, a.PictureURL,
		a.AuthProvider.String(), a.GoogleID, a.AppleID, a.IsActive, a.IsStaff, a.IsSuperuser,
		toMillis(a.CreatedAt), toMillis(a.UpdatedAt),
	)
	if err == nil {
		return nil
	}
	err = translateUnique(err)
	if errors.Is(err, core.ErrSubjectTaken) && s.emailExists(ctx, a.Email) {
		return core.ErrEmailTaken
	}
	return err
}

func (s *Store) emailExists(ctx context.Context, email string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM accounts WHERE email = ?`, email).Scan(&one)
	return err == nil
}

func (s *Store) GetAccountByID(ctx context.Context, id string) (*core.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return scanAccount(row)
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*core.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, core.NormalizeEmail(email))
	return scanAccount(row)
}

// LinkSubject only writes when the provider column is still NULL.
func (s *Store) LinkSubject(ctx context.Context, id string, p core.Provider, subject, name string) error {
	var column string
	switch p {
	case core.ProviderGoogle:
		column = "google_id"
	case core.ProviderApple:
		column = "apple_id"
	default:
		return fmt.Errorf("provider %s has no subject column", p)
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(`UPDATE accounts
		SET %[1]s = ?, name = CASE WHEN ? = '' THEN name ELSE ? END, updated_at = ?
		WHERE id = ? AND %[1]s IS NULL`, column),
		subject, name, name, toMillis(s.now()), id,
	)
	if err != nil {
		return translateUnique(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := s.GetAccountByID(ctx, id); err != nil {
			return err
		}
		return core.ErrSubjectTaken
	}
	return nil
}

func scanAccount(row *sql.Row) (*core.Account, error) {
	var (
		a                    core.Account
		passwordHash         sql.NullString
		googleID, appleID    sql.NullString
		provider             string
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&a.ID, &a.Email, &passwordHash, &a.Name, &a.PhoneNumber, &a.Location, &a.PictureURL,
		&provider, &googleID, &appleID, &a.IsActive, &a.IsStaff, &a.IsSuperuser, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrAccountNotFound
		}
		return nil, err
	}

	if a.AuthProvider, err = core.ParseProvider(provider); err != nil {
		return nil, err
	}
	a.PasswordHash = nullable(passwordHash)
	a.GoogleID = nullable(googleID)
	a.AppleID = nullable(appleID)
	a.CreatedAt = fromMillis(createdAt)
	a.UpdatedAt = fromMillis(updatedAt)
	return &a, nil
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// translateUnique maps SQLite unique failures onto registry errors. The
// driver reports them as "UNIQUE constraint failed: accounts.<column>".
func translateUnique(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "accounts.email"):
		return core.ErrEmailTaken
	case strings.Contains(msg, "accounts.google_id"), strings.Contains(msg, "accounts.apple_id"):
		return core.ErrSubjectTaken
	}
	return fmt.Errorf("%w: %s", core.ErrEmailTaken, msg)
}
