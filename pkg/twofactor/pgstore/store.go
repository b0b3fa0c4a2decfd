// Package pgstore persists two-factor records in PostgreSQL through pgx.
//
// The schema ships with the package as goose migrations; run Migrate once at
// startup before serving requests.
package pgstore

import (
	"context"
	"embed"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/twofactor/pkg/pg"
	"github.com/dmitrymomot/twofactor/pkg/twofactor"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNilSecret = errors.New("pgstore: nil secret")

const (
	selectSecret = `SELECT user_id, secret, enabled, verified, backup_codes, backup_codes_used,
       last_used_at, created_at, updated_at
FROM two_factor_secrets
WHERE user_id = $1`

	insertSecret = `INSERT INTO two_factor_secrets
    (user_id, secret, enabled, verified, backup_codes, backup_codes_used, last_used_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateSecret = `UPDATE two_factor_secrets
SET secret = $2, enabled = $3, verified = $4, backup_codes = $5,
    backup_codes_used = $6, last_used_at = $7, updated_at = $8
WHERE user_id = $1`

	deleteSecret = `DELETE FROM two_factor_secrets WHERE user_id = $1`
)

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements twofactor.Storage.
type Store struct {
	db DB
}

func New(db DB) *Store {
	return &Store{db: db}
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

func (s *Store) GetSecret(ctx context.Context, userID string) (*twofactor.Secret, error) {
	var rec twofactor.Secret
	err := s.db.QueryRow(ctx, selectSecret, userID).Scan(
		&rec.UserID,
		&rec.Secret,
		&rec.Enabled,
		&rec.Verified,
		&rec.BackupCodes,
		&rec.BackupCodesUsed,
		&rec.LastUsedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, twofactor.ErrSecretNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *Store) CreateSecret(ctx context.Context, rec *twofactor.Secret) error {
	if rec == nil {
		return ErrNilSecret
	}
	if rec.UserID == "" {
		return twofactor.ErrMissingUserID
	}

	_, err := s.db.Exec(ctx, insertSecret,
		rec.UserID,
		rec.Secret,
		rec.Enabled,
		rec.Verified,
		codes(rec.BackupCodes),
		rec.BackupCodesUsed,
		rec.LastUsedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		if pg.IsDuplicateKeyError(err) {
			return twofactor.ErrAlreadyEnrolled
		}
		return err
	}
	return nil
}

func (s *Store) UpdateSecret(ctx context.Context, rec *twofactor.Secret) error {
	if rec == nil {
		return ErrNilSecret
	}

	tag, err := s.db.Exec(ctx, updateSecret,
		rec.UserID,
		rec.Secret,
		rec.Enabled,
		rec.Verified,
		codes(rec.BackupCodes),
		rec.BackupCodesUsed,
		rec.LastUsedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return twofactor.ErrSecretNotFound
	}
	return nil
}

func (s *Store) DeleteSecret(ctx context.Context, userID string) error {
	tag, err := s.db.Exec(ctx, deleteSecret, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return twofactor.ErrSecretNotFound
	}
	return nil
}

// codes keeps an empty set from being written as NULL.
func codes(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}
