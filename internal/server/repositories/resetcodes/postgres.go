package resetcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/dbx"
	"github.com/anandakmagar/authguard/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert stores a new code for username with an expiry of now+validity.
// The UNIQUE constraint on username plus ON CONFLICT DO UPDATE make the
// replace atomic: two concurrent requests cannot leave two active codes.
func (r *PostgresRepository) Upsert(ctx context.Context, username string, code int64, validity time.Duration) error {
	query := `
		INSERT INTO password_reset_codes (username, code, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (username)
		DO UPDATE SET code = EXCLUDED.code, expires_at = EXCLUDED.expires_at, created_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, username, code, time.Now().Add(validity)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Find returns the active code row for the given username.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, username string) (*models.ResetCode, error) {
	query := `
		SELECT username, code, expires_at, created_at
		FROM password_reset_codes
		WHERE username = $1
	`
	resetCode := &models.ResetCode{}
	if err := r.db.QueryRowContext(ctx, query, username).
		Scan(&resetCode.Username, &resetCode.Code, &resetCode.ExpiresAt, &resetCode.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return resetCode, nil
}

// Delete removes the code bound to the given username. It returns
// common.ErrorNotFound when no row was deleted, so a caller running inside a
// transaction can tell that another request consumed the code first.
func (r *PostgresRepository) Delete(ctx context.Context, username string) error {
	query := `
		DELETE FROM password_reset_codes
		WHERE username = $1
	`
	res, err := r.db.ExecContext(ctx, query, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// DeleteExpired removes all codes whose expiry has passed and returns the
// number of rows purged.
func (r *PostgresRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM password_reset_codes
		WHERE expires_at < now()
	`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
