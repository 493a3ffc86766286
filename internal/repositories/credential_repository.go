package repositories

import (
	"context"
	"fmt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/db"
)

// PostgresCredentialRepository persists per-account refresh tokens on the
// users table.
type PostgresCredentialRepository struct {
	pool db.Pool
}

// NewPostgresCredentialRepository constructs a credential store backed by
// PostgreSQL.
func NewPostgresCredentialRepository(pool db.Pool) *PostgresCredentialRepository {
	return &PostgresCredentialRepository{pool: pool}
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
func (r *PostgresCredentialRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2, updated_at = now()
        WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapRefreshToken replaces the stored token only when it still equals
// current. The conditional UPDATE makes rotation a single atomic
// compare-and-set, so concurrent rotations with the same token cannot both
// succeed.
func (r *PostgresCredentialRepository) SwapRefreshToken(ctx context.Context, userID, current, next string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3, updated_at = now()
        WHERE id = $1 AND refresh_token = $2
    `, userID, current, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrStaleRefreshToken
	}

	return nil
}

// ClearRefreshToken sets the stored value to NULL. Clearing an already-clear
// or unknown account is a no-op.
func (r *PostgresCredentialRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = NULL, updated_at = now()
        WHERE id = $1
    `, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	return nil
}

var _ auth.CredentialStore = (*PostgresCredentialRepository)(nil)
