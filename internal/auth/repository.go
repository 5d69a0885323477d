package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/auraplay/backend/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const accountColumns = `id, email, display_name, password_hash, coins, email_verified_at, mfa_enabled, password_changed_at, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, email, passwordHash, displayName string) (*models.Account, error) {
	a := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, coins)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING password_changed_at, created_at, updated_at
	`, a.ID, a.Email, a.DisplayName, a.PasswordHash).Scan(&a.PasswordChangedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1
	`, id).Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Coins, &a.EmailVerifiedAt, &a.MFAEnabled, &a.PasswordChangedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	err := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.DisplayName, &a.PasswordHash, &a.Coins, &a.EmailVerifiedAt, &a.MFAEnabled, &a.PasswordChangedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET email_verified_at = COALESCE(email_verified_at, now()), updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

func (r *Repository) SetMFAEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET mfa_enabled = $2, updated_at = now() WHERE id = $1
	`, id, enabled)
	return err
}

// UpdatePassword stores the new hash and stamps password_changed_at, which
// feeds the password-freshness security predicate.
func (r *Repository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET password_hash = $2, password_changed_at = now(), updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	return err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	return err
}
