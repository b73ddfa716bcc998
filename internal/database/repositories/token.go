package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"studyhub/internal/database"
	"studyhub/internal/database/models"

	"github.com/google/uuid"
)

type TokenRepository interface {
	CreateRefresh(ctx context.Context, token *models.RefreshToken) error
	GetRefresh(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error)
	// DeleteRefresh is idempotent; deleting an unknown id is not an error.
	DeleteRefresh(ctx context.Context, id uuid.UUID) error
	DeleteRefreshByUser(ctx context.Context, userID uuid.UUID) error
	CreateReset(ctx context.Context, token *models.PasswordResetToken) error
	GetReset(ctx context.Context, token uuid.UUID) (*models.PasswordResetToken, error)
	// RedeemReset sets a new password hash for the token's owner, marks the
	// token used and revokes the owner's refresh tokens in one transaction.
	RedeemReset(ctx context.Context, token uuid.UUID, passwordHash string) (*models.User, error)
}

type tokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) TokenRepository {
	return &tokenRepository{db: db}
}

func (r *tokenRepository) CreateRefresh(ctx context.Context, token *models.RefreshToken) error {
	token.CreatedAt = now()
	query := `INSERT INTO refresh_tokens (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.db.ExecContext(ctx, query, token.ID, token.UserID, token.ExpiresAt.UTC(), token.CreatedAt)
	if err != nil {
		return fmt.Errorf("error storing refresh token: %w", database.Classify(err))
	}
	return nil
}

func (r *tokenRepository) GetRefresh(ctx context.Context, id uuid.UUID) (*models.RefreshToken, error) {
	var t models.RefreshToken
	query := `SELECT id, user_id, expires_at, created_at FROM refresh_tokens WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error getting refresh token: %w", database.Classify(err))
	}
	return &t, nil
}

func (r *tokenRepository) DeleteRefresh(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

func (r *tokenRepository) DeleteRefreshByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("error revoking refresh tokens: %w", err)
	}
	return nil
}

func (r *tokenRepository) CreateReset(ctx context.Context, token *models.PasswordResetToken) error {
	if token.Token == uuid.Nil {
		token.Token = uuid.New()
	}
	token.CreatedAt = now()
	query := `
		INSERT INTO password_reset_tokens (token, email, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, token.Token, token.Email, token.ExpiresAt.UTC(), false, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("error storing reset token: %w", database.Classify(err))
	}
	return nil
}

func (r *tokenRepository) GetReset(ctx context.Context, token uuid.UUID) (*models.PasswordResetToken, error) {
	return getReset(r.db.QueryRowContext(ctx, resetQuery, token))
}

const resetQuery = `SELECT token, email, expires_at, used, created_at FROM password_reset_tokens WHERE token = $1`

func getReset(row *sql.Row) (*models.PasswordResetToken, error) {
	var t models.PasswordResetToken
	if err := row.Scan(&t.Token, &t.Email, &t.ExpiresAt, &t.Used, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("error getting reset token: %w", database.Classify(err))
	}
	return &t, nil
}

func (r *tokenRepository) RedeemReset(ctx context.Context, token uuid.UUID, passwordHash string) (*models.User, error) {
	var user models.User
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		reset, err := getReset(tx.QueryRowContext(ctx, resetQuery, token))
		if err != nil {
			return err
		}
		if reset.Used {
			return ErrTokenUsed
		}
		ts := now()
		if !ts.Before(reset.ExpiresAt) {
			return ErrTokenExpired
		}

		u, err := scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, reset.Email))
		if err != nil {
			return fmt.Errorf("error getting user: %w", database.Classify(err))
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET password = $1, updated_at = $2 WHERE id = $3`, passwordHash, ts, u.ID); err != nil {
			return fmt.Errorf("failed to reset password: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE password_reset_tokens SET used = $1 WHERE token = $2`, true, token); err != nil {
			return fmt.Errorf("error marking reset token used: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = $1`, u.ID); err != nil {
			return fmt.Errorf("error revoking refresh tokens: %w", err)
		}
		u.Password = passwordHash
		u.UpdatedAt = ts
		user = *u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// PurgeExpired removes refresh and reset tokens past their expiry.
func PurgeExpired(ctx context.Context, db *sql.DB, at time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		`DELETE FROM refresh_tokens WHERE expires_at < $1`,
		`DELETE FROM password_reset_tokens WHERE expires_at < $1`,
	} {
		res, err := db.ExecContext(ctx, q, at.UTC())
		if err != nil {
			return total, fmt.Errorf("error purging tokens: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
