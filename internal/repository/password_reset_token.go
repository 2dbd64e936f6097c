// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
)

// CreatePasswordResetToken stores a new reset token.
func (r *Repository) CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (id, admin_id, token, expires_at)
		 VALUES (?, ?, ?, ?)`,
		token.ID, token.AdminID, token.Token, token.ExpiresAt)
	return wrapError(err)
}

// GetPasswordResetToken retrieves an unused token by exact value.
func (r *Repository) GetPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var record models.PasswordResetToken
	err := r.db.GetContext(ctx, &record,
		`SELECT * FROM password_reset_tokens WHERE token = ? AND used = 0`, token)
	if err != nil {
		return nil, wrapError(err)
	}
	return &record, nil
}

// RedeemPasswordResetToken marks the token used and updates the admin's
// password hash in one transaction. The WHERE used = 0 guard means exactly
// one of any concurrent redemption attempts succeeds; the rest get
// ErrNotFound because a second read sees used = 1.
func (r *Repository) RedeemPasswordResetToken(ctx context.Context, token string, passwordHash string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var adminID int64
	if err := tx.GetContext(ctx, &adminID,
		`SELECT admin_id FROM password_reset_tokens WHERE token = ? AND used = 0`, token); err != nil {
		return wrapError(err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = 1 WHERE token = ? AND used = 0`, token)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows != 1 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, adminID); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteExpiredPasswordResetTokens removes tokens past their expiry.
func (r *Repository) DeleteExpiredPasswordResetTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < ?`, time.Now())
	return err
}
