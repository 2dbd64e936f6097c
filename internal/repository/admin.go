// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
)

// CreateAdminParams holds the fields for a new admin record. Phone must
// already be normalized; it is encrypted and hashed here so ciphertext and
// lookup hash always derive from the same plaintext.
type CreateAdminParams struct {
	FullName     string
	Phone        string
	Email        string
	PasswordHash string
	Role         models.Role
}

// CreateAdmin inserts a new admin. Duplicate email or phone surfaces as
// ErrDuplicateEmail / ErrDuplicatePhone from the unique constraints.
func (r *Repository) CreateAdmin(ctx context.Context, params CreateAdminParams) (*models.AdminIdentity, error) {
	phoneData, err := r.codec.EncryptPhone(params.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt phone: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (full_name, phone_encrypted, phone_hash, phone_last4, email, password_hash, role)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		params.FullName, phoneData.Encrypted, phoneData.Hash, phoneData.Last4,
		params.Email, params.PasswordHash, params.Role)
	if err != nil {
		return nil, wrapError(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetAdminByID(ctx, id)
}

// GetAdminByID retrieves an admin by ID with the phone decrypted for
// internal use. The ciphertext never leaves the model's unexported JSON view.
func (r *Repository) GetAdminByID(ctx context.Context, id int64) (*models.AdminIdentity, error) {
	var admin models.AdminIdentity
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return r.withPhone(&admin)
}

// GetAdminByEmail retrieves an admin by exact email match.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.AdminIdentity, error) {
	var admin models.AdminIdentity
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return r.withPhone(&admin)
}

// GetAdminByPhoneHash retrieves an admin by the phone lookup hash. Callers
// hash the normalized number; rows are never scanned by decrypting.
func (r *Repository) GetAdminByPhoneHash(ctx context.Context, phoneHash string) (*models.AdminIdentity, error) {
	var admin models.AdminIdentity
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE phone_hash = ?`, phoneHash); err != nil {
		return nil, wrapError(err)
	}
	return r.withPhone(&admin)
}

// ListAdmins returns all admins ordered by creation date (newest first).
func (r *Repository) ListAdmins(ctx context.Context) ([]models.AdminIdentity, error) {
	var admins []models.AdminIdentity
	if err := r.db.SelectContext(ctx, &admins, `SELECT * FROM admins ORDER BY created_at DESC`); err != nil {
		return nil, err
	}
	return admins, nil
}

// UpdateAdminPassword replaces the password credential. This is the only
// write path for the password hash besides registration.
func (r *Repository) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
	return err
}

// UpdateAdminProfile updates the mutable profile fields.
func (r *Repository) UpdateAdminProfile(ctx context.Context, id int64, fullName string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET full_name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		fullName, id)
	return err
}

// TouchLastLogin records a successful login.
func (r *Repository) TouchLastLogin(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET last_login_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// SetTwoFactorEnabled toggles the two-factor flag.
func (r *Repository) SetTwoFactorEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET two_factor_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(enabled), id)
	return err
}

// SetPhoneVerified marks the registered phone as verified.
func (r *Repository) SetPhoneVerified(ctx context.Context, id int64, verified bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET is_phone_verified = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		boolToInt(verified), id)
	return err
}

// withPhone decrypts the stored ciphertext into the transient Phone field.
// A decryption failure here means key rotation or data corruption and is
// surfaced, never swallowed into a half-populated record.
func (r *Repository) withPhone(admin *models.AdminIdentity) (*models.AdminIdentity, error) {
	phone, err := r.codec.Decrypt(admin.PhoneEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt phone for admin %d: %w", admin.ID, err)
	}
	admin.Phone = phone
	return admin, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
