// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// AdminIdentity is one authenticated principal. The phone number is stored
// three ways: reversible ciphertext, a deterministic lookup hash for equality
// search, and the last four digits for display. Ciphertext and hash are always
// written together from the same plaintext.
type AdminIdentity struct { //nolint:govet // fieldalignment: readability over optimization
	ID               int64      `db:"id" json:"id"`
	FullName         string     `db:"full_name" json:"full_name"`
	PhoneEncrypted   string     `db:"phone_encrypted" json:"-"`
	PhoneHash        string     `db:"phone_hash" json:"-"`
	PhoneLast4       string     `db:"phone_last4" json:"phone_last4"`
	Email            string     `db:"email" json:"email"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	Role             Role       `db:"role" json:"role"`
	IsPhoneVerified  bool       `db:"is_phone_verified" json:"is_phone_verified"`
	TwoFactorEnabled bool       `db:"two_factor_enabled" json:"two_factor_enabled"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	LastLoginAt      *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`

	// Phone holds the decrypted number for internal callers. Never serialized.
	Phone string `db:"-" json:"-"`
}
