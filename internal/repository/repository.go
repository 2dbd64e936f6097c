// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package repository owns all database access. It is constructed with an
// explicitly injected connection and PII codec; nothing in here touches
// global state, which keeps the store mockable with an in-memory database.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/counselling-backend/internal/pii"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when the email unique constraint fires.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicatePhone is returned when the phone hash unique constraint fires.
	ErrDuplicatePhone = errors.New("phone number already registered")
)

// Repository wraps the database connection and the PII codec used to
// encrypt and decrypt phone columns transparently.
type Repository struct {
	db    *sqlx.DB
	codec *pii.Codec
}

// New creates a new Repository instance.
func New(db *sqlx.DB, codec *pii.Codec) *Repository {
	return &Repository{db: db, codec: codec}
}

// DB returns the underlying connection for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// wrapError converts driver errors to repository errors. Uniqueness is
// enforced by the database constraints, not by check-then-insert in
// application code, so constraint violations are the authoritative signal
// for duplicate registrations.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		switch {
		case strings.Contains(msg, "admins.email"):
			return ErrDuplicateEmail
		case strings.Contains(msg, "admins.phone_hash"):
			return ErrDuplicatePhone
		}
	}
	return err
}
