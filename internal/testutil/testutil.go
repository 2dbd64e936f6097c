// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/counselling-backend/internal/database"
	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/pii"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
)

// TestPassword is the plaintext password used by NewTestAdmin.
const TestPassword = "correct horse battery"

// NewTestCodec creates a phone codec with a random key for tests.
func NewTestCodec(t *testing.T) *pii.Codec {
	t.Helper()
	codec, err := pii.NewEphemeral()
	require.NoError(t, err)
	return codec
}

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db, NewTestCodec(t))
	return db, repo
}

// NewTestAdmin creates an admin in the database with a bcrypt-hashed
// TestPassword and the given email and phone.
func NewTestAdmin(t *testing.T, repo *repository.Repository, email, phone string) *models.AdminIdentity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	admin, err := repo.CreateAdmin(context.Background(), repository.CreateAdminParams{
		FullName:     "Test Admin",
		Phone:        phone,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	})
	require.NoError(t, err)
	return admin
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
