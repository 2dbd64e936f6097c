// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/counselling-backend/internal/middleware"
	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/testutil"
	"codeberg.org/oliverandrich/counselling-backend/internal/token"
)

func newTokenService() *token.Service {
	return token.NewService(token.Config{
		Secret:       "test-secret",
		TTL:          time.Hour,
		LongLivedTTL: 2 * time.Hour,
		CookieName:   "session",
	})
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func setupAuthTest(t *testing.T) (*echo.Echo, *repository.Repository, *token.Service, *models.AdminIdentity) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	tokens := newTokenService()
	admin := testutil.NewTestAdmin(t, repo, "asha@example.com", "+919876543210")
	return echo.New(), repo, tokens, admin
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	e, repo, tokens, admin := setupAuthTest(t)
	signed, _, err := tokens.Issue(admin, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := middleware.Authenticate(tokens, repo)(func(c echo.Context) error {
		current := middleware.CurrentAdmin(c)
		require.NotNil(t, current)
		assert.Equal(t, admin.ID, current.ID)
		return c.NoContent(http.StatusOK)
	})

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Cookie(t *testing.T) {
	e, repo, tokens, admin := setupAuthTest(t)
	signed, expiresAt, err := tokens.Issue(admin, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(tokens.Cookie(signed, expiresAt))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := middleware.Authenticate(tokens, repo)(okHandler)

	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthenticate_Rejections(t *testing.T) {
	e, repo, tokens, admin := setupAuthTest(t)

	// Same shape, different secret.
	other := token.NewService(token.Config{Secret: "other", TTL: time.Hour, LongLivedTTL: 2 * time.Hour, CookieName: "session"})
	forged, _, err := other.Issue(admin, false)
	require.NoError(t, err)

	cases := map[string]string{
		"missing":   "",
		"garbage":   "Bearer garbage",
		"forged":    "Bearer " + forged,
		"no prefix": forged,
	}

	for name, header := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set(echo.HeaderAuthorization, header)
		}
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		handler := middleware.Authenticate(tokens, repo)(okHandler)
		require.NoError(t, handler(c), name)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
	}
}

func TestAuthenticate_DeletedAdmin(t *testing.T) {
	e, repo, tokens, _ := setupAuthTest(t)

	ghost := &models.AdminIdentity{ID: 9999, Email: "ghost@example.com", Role: models.RoleAdmin}
	signed, _, err := tokens.Issue(ghost, false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := middleware.Authenticate(tokens, repo)(okHandler)
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	cases := []struct {
		role    models.Role
		minimum models.Role
		want    int
	}{
		{models.RoleViewer, models.RoleAdmin, http.StatusForbidden},
		{models.RoleAdmin, models.RoleAdmin, http.StatusOK},
		{models.RoleSuperAdmin, models.RoleAdmin, http.StatusOK},
		{models.RoleViewer, models.RoleViewer, http.StatusOK},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.Set(middleware.AdminContextKey, &models.AdminIdentity{ID: 1, Role: tc.role})

		handler := middleware.RequireRole(tc.minimum)(okHandler)
		require.NoError(t, handler(c))
		assert.Equal(t, tc.want, rec.Code, "%s needs %s", tc.role, tc.minimum)
	}
}

func TestRequireRole_NoAdmin(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := middleware.RequireRole(models.RoleViewer)(okHandler)
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
