// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/counselling-backend/internal/middleware"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/auth"
)

// AdminHandlers contains handlers for admin account management.
type AdminHandlers struct {
	repo *repository.Repository
	auth *auth.Service
}

// NewAdmins creates a new AdminHandlers instance.
func NewAdmins(repo *repository.Repository, authService *auth.Service) *AdminHandlers {
	return &AdminHandlers{repo: repo, auth: authService}
}

// List returns all admin accounts in sanitized form.
func (h *AdminHandlers) List(c echo.Context) error {
	admins, err := h.repo.ListAdmins(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	payload := make([]echo.Map, 0, len(admins))
	for i := range admins {
		a := &admins[i]
		entry := adminPayload(a)
		entry["created_at"] = a.CreatedAt
		entry["last_login_at"] = a.LastLoginAt
		payload = append(payload, entry)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"count":   len(payload),
		"data":    payload,
	})
}

// UpdateProfileRequest is the request body for updating the caller's
// profile.
type UpdateProfileRequest struct {
	FullName string `json:"full_name"`
}

// UpdateProfile updates the caller's mutable profile fields.
func (h *AdminHandlers) UpdateProfile(c echo.Context) error {
	admin := middleware.CurrentAdmin(c)

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}
	if req.FullName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "full_name is required"})
	}

	if err := h.repo.UpdateAdminProfile(c.Request().Context(), admin.ID, req.FullName); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Profile updated"})
}

// SetTwoFactorRequest is the request body for toggling two-factor login.
type SetTwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

// SetTwoFactor enables or disables two-factor login for the caller.
// Enabling requires a verified phone number.
func (h *AdminHandlers) SetTwoFactor(c echo.Context) error {
	admin := middleware.CurrentAdmin(c)

	var req SetTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if err := h.auth.SetTwoFactor(c.Request().Context(), admin.ID, req.Enabled); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Two-factor setting updated"})
}
