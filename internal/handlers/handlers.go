// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the thin echo handlers for the JSON API. They
// bind requests, call the services and translate service errors into the
// externally visible taxonomy. No business logic lives here.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/phone"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/auth"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/reset"
)

// adminPayload is the sanitized admin projection returned with a session
// token. Ciphertext and password hash never appear in any response.
func adminPayload(admin *models.AdminIdentity) echo.Map {
	return echo.Map{
		"id":          admin.ID,
		"full_name":   admin.FullName,
		"email":       admin.Email,
		"phone_last4": admin.PhoneLast4,
		"role":        admin.Role,
	}
}

// writeError maps service errors onto HTTP responses. Anything unmapped is
// a 500 with a generic message; the detail goes to the log, not the client.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "Invalid credentials"})
	case errors.Is(err, repository.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "Email already registered"})
	case errors.Is(err, repository.ErrDuplicatePhone):
		return c.JSON(http.StatusConflict, echo.Map{"success": false, "error": "Phone number already registered"})
	case errors.Is(err, phone.ErrInvalid),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrMissingField),
		errors.Is(err, auth.ErrTwoFactorUnavailable),
		errors.Is(err, auth.ErrPhoneNotVerified):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid or expired verification code"})
	case errors.Is(err, reset.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Invalid or expired reset token"})
	case errors.Is(err, reset.ErrExpiredToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "Reset token has expired"})
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"success": false, "error": "Not found"})
	}

	slog.Error("request_failed", "method", c.Request().Method, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "Internal server error"})
}
