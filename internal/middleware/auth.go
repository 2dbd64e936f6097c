// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/token"
)

// AdminContextKey is the echo context key the authenticated admin is stored
// under.
const AdminContextKey = "admin"

// CurrentAdmin returns the authenticated admin from the context, or nil.
func CurrentAdmin(c echo.Context) *models.AdminIdentity {
	admin, _ := c.Get(AdminContextKey).(*models.AdminIdentity)
	return admin
}

// Authenticate verifies the session token from the Authorization header or
// the session cookie and loads the admin into the request context. Missing,
// malformed, forged and expired tokens all produce the same 401.
func Authenticate(tokens *token.Service, repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				if cookie, err := c.Cookie(tokens.CookieName()); err == nil {
					raw = cookie.Value
				}
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid or expired token"})
			}

			id, err := claims.SubjectID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid or expired token"})
			}

			admin, err := repo.GetAdminByID(c.Request().Context(), id)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "invalid or expired token"})
			}

			c.Set(AdminContextKey, admin)
			return next(c)
		}
	}
}

// RequireRole enforces a minimum role for the route. Roles form a strict
// order (viewer < admin < super_admin); the check goes through the role's
// own ordering, not string comparison at call sites.
func RequireRole(minimum models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			admin := CurrentAdmin(c)
			if admin == nil || !admin.Role.AtLeast(minimum) {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "you do not have permission to perform this action"})
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
