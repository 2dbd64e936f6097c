// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/counselling-backend/internal/middleware"
	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/auth"
	"codeberg.org/oliverandrich/counselling-backend/internal/token"
)

// AuthHandlers contains handlers for authentication.
type AuthHandlers struct {
	auth   *auth.Service
	tokens *token.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(authService *auth.Service, tokens *token.Service) *AuthHandlers {
	return &AuthHandlers{auth: authService, tokens: tokens}
}

// RegisterRequest is the request body for admin registration.
type RegisterRequest struct {
	FullName string      `json:"full_name"`
	Phone    string      `json:"phone"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// Register creates a new admin and logs it in.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	admin, err := h.auth.Register(c.Request().Context(), auth.RegisterParams{
		FullName: req.FullName,
		Phone:    req.Phone,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return writeError(c, err)
	}

	signed, expiresAt, err := h.tokens.Issue(admin, false)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(h.tokens.Cookie(signed, expiresAt))
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"token":   signed,
		"admin":   adminPayload(admin),
	})
}

// LoginRequest is the request body for login. Identifier is an email
// address or a phone number.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
}

// Login authenticates an admin. When two-factor is enabled the response
// carries a challenge instead of a token.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	result, err := h.auth.Login(c.Request().Context(), req.Identifier, req.Password, req.RememberMe)
	if err != nil {
		return writeError(c, err)
	}

	if result.RequiresTwoFactor {
		return c.JSON(http.StatusOK, echo.Map{
			"success":             true,
			"requires_two_factor": true,
			"challenge_id":        result.ChallengeID,
			"message":             "Enter the verification code sent to " + result.MaskedDestination + ".",
			"expires_in":          result.ExpiresIn,
		})
	}

	c.SetCookie(h.tokens.Cookie(result.Token, result.TokenExpiresAt))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   result.Token,
		"admin":   adminPayload(result.Admin),
	})
}

// VerifyTwoFactorRequest is the request body for completing a two-factor
// login.
type VerifyTwoFactorRequest struct {
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
	RememberMe  bool   `json:"remember_me"`
}

// VerifyTwoFactor exchanges a challenge and code for a session token.
func (h *AuthHandlers) VerifyTwoFactor(c echo.Context) error {
	var req VerifyTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	result, err := h.auth.VerifyTwoFactor(c.Request().Context(), req.ChallengeID, req.Code, req.RememberMe)
	if err != nil {
		return writeError(c, err)
	}

	c.SetCookie(h.tokens.Cookie(result.Token, result.TokenExpiresAt))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"token":   result.Token,
		"admin":   adminPayload(result.Admin),
	})
}

// Logout instructs the client to discard its token. Tokens are not
// revocable before natural expiry; there is nothing server-side to clear.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(h.tokens.ClearCookie())
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Logged out successfully"})
}

// Me returns the authenticated admin.
func (h *AuthHandlers) Me(c echo.Context) error {
	admin := middleware.CurrentAdmin(c)
	return c.JSON(http.StatusOK, echo.Map{"success": true, "admin": admin})
}

// ResetRequestRequest is the request body for starting a password reset.
type ResetRequestRequest struct {
	Identifier string `json:"identifier"`
}

// RequestPasswordReset starts the reset flow. The response is identical
// whether or not an account exists.
func (h *AuthHandlers) RequestPasswordReset(c echo.Context) error {
	var req ResetRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if err := h.auth.RequestPasswordReset(c.Request().Context(), req.Identifier); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "If an account exists, a password reset link has been sent",
	})
}

// ResetPasswordRequest is the request body for redeeming a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetPassword redeems a reset token and sets the new password.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if err := h.auth.ResetPassword(c.Request().Context(), req.Token, req.NewPassword); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password reset successfully"})
}

// SendPhoneVerification issues a verification code for the caller's
// registered phone number.
func (h *AuthHandlers) SendPhoneVerification(c echo.Context) error {
	admin := middleware.CurrentAdmin(c)

	info, err := h.auth.SendPhoneVerification(c.Request().Context(), admin.ID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"challenge_id": info.ChallengeID,
		"message":      "Enter the verification code sent to " + info.MaskedDestination + ".",
		"expires_in":   info.ExpiresIn,
	})
}

// VerifyPhoneRequest is the request body for confirming a phone number.
type VerifyPhoneRequest struct {
	Code string `json:"code"`
}

// VerifyPhone confirms the caller's phone number with a verification code.
func (h *AuthHandlers) VerifyPhone(c echo.Context) error {
	admin := middleware.CurrentAdmin(c)

	var req VerifyPhoneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if err := h.auth.VerifyPhone(c.Request().Context(), admin.ID, req.Code); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Phone number verified"})
}

// ChangePasswordRequest is the request body for changing the password while
// logged in.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword updates the caller's password.
func (h *AuthHandlers) ChangePassword(c echo.Context) error {
	admin := middleware.CurrentAdmin(c)

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request"})
	}

	if err := h.auth.ChangePassword(c.Request().Context(), admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Password changed successfully"})
}
