// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth composes the credential store, session tokens, OTP engine and
// reset flow into the externally visible use cases: register, login (with or
// without two-factor), verify-two-factor, password reset and phone
// verification. It owns no state of its own; it sequences calls and
// translates internal outcomes into the error taxonomy the handlers expose.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/phone"
	"codeberg.org/oliverandrich/counselling-backend/internal/pii"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/delivery"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/otp"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/reset"
	"codeberg.org/oliverandrich/counselling-backend/internal/token"
)

var (
	// ErrInvalidCredentials covers wrong password and unknown identifier
	// alike; callers never learn which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidEmail is returned for a malformed email address.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when the password fails validation.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("required field missing")
	// ErrInvalidCode covers unknown, expired, consumed and mismatched OTP
	// codes; the cases are not distinguishable by callers.
	ErrInvalidCode = errors.New("invalid or expired verification code")
	// ErrTwoFactorUnavailable is returned when two-factor is enabled but no
	// destination is on record to deliver a code to.
	ErrTwoFactorUnavailable = errors.New("two-factor authentication enabled but phone number missing")
	// ErrPhoneNotVerified is returned when enabling two-factor without a
	// verified phone.
	ErrPhoneNotVerified = errors.New("phone number must be verified first")
)

const minPasswordLength = 8

// dummyHash is compared against when the identifier resolves to no account,
// so response timing does not reveal account existence.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// deliveryTimeout bounds the fire-and-forget sends that follow a persisted
// state change.
const deliveryTimeout = 30 * time.Second

// Service is the authentication orchestrator.
type Service struct { //nolint:govet // fieldalignment not critical
	repo       *repository.Repository
	tokens     *token.Service
	otp        *otp.Engine
	reset      *reset.Flow
	email      delivery.Channel
	sms        delivery.Channel
	otpTTL     time.Duration
	bcryptCost int
}

// NewService creates the orchestrator with all collaborators injected.
func NewService(repo *repository.Repository, tokens *token.Service, otpEngine *otp.Engine, resetFlow *reset.Flow, email, sms delivery.Channel, otpTTL time.Duration, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		otp:        otpEngine,
		reset:      resetFlow,
		email:      email,
		sms:        sms,
		otpTTL:     otpTTL,
		bcryptCost: bcryptCost,
	}
}

// RegisterParams holds the fields for admin registration.
type RegisterParams struct {
	FullName string
	Phone    string
	Email    string
	Password string
	Role     models.Role
}

// Register creates a new admin identity. The phone number is normalized to
// canonical form before hashing and encrypting; duplicates surface as the
// repository's constraint-backed errors.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.AdminIdentity, error) {
	if strings.TrimSpace(params.FullName) == "" {
		return nil, fmt.Errorf("%w: full_name", ErrMissingField)
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(params.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	normalized, err := phone.Normalize(params.Phone)
	if err != nil {
		return nil, err
	}

	role := params.Role
	if role == "" {
		role = models.RoleAdmin
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role", ErrMissingField)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin, err := s.repo.CreateAdmin(ctx, repository.CreateAdminParams{
		FullName:     params.FullName,
		Phone:        normalized,
		Email:        params.Email,
		PasswordHash: string(passwordHash),
		Role:         role,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("register_success", "admin_id", admin.ID)
	return admin, nil
}

// LoginResult is the outcome of Login or VerifyTwoFactor. Either Token is
// set (full login) or RequiresTwoFactor is true with the challenge fields
// populated; never both.
type LoginResult struct { //nolint:govet // fieldalignment not critical
	Admin             *models.AdminIdentity
	Token             string
	TokenExpiresAt    time.Time
	RequiresTwoFactor bool
	ChallengeID       string
	MaskedDestination string
	ExpiresIn         int
}

// Login verifies the password for an email or phone identifier. When
// two-factor is enabled a challenge is issued and delivered instead of a
// session token; last-login is only touched on full success.
func (s *Service) Login(ctx context.Context, identifier, password string, rememberMe bool) (*LoginResult, error) {
	admin, err := s.resolveIdentifier(ctx, identifier)
	if err != nil {
		// Constant-time: always perform a bcrypt comparison so an unknown
		// identifier is not distinguishable by timing.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		slog.Warn("login_failed", "reason", "unknown_identifier")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "admin_id", admin.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if admin.TwoFactorEnabled {
		return s.beginTwoFactor(ctx, admin)
	}

	return s.completeLogin(ctx, admin, rememberMe)
}

// VerifyTwoFactor completes a two-factor login. The challenge ID is the
// opaque value returned by Login; the code must match the live challenge.
func (s *Service) VerifyTwoFactor(ctx context.Context, challengeID, code string, rememberMe bool) (*LoginResult, error) {
	challenge, err := s.repo.GetOtpChallengeByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if challenge.Purpose != models.OtpPurposeTwoFactorLogin {
		return nil, ErrInvalidCode
	}

	admin, err := s.repo.GetAdminByID(ctx, challenge.AdminID)
	if err != nil {
		return nil, ErrInvalidCode
	}

	ok, err := s.otp.Verify(ctx, admin.ID, admin.Phone, models.OtpPurposeTwoFactorLogin, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		slog.Warn("two_factor_failed", "admin_id", admin.ID)
		return nil, ErrInvalidCode
	}

	return s.completeLogin(ctx, admin, rememberMe)
}

// RequestPasswordReset starts the reset flow. The outcome is success-shaped
// for unknown identifiers and malformed phone numbers alike, so account
// existence is never confirmed to an unauthenticated caller.
func (s *Service) RequestPasswordReset(ctx context.Context, identifier string) error {
	admin, err := s.resolveIdentifier(ctx, identifier)
	if err != nil {
		// Same visible outcome as success.
		return s.reset.Request(ctx, nil)
	}
	return s.reset.Request(ctx, admin)
}

// ResetPassword redeems a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}
	return s.reset.Redeem(ctx, tokenValue, newPassword)
}

// ChangePassword updates the password for an authenticated admin after
// verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, adminID int64, currentPassword, newPassword string) error {
	admin, err := s.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}
	if len(newPassword) < minPasswordLength {
		return ErrWeakPassword
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.repo.UpdateAdminPassword(ctx, adminID, string(passwordHash))
}

// ChallengeInfo describes an issued phone-verification challenge.
type ChallengeInfo struct {
	ChallengeID       string
	MaskedDestination string
	ExpiresIn         int
}

// SendPhoneVerification issues a phone_verification challenge for the
// admin's registered number and delivers it by SMS.
func (s *Service) SendPhoneVerification(ctx context.Context, adminID int64) (*ChallengeInfo, error) {
	admin, err := s.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Phone == "" {
		return nil, ErrTwoFactorUnavailable
	}

	challenge, err := s.otp.Issue(ctx, admin.ID, admin.Phone, models.OtpPurposePhoneVerification, s.otpTTL)
	if err != nil {
		return nil, err
	}

	s.deliverCode(admin, challenge.Code, false)

	return &ChallengeInfo{
		ChallengeID:       challenge.ID,
		MaskedDestination: phone.Mask(admin.Phone),
		ExpiresIn:         int(s.otpTTL.Seconds()),
	}, nil
}

// VerifyPhone consumes a phone_verification challenge and marks the phone
// verified.
func (s *Service) VerifyPhone(ctx context.Context, adminID int64, code string) error {
	admin, err := s.repo.GetAdminByID(ctx, adminID)
	if err != nil {
		return err
	}

	ok, err := s.otp.Verify(ctx, admin.ID, admin.Phone, models.OtpPurposePhoneVerification, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}

	return s.repo.SetPhoneVerified(ctx, adminID, true)
}

// SetTwoFactor toggles two-factor login. Enabling requires a verified phone,
// otherwise the login flow would lock the account out of its own second
// factor.
func (s *Service) SetTwoFactor(ctx context.Context, adminID int64, enabled bool) error {
	if enabled {
		admin, err := s.repo.GetAdminByID(ctx, adminID)
		if err != nil {
			return err
		}
		if !admin.IsPhoneVerified {
			return ErrPhoneNotVerified
		}
	}
	return s.repo.SetTwoFactorEnabled(ctx, adminID, enabled)
}

// beginTwoFactor issues and delivers a login challenge. The challenge counts
// as issued once persisted; delivery runs fire-and-forget with failures
// logged.
func (s *Service) beginTwoFactor(ctx context.Context, admin *models.AdminIdentity) (*LoginResult, error) {
	if admin.Phone == "" {
		return nil, ErrTwoFactorUnavailable
	}

	challenge, err := s.otp.Issue(ctx, admin.ID, admin.Phone, models.OtpPurposeTwoFactorLogin, s.otpTTL)
	if err != nil {
		return nil, err
	}

	s.deliverCode(admin, challenge.Code, true)

	slog.Info("two_factor_challenge_issued", "admin_id", admin.ID)
	return &LoginResult{
		Admin:             admin,
		RequiresTwoFactor: true,
		ChallengeID:       challenge.ID,
		MaskedDestination: phone.Mask(admin.Phone),
		ExpiresIn:         int(s.otpTTL.Seconds()),
	}, nil
}

// completeLogin touches last-login and issues the session token.
func (s *Service) completeLogin(ctx context.Context, admin *models.AdminIdentity, rememberMe bool) (*LoginResult, error) {
	if err := s.repo.TouchLastLogin(ctx, admin.ID); err != nil {
		return nil, err
	}

	signed, expiresAt, err := s.tokens.Issue(admin, rememberMe)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	slog.Info("login_success", "admin_id", admin.ID)
	return &LoginResult{Admin: admin, Token: signed, TokenExpiresAt: expiresAt}, nil
}

// deliverCode sends an OTP code by SMS and, for login challenges, by email
// as well. The sends are detached from the request: a login challenge is
// issued once persisted, whether or not the message arrives. Failures are
// always logged.
func (s *Service) deliverCode(admin *models.AdminIdentity, code string, alsoEmail bool) {
	minutes := int(s.otpTTL.Minutes())
	adminID := admin.ID
	destination := admin.Phone
	email := admin.Email

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes. Do not share this code.", code, minutes)

		if result := s.sms.Send(ctx, destination, delivery.Message{Body: body}); !result.Success {
			slog.Error("otp_sms_failed", "admin_id", adminID, "error", result.Error)
		}

		if alsoEmail {
			result := s.email.Send(ctx, email, delivery.Message{
				Subject: "Login Verification Code",
				Body:    body,
			})
			if !result.Success {
				slog.Error("otp_email_failed", "admin_id", adminID, "error", result.Error)
			}
		}
	}()
}

// resolveIdentifier finds an admin by email or by normalized phone number.
func (s *Service) resolveIdentifier(ctx context.Context, identifier string) (*models.AdminIdentity, error) {
	if strings.Contains(identifier, "@") {
		return s.repo.GetAdminByEmail(ctx, identifier)
	}

	normalized, err := phone.Normalize(identifier)
	if err != nil {
		return nil, err
	}
	return s.repo.GetAdminByPhoneHash(ctx, pii.LookupHash(normalized))
}
