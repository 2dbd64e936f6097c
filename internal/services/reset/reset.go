// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reset implements the password reset flow: a single-use,
// high-entropy token mailed to the account's registered address, redeemable
// exactly once within its expiry window. Requesting a reset never reveals
// whether an account exists.
package reset

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
	"codeberg.org/oliverandrich/counselling-backend/internal/services/delivery"
)

// tokenBytes is the entropy of a reset token: 32 random bytes, 64 hex chars.
const tokenBytes = 32

var (
	// ErrInvalidToken covers unknown and already-used tokens alike.
	ErrInvalidToken = errors.New("invalid or expired reset token")
	// ErrExpiredToken is returned when the token matched but is past expiry.
	ErrExpiredToken = errors.New("reset token has expired")
)

// Flow issues and redeems password reset tokens.
type Flow struct {
	repo       *repository.Repository
	email      delivery.Channel
	ttl        time.Duration
	resetURL   string
	bcryptCost int
}

// NewFlow creates a reset flow. resetURL is the frontend page the mailed
// link points at; the token is appended as a query parameter.
func NewFlow(repo *repository.Repository, email delivery.Channel, ttl time.Duration, resetURL string, bcryptCost int) *Flow {
	return &Flow{
		repo:       repo,
		email:      email,
		ttl:        ttl,
		resetURL:   resetURL,
		bcryptCost: bcryptCost,
	}
}

// Request creates a reset token for the admin and mails it. The caller is
// expected to have resolved the identifier already; passing a nil admin is
// a no-op so the externally visible outcome is identical whether or not an
// account exists. Delivery failure is logged and does not undo the token.
func (f *Flow) Request(ctx context.Context, admin *models.AdminIdentity) error {
	if admin == nil {
		return nil
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	tokenValue := hex.EncodeToString(raw)

	record := &models.PasswordResetToken{
		ID:        uuid.NewString(),
		AdminID:   admin.ID,
		Token:     tokenValue,
		ExpiresAt: time.Now().Add(f.ttl),
	}
	if err := f.repo.CreatePasswordResetToken(ctx, record); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	minutes := int(f.ttl.Minutes())
	result := f.email.Send(ctx, admin.Email, delivery.Message{
		Subject: "Password Reset Request",
		Body: fmt.Sprintf(
			"A password reset was requested for your account.\n\n"+
				"Reset your password here: %s?token=%s\n\n"+
				"This link expires in %d minutes. If you did not request a reset, you can ignore this email.",
			f.resetURL, tokenValue, minutes),
	})
	if !result.Success {
		slog.Error("reset_email_failed", "admin_id", admin.ID, "error", result.Error)
	}

	return nil
}

// Redeem sets a new password for the token's owner and marks the token used
// in one atomic store operation. A second redemption of the same token, or
// any unknown token, fails with ErrInvalidToken; a matching token past its
// expiry fails with ErrExpiredToken.
func (f *Flow) Redeem(ctx context.Context, tokenValue, newPassword string) error {
	record, err := f.repo.GetPasswordResetToken(ctx, tokenValue)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	if record.Expired(time.Now()) {
		return ErrExpiredToken
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), f.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := f.repo.RedeemPasswordResetToken(ctx, tokenValue, string(passwordHash)); err != nil {
		// A concurrent redeemer won the race between our read and the update.
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}

	slog.Info("password_reset_completed", "admin_id", record.AdminID)
	return nil
}
