// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package otp implements the one-time-code challenge state machine used for
// two-factor login and phone verification. A challenge moves
// NoChallenge -> Issued -> Consumed or Expired; issuing again replaces any
// live challenge for the same (admin, purpose), so at most one is ever
// consumable. Codes are compared exactly and a mismatch leaves the challenge
// live until expiry or replacement; retry limiting is deliberately not
// implemented here and belongs to the request rate limiter in front.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
	"codeberg.org/oliverandrich/counselling-backend/internal/pii"
	"codeberg.org/oliverandrich/counselling-backend/internal/repository"
)

// CodeLength is the fixed width of generated codes.
const CodeLength = 6

// Challenge is the result of issuing a new OTP. Code is returned exactly
// once so the caller can hand it to the delivery channel; it is never
// persisted in the clear outside the challenge row and never logged.
type Challenge struct {
	ID        string
	Code      string
	ExpiresAt time.Time
}

// Engine issues and verifies OTP challenges against the store.
type Engine struct {
	repo *repository.Repository
}

// NewEngine creates an OTP engine.
func NewEngine(repo *repository.Repository) *Engine {
	return &Engine{repo: repo}
}

// Issue creates a new challenge for the admin and purpose, invalidating any
// prior unconsumed challenge of the same purpose in the same transaction.
// The destination is stored only as its lookup hash.
func (e *Engine) Issue(ctx context.Context, adminID int64, destination string, purpose models.OtpPurpose, ttl time.Duration) (*Challenge, error) {
	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	challenge := &models.OtpChallenge{
		ID:              uuid.NewString(),
		AdminID:         adminID,
		DestinationHash: pii.LookupHash(destination),
		Code:            code,
		Purpose:         purpose,
		ExpiresAt:       time.Now().Add(ttl),
	}

	if err := e.repo.ReplaceOtpChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to store challenge: %w", err)
	}

	return &Challenge{ID: challenge.ID, Code: code, ExpiresAt: challenge.ExpiresAt}, nil
}

// Verify checks the submitted code against the latest live challenge for
// (admin, destination, purpose). On success the challenge is consumed
// atomically; concurrent verifications of the same challenge yield exactly
// one true. Expired and consumed challenges always verify false.
func (e *Engine) Verify(ctx context.Context, adminID int64, destination string, purpose models.OtpPurpose, submittedCode string) (bool, error) {
	challenge, err := e.repo.GetLatestOtpChallenge(ctx, adminID, pii.LookupHash(destination), purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	if challenge.Expired(time.Now()) {
		return false, nil
	}
	if challenge.Code != submittedCode {
		return false, nil
	}

	return e.repo.ConsumeOtpChallenge(ctx, challenge.ID)
}

// generateCode returns a fixed-width numeric code from crypto/rand.
func generateCode() (string, error) {
	// 100000..999999, uniform
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
