// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
)

// ReplaceOtpChallenge invalidates any prior unconsumed challenge for the
// same (admin, purpose) and inserts the new one in a single transaction, so
// at most one live challenge exists per purpose and a concurrent verify can
// never consume a stale challenge after the new one is visible.
func (r *Repository) ReplaceOtpChallenge(ctx context.Context, challenge *models.OtpChallenge) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM otp_challenges WHERE admin_id = ? AND purpose = ? AND consumed = 0`,
		challenge.AdminID, challenge.Purpose); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO otp_challenges (id, admin_id, destination_hash, code, purpose, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		challenge.ID, challenge.AdminID, challenge.DestinationHash,
		challenge.Code, challenge.Purpose, challenge.ExpiresAt); err != nil {
		return err
	}

	return tx.Commit()
}

// GetLatestOtpChallenge returns the most recent unconsumed challenge for the
// admin, destination hash and purpose. Expiry is checked by the caller at
// verification time, not here.
func (r *Repository) GetLatestOtpChallenge(ctx context.Context, adminID int64, destinationHash string, purpose models.OtpPurpose) (*models.OtpChallenge, error) {
	var challenge models.OtpChallenge
	err := r.db.GetContext(ctx, &challenge,
		`SELECT * FROM otp_challenges
		 WHERE admin_id = ? AND destination_hash = ? AND purpose = ? AND consumed = 0
		 ORDER BY created_at DESC LIMIT 1`,
		adminID, destinationHash, purpose)
	if err != nil {
		return nil, wrapError(err)
	}
	return &challenge, nil
}

// GetOtpChallengeByID retrieves a challenge by its opaque ID.
func (r *Repository) GetOtpChallengeByID(ctx context.Context, id string) (*models.OtpChallenge, error) {
	var challenge models.OtpChallenge
	if err := r.db.GetContext(ctx, &challenge, `SELECT * FROM otp_challenges WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &challenge, nil
}

// ConsumeOtpChallenge marks a challenge consumed. The WHERE consumed = 0
// guard makes concurrent verification attempts resolve to exactly one
// winner; the losers see false.
func (r *Repository) ConsumeOtpChallenge(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE otp_challenges SET consumed = 1 WHERE id = ? AND consumed = 0`, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// DeleteExpiredOtpChallenges removes challenges past their expiry. Expiry is
// enforced at verification time regardless; this is just periodic hygiene.
func (r *Repository) DeleteExpiredOtpChallenges(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE expires_at < ?`, time.Now())
	return err
}
