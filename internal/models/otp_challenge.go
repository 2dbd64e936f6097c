// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// OtpPurpose scopes a challenge to the flow that issued it.
type OtpPurpose string

const (
	OtpPurposePhoneVerification OtpPurpose = "phone_verification"
	OtpPurposeTwoFactorLogin    OtpPurpose = "two_factor_login"
)

// OtpChallenge is a short-lived one-time code bound to an admin and a
// purpose. The delivery destination is stored only as its lookup hash.
// At most one unconsumed, unexpired challenge exists per (admin, purpose);
// re-issuing replaces any prior one.
type OtpChallenge struct { //nolint:govet // fieldalignment: readability over optimization
	ID              string     `db:"id" json:"id"`
	AdminID         int64      `db:"admin_id" json:"admin_id"`
	DestinationHash string     `db:"destination_hash" json:"-"`
	Code            string     `db:"code" json:"-"`
	Purpose         OtpPurpose `db:"purpose" json:"purpose"`
	ExpiresAt       time.Time  `db:"expires_at" json:"expires_at"`
	Consumed        bool       `db:"consumed" json:"consumed"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Expired reports whether the challenge is past its expiry at now.
func (c *OtpChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
