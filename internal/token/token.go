// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies the stateless session credential: a
// signed HS256 JWT carrying identity claims. The server keeps only the
// signing secret; issued tokens live with the client until natural expiry.
// Rotating the secret invalidates every outstanding token at once.
package token

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"codeberg.org/oliverandrich/counselling-backend/internal/models"
)

// ErrInvalidToken is the single externally visible failure for a missing,
// malformed, forged or expired token. The cases are deliberately not
// distinguishable by callers.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the identity claims embedded in a session token.
type Claims struct {
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies session tokens and builds the matching cookie.
type Service struct {
	secret       []byte
	ttl          time.Duration
	longLivedTTL time.Duration
	cookieName   string
	cookieSecure bool
}

// Config holds the token service settings. TTL and LongLivedTTL must differ
// meaningfully; both come from configuration, not constants.
type Config struct {
	Secret       string
	TTL          time.Duration
	LongLivedTTL time.Duration
	CookieName   string
	CookieSecure bool
}

// NewService creates a token service.
func NewService(cfg Config) *Service {
	return &Service{
		secret:       []byte(cfg.Secret),
		ttl:          cfg.TTL,
		longLivedTTL: cfg.LongLivedTTL,
		cookieName:   cfg.CookieName,
		cookieSecure: cfg.CookieSecure,
	}
}

// Issue signs a token for the admin. longLived selects the remember-me
// expiry (~30 days) over the default (~1 day). Returns the token and its
// expiry so the transport cookie can match it exactly.
func (s *Service) Issue(admin *models.AdminIdentity, longLived bool) (string, time.Time, error) {
	ttl := s.ttl
	if longLived {
		ttl = s.longLivedTTL
	}

	now := time.Now()
	expiresAt := now.Add(ttl)

	claims := Claims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(admin.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token. Any failure collapses into
// ErrInvalidToken; claims from a token whose signature does not verify are
// never returned.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CookieName returns the configured session cookie name.
func (s *Service) CookieName() string {
	return s.cookieName
}

// Cookie builds the http-only session cookie carrying the token. The expiry
// matches the token's own so either transport authenticates identically.
// HttpOnly keeps it out of reach of page scripts.
func (s *Service) Cookie(tokenString string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds an expired cookie instructing the client to discard its
// token. There is no server-side state to clear.
func (s *Service) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SubjectID parses the numeric admin ID out of a verified claim set.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return id, nil
}
