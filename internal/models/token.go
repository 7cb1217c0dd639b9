package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type tags carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the closed claim set of issued tokens: sub (username),
// user_id, type, exp, and jti for refresh tokens. Parsers ignore anything
// else.
type TokenClaims struct {
	Type   string `json:"type"`
	UserID int64  `json:"user_id"`
	jwt.RegisteredClaims
}

// RefreshToken is the server-side record of an issued refresh token,
// keyed by the jti claim. Revocation is a flag, never a delete: a revoked
// row keeps the audit trail and closes the rotation race.
type RefreshToken struct {
	ID                int64
	UserID            int64
	TokenID           string // jti claim
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
	ExpiresAt         time.Time
	Revoked           bool
	RevokedAt         *time.Time
	ReplacedByTokenID string
	CreatedAt         time.Time
}

// Active reports whether the record can still be redeemed at the given
// instant.
func (t *RefreshToken) Active(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// EmailVerificationToken is a single-use token mailed to confirm an address.
type EmailVerificationToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (t *EmailVerificationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// PasswordResetToken is a single-use token mailed for the forgot-password
// flow. Same shape as EmailVerificationToken but a disjoint family.
type PasswordResetToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

func (t *PasswordResetToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
