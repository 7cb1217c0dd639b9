package auth

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/config"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

// TokenManager signs and parses JWT access/refresh tokens with a single
// HS256 key. Claims are sub (username), user_id, type, exp, and a jti for
// refresh tokens; parsers ignore anything else.
type TokenManager struct {
	secret             []byte
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	clock              clockwork.Clock
}

// NewTokenManager creates a TokenManager. A placeholder secret logs a
// warning here, once, instead of refusing to start.
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration, clock clockwork.Clock, logger *slog.Logger) *TokenManager {
	if secret == config.PlaceholderSecretKey {
		logger.Warn("token signing key is the built-in placeholder, tokens are forgeable")
	}
	return &TokenManager{
		secret:             []byte(secret),
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		clock:              clock,
	}
}

func (tm *TokenManager) sign(claims *models.TokenClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.Type, err)
	}
	return signed, nil
}

// GenerateAccessToken creates a short-lived access token.
func (tm *TokenManager) GenerateAccessToken(userID int64, username string) (string, error) {
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(tm.clock.Now().Add(tm.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(tm.clock.Now()),
		},
	}
	return tm.sign(claims)
}

// GenerateRefreshToken creates a long-lived refresh token with a fresh jti
// and returns both the signed token and the jti for server-side bookkeeping.
func (tm *TokenManager) GenerateRefreshToken(userID int64, username string) (string, string, error) {
	jti := uuid.New().String()

	claims := &models.TokenClaims{
		Type:   models.TokenTypeRefresh,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(tm.clock.Now().Add(tm.refreshTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(tm.clock.Now()),
		},
	}

	signed, err := tm.sign(claims)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// RefreshTokenExpiry exposes the configured refresh TTL so callers can
// persist matching expirations.
func (tm *TokenManager) RefreshTokenExpiry() time.Duration {
	return tm.refreshTokenExpiry
}

// AccessTokenExpiry exposes the configured access TTL.
func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.accessTokenExpiry
}

// ParseToken verifies signature, algorithm and expiry, and returns the
// claims. Any failure maps to ErrUnauthorized.
func (tm *TokenManager) ParseToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.Now),
	)
	if err != nil || !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" || claims.Subject == "" || claims.UserID == 0 {
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}
