package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/auth"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

// RefreshTokenRepository defines the interface for refresh token record operations
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)
	GetByTokenID(ctx context.Context, tokenID string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, oldTokenID string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error)
	Revoke(ctx context.Context, tokenID string, now time.Time) (bool, error)
	RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error)
}

// TokenPair is a freshly issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// SessionMetadata describes the client a refresh token was issued to.
type SessionMetadata struct {
	DeviceFingerprint string
	IPAddress         string
	UserAgent         string
}

// SessionService issues token pairs and manages the server-side refresh
// token records behind rotation and revocation.
type SessionService struct {
	refreshRepo RefreshTokenRepository
	userRepo    UserRepository
	tm          *auth.TokenManager
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(refreshRepo RefreshTokenRepository, userRepo UserRepository, tm *auth.TokenManager, clock clockwork.Clock, logger *slog.Logger) *SessionService {
	return &SessionService{
		refreshRepo: refreshRepo,
		userRepo:    userRepo,
		tm:          tm,
		clock:       clock,
		logger:      logger,
	}
}

func (s *SessionService) generatePair(user *models.User) (*TokenPair, *models.RefreshToken, error) {
	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	refreshToken, jti, err := s.tm.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		s.logger.Error("failed to generate refresh token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	record := &models.RefreshToken{
		UserID:    user.ID,
		TokenID:   jti,
		ExpiresAt: s.clock.Now().Add(s.tm.RefreshTokenExpiry()),
	}

	pair := &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}

	return pair, record, nil
}

// Issue creates a token pair for the user and persists the refresh record.
func (s *SessionService) Issue(ctx context.Context, user *models.User, meta SessionMetadata) (*TokenPair, error) {
	pair, record, err := s.generatePair(user)
	if err != nil {
		return nil, err
	}

	record.DeviceFingerprint = meta.DeviceFingerprint
	record.IPAddress = meta.IPAddress
	record.UserAgent = meta.UserAgent

	if _, err := s.refreshRepo.Create(ctx, record); err != nil {
		s.logger.Error("failed to persist refresh token record", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return pair, nil
}

// IssueBestEffort creates a token pair like Issue but tolerates a failed
// record write: the session is still returned and the refresh token simply
// cannot be redeemed later. Used at the end of an OAuth flow where the user
// has already authenticated with the provider.
func (s *SessionService) IssueBestEffort(ctx context.Context, user *models.User, meta SessionMetadata) (*TokenPair, error) {
	pair, record, err := s.generatePair(user)
	if err != nil {
		return nil, err
	}

	record.DeviceFingerprint = meta.DeviceFingerprint
	record.IPAddress = meta.IPAddress
	record.UserAgent = meta.UserAgent

	if _, err := s.refreshRepo.Create(ctx, record); err != nil {
		s.logger.Error("refresh token record not persisted, token will not be redeemable",
			slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	return pair, nil
}

// Refresh redeems a refresh token and rotates it: the old record is revoked
// and a new pair is issued in its place. A token whose record is missing,
// expired or already revoked yields ErrRefreshTokenInvalid.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string, meta SessionMetadata) (*TokenPair, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ParseToken(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh || claims.ID == "" {
		s.logger.Warn("refresh attempt with non-refresh token", slog.Int64("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	record, err := s.refreshRepo.GetByTokenID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("refresh token has no server-side record", slog.Int64("user_id", claims.UserID))
			return nil, models.ErrRefreshTokenInvalid
		}
		s.logger.Error("failed to load refresh token record", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !record.Active(s.clock.Now()) {
		s.logger.Info("refresh attempt with revoked or expired record",
			slog.Int64("user_id", record.UserID), slog.Bool("revoked", record.Revoked))
		return nil, models.ErrRefreshTokenInvalid
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user gone for token refresh", slog.Int64("user_id", claims.UserID))
			return nil, models.ErrUserNotFound
		}
		s.logger.Error("failed to get user for token refresh", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	pair, next, err := s.generatePair(user)
	if err != nil {
		return nil, err
	}

	next.DeviceFingerprint = meta.DeviceFingerprint
	next.IPAddress = meta.IPAddress
	next.UserAgent = meta.UserAgent

	if _, err := s.refreshRepo.Rotate(ctx, claims.ID, next, s.clock.Now()); err != nil {
		if errors.Is(err, models.ErrRefreshTokenInvalid) {
			// Lost the rotation race to a concurrent redemption.
			s.logger.Warn("concurrent refresh token redemption", slog.Int64("user_id", user.ID))
			return nil, models.ErrRefreshTokenInvalid
		}
		s.logger.Error("failed to rotate refresh token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("refresh token rotated", slog.Int64("user_id", user.ID))
	return pair, nil
}

// Revoke invalidates a single refresh token (logout). Revoking a token that
// is already revoked or unknown is a no-op.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.tm.ParseToken(refreshToken)
	if err != nil {
		return models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh || claims.ID == "" {
		return models.ErrUnauthorized
	}

	revoked, err := s.refreshRepo.Revoke(ctx, claims.ID, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to revoke refresh token", slog.Int64("user_id", claims.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if revoked {
		s.logger.Info("refresh token revoked", slog.Int64("user_id", claims.UserID))
	}
	return nil
}

// RevokeAll invalidates every live refresh token for the user (logout
// everywhere, password change).
func (s *SessionService) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	count, err := s.refreshRepo.RevokeAllForUser(ctx, userID, s.clock.Now())
	if err != nil {
		s.logger.Error("failed to revoke user sessions", slog.Int64("user_id", userID), slog.Any("error", err))
		return 0, models.ErrInternalServer
	}

	s.logger.Info("revoked all user sessions", slog.Int64("user_id", userID), slog.Int64("count", count))
	return count, nil
}
