package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
	pkglogger "github.com/oklabflensburg/hackathonhub-sub000/pkg/logger"
)

// VerificationTokenExpiry is how long an emailed verification link stays
// redeemable.
const VerificationTokenExpiry = 24 * time.Hour

// EmailVerificationRepository defines the interface for verification token storage
type EmailVerificationRepository interface {
	Create(ctx context.Context, token *models.EmailVerificationToken) (*models.EmailVerificationToken, error)
	GetByToken(ctx context.Context, token string) (*models.EmailVerificationToken, error)
	MarkUsed(ctx context.Context, id int64) error
}

// VerificationService drives the email verification lifecycle: issuing
// single-use tokens, mailing them, and flipping email_verified on redemption.
type VerificationService struct {
	userRepo  UserRepository
	tokenRepo EmailVerificationRepository
	email     EmailService
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(userRepo UserRepository, tokenRepo EmailVerificationRepository, email EmailService, clock clockwork.Clock, logger *slog.Logger) *VerificationService {
	return &VerificationService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		email:     email,
		clock:     clock,
		logger:    logger,
	}
}

// Issue creates a fresh verification token for the user and mails the link.
func (s *VerificationService) Issue(ctx context.Context, user *models.User) error {
	token := &models.EmailVerificationToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: s.clock.Now().Add(VerificationTokenExpiry),
	}

	created, err := s.tokenRepo.Create(ctx, token)
	if err != nil {
		s.logger.Error("failed to create verification token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendVerificationEmail(ctx, user.Email, created.Token); err != nil {
		s.logger.Error("failed to send verification email", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("verification email issued", slog.Int64("user_id", user.ID))
	return nil
}

// Verify redeems a verification token. Redeeming a used token is accepted
// when the account ended up verified anyway, so double-clicking the emailed
// link does not show an error.
func (s *VerificationService) Verify(ctx context.Context, token string) error {
	if token = strings.TrimSpace(token); token == "" {
		return models.ErrVerificationTokenInvalid
	}

	record, err := s.tokenRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrVerificationTokenInvalid
		}
		s.logger.Error("failed to load verification token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if record.Used {
		user, err := s.userRepo.GetByID(ctx, record.UserID)
		if err == nil && user.EmailVerified {
			return nil
		}
		return models.ErrVerificationTokenUsed
	}

	if record.Expired(s.clock.Now()) {
		return models.ErrVerificationTokenExpired
	}

	if err := s.tokenRepo.MarkUsed(ctx, record.ID); err != nil {
		s.logger.Error("failed to mark verification token used", slog.Int64("user_id", record.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.userRepo.SetEmailVerified(ctx, record.UserID, true); err != nil {
		s.logger.Error("failed to mark email verified", slog.Int64("user_id", record.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.Int64("user_id", record.UserID))
	return nil
}

// Resend issues a new verification token for the address. The outcome is
// deliberately indistinguishable for unknown and already-verified addresses
// so the endpoint cannot be used to probe which emails have accounts.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification resend for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to look up user for verification resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified {
		s.logger.Info("verification resend for already verified account", slog.Int64("user_id", user.ID))
		return nil
	}

	return s.Issue(ctx, user)
}
