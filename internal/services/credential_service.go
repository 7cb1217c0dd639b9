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
	pkgauth "github.com/oklabflensburg/hackathonhub-sub000/pkg/auth"
	pkglogger "github.com/oklabflensburg/hackathonhub-sub000/pkg/logger"
)

// ResetTokenExpiry is how long an emailed password-reset link stays
// redeemable.
const ResetTokenExpiry = time.Hour

// UserRepository defines the interface for user storage operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByGitHubID(ctx context.Context, githubID string) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	SetEmailVerified(ctx context.Context, userID int64, verified bool) error
	SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error
	SetLastLogin(ctx context.Context, userID int64, at time.Time) error
	LinkProvider(ctx context.Context, userID int64, provider, providerID string) error
	UpdateProfile(ctx context.Context, userID int64, name, avatarURL, bio, location, company string) error
}

// PasswordResetRepository defines the interface for reset token storage
type PasswordResetRepository interface {
	Create(ctx context.Context, token *models.PasswordResetToken) (*models.PasswordResetToken, error)
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id int64) error
}

// CredentialService handles password registration, login and the
// forgot/reset password lifecycle.
type CredentialService struct {
	userRepo     UserRepository
	resetRepo    PasswordResetRepository
	sessions     *SessionService
	verification *VerificationService
	email        EmailService
	clock        clockwork.Clock
	logger       *slog.Logger

	// Hash compared against when the account does not exist, so the
	// missing-user branch costs a bcrypt verification like the real one.
	dummyHash string
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(userRepo UserRepository, resetRepo PasswordResetRepository, sessions *SessionService, verification *VerificationService, email EmailService, clock clockwork.Clock, logger *slog.Logger) *CredentialService {
	dummyHash, err := pkgauth.HashPassword(uuid.New().String())
	if err != nil {
		logger.Error("failed to precompute dummy password hash", slog.Any("error", err))
	}

	return &CredentialService{
		userRepo:     userRepo,
		resetRepo:    resetRepo,
		sessions:     sessions,
		verification: verification,
		email:        email,
		clock:        clock,
		logger:       logger,
		dummyHash:    dummyHash,
	}
}

// Register creates a password-authenticated account and mails a
// verification link. Conflicting usernames and emails surface as
// ErrUsernameTaken / ErrEmailTaken, resolved by the database so two
// concurrent registrations cannot both win.
func (s *CredentialService) Register(ctx context.Context, username, email, password, name string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, models.ErrBadRequest
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		AuthMethod:   models.AuthMethodEmail,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) || errors.Is(err, models.ErrUsernameTaken) {
			return nil, err
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Registration succeeded even if the verification email does not go
	// out; the user can ask for a resend.
	if err := s.verification.Issue(ctx, created); err != nil {
		s.logger.Warn("verification email not sent at registration", slog.Int64("user_id", created.ID))
	}

	s.logger.Info("user registered", slog.Int64("user_id", created.ID))
	return created, nil
}

func (s *CredentialService) lookupByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	if strings.Contains(identifier, "@") {
		return s.userRepo.GetByEmail(ctx, identifier)
	}
	return s.userRepo.GetByUsername(ctx, identifier)
}

// Login authenticates by username or email plus password and issues a
// session. The missing-user branch still runs a bcrypt comparison so it is
// not measurably faster than a wrong password.
func (s *CredentialService) Login(ctx context.Context, identifier, password string, meta SessionMetadata) (*TokenPair, *models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, models.ErrInvalidCredentials
	}

	user, err := s.lookupByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.VerifyPassword(password, s.dummyHash)
			s.logger.Info("login failed: invalid credentials")
			return nil, nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for login", slog.Any("error", err))
		return nil, nil, models.ErrInternalServer
	}

	if !user.HasPassword() {
		// OAuth-only account; burn a comparison and fail the same way.
		pkgauth.VerifyPassword(password, s.dummyHash)
		s.logger.Info("login failed: account has no password", slog.Int64("user_id", user.ID))
		return nil, nil, models.ErrInvalidCredentials
	}

	if !pkgauth.VerifyPassword(password, user.PasswordHash) {
		s.logger.Info("login failed: invalid credentials", slog.Int64("user_id", user.ID))
		return nil, nil, models.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		s.logger.Info("login blocked: email not verified", slog.Int64("user_id", user.ID))
		return nil, nil, models.ErrEmailNotVerified
	}

	pair, err := s.sessions.Issue(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.SetLastLogin(ctx, user.ID, s.clock.Now()); err != nil {
		s.logger.Warn("failed to record last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("user logged in", slog.Int64("user_id", user.ID))
	return pair, user, nil
}

// ChangePassword replaces the password after verifying the current one and
// revokes every open session.
func (s *CredentialService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUserNotFound
		}
		s.logger.Error("failed to load user for password change", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !user.HasPassword() || !pkgauth.VerifyPassword(currentPassword, user.PasswordHash) {
		s.logger.Info("password change rejected: current password wrong", slog.Int64("user_id", userID))
		return models.ErrInvalidCredentials
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrBadRequest
	}

	if err := s.userRepo.SetPasswordHash(ctx, userID, newHash); err != nil {
		s.logger.Error("failed to update password hash", slog.Int64("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.sessions.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("failed to revoke sessions after password change", slog.Int64("user_id", userID))
	}

	s.logger.Info("password changed", slog.Int64("user_id", userID))
	return nil
}

// ForgotPassword mails a reset link when the address has an account. The
// result is identical either way so the endpoint cannot confirm whether an
// email is registered.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token := &models.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.New().String(),
		ExpiresAt: s.clock.Now().Add(ResetTokenExpiry),
	}

	created, err := s.resetRepo.Create(ctx, token)
	if err != nil {
		s.logger.Error("failed to create password reset token", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.email.SendPasswordResetEmail(ctx, user.Email, created.Token); err != nil {
		s.logger.Error("failed to send password reset email", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	s.logger.Info("password reset email issued", slog.Int64("user_id", user.ID))
	return nil
}

// ResetPassword redeems a reset token, sets the new password and revokes
// every open session. A used token is indistinguishable from an unknown one.
func (s *CredentialService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token = strings.TrimSpace(token); token == "" {
		return models.ErrResetTokenInvalid
	}

	record, err := s.resetRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrResetTokenInvalid
		}
		s.logger.Error("failed to load password reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if record.Used {
		return models.ErrResetTokenInvalid
	}

	if record.Expired(s.clock.Now()) {
		return models.ErrResetTokenExpired
	}

	newHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrBadRequest
	}

	if err := s.resetRepo.MarkUsed(ctx, record.ID); err != nil {
		s.logger.Error("failed to mark reset token used", slog.Int64("user_id", record.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.userRepo.SetPasswordHash(ctx, record.UserID, newHash); err != nil {
		s.logger.Error("failed to set password from reset", slog.Int64("user_id", record.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.sessions.RevokeAll(ctx, record.UserID); err != nil {
		s.logger.Error("failed to revoke sessions after password reset", slog.Int64("user_id", record.UserID))
	}

	s.logger.Info("password reset completed", slog.Int64("user_id", record.UserID))
	return nil
}
