package services

import (
	"context"
	"time"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	CreateFunc           func(ctx context.Context, user *models.User) (*models.User, error)
	GetByIDFunc          func(ctx context.Context, id int64) (*models.User, error)
	GetByUsernameFunc    func(ctx context.Context, username string) (*models.User, error)
	GetByEmailFunc       func(ctx context.Context, email string) (*models.User, error)
	GetByGitHubIDFunc    func(ctx context.Context, githubID string) (*models.User, error)
	GetByGoogleIDFunc    func(ctx context.Context, googleID string) (*models.User, error)
	SetEmailVerifiedFunc func(ctx context.Context, userID int64, verified bool) error
	SetPasswordHashFunc  func(ctx context.Context, userID int64, passwordHash string) error
	SetLastLoginFunc     func(ctx context.Context, userID int64, at time.Time) error
	LinkProviderFunc     func(ctx context.Context, userID int64, provider, providerID string) error
	UpdateProfileFunc    func(ctx context.Context, userID int64, name, avatarURL, bio, location, company string) error
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByGitHubID(ctx context.Context, githubID string) (*models.User, error) {
	if m.GetByGitHubIDFunc != nil {
		return m.GetByGitHubIDFunc(ctx, githubID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	if m.GetByGoogleIDFunc != nil {
		return m.GetByGoogleIDFunc(ctx, googleID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) SetEmailVerified(ctx context.Context, userID int64, verified bool) error {
	if m.SetEmailVerifiedFunc != nil {
		return m.SetEmailVerifiedFunc(ctx, userID, verified)
	}
	return nil
}

func (m *MockUserRepository) SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	if m.SetPasswordHashFunc != nil {
		return m.SetPasswordHashFunc(ctx, userID, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	if m.SetLastLoginFunc != nil {
		return m.SetLastLoginFunc(ctx, userID, at)
	}
	return nil
}

func (m *MockUserRepository) LinkProvider(ctx context.Context, userID int64, provider, providerID string) error {
	if m.LinkProviderFunc != nil {
		return m.LinkProviderFunc(ctx, userID, provider, providerID)
	}
	return nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID int64, name, avatarURL, bio, location, company string) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, name, avatarURL, bio, location, company)
	}
	return nil
}

// MockRefreshTokenRepository implements RefreshTokenRepository for testing
type MockRefreshTokenRepository struct {
	CreateFunc           func(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error)
	GetByTokenIDFunc     func(ctx context.Context, tokenID string) (*models.RefreshToken, error)
	RotateFunc           func(ctx context.Context, oldTokenID string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error)
	RevokeFunc           func(ctx context.Context, tokenID string, now time.Time) (bool, error)
	RevokeAllForUserFunc func(ctx context.Context, userID int64, now time.Time) (int64, error)
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return token, nil
}

func (m *MockRefreshTokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.RefreshToken, error) {
	if m.GetByTokenIDFunc != nil {
		return m.GetByTokenIDFunc(ctx, tokenID)
	}
	return nil, models.ErrNotFound
}

func (m *MockRefreshTokenRepository) Rotate(ctx context.Context, oldTokenID string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	if m.RotateFunc != nil {
		return m.RotateFunc(ctx, oldTokenID, next, now)
	}
	return next, nil
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, tokenID, now)
	}
	return true, nil
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	if m.RevokeAllForUserFunc != nil {
		return m.RevokeAllForUserFunc(ctx, userID, now)
	}
	return 0, nil
}

// MockEmailVerificationRepository implements EmailVerificationRepository for testing
type MockEmailVerificationRepository struct {
	CreateFunc     func(ctx context.Context, token *models.EmailVerificationToken) (*models.EmailVerificationToken, error)
	GetByTokenFunc func(ctx context.Context, token string) (*models.EmailVerificationToken, error)
	MarkUsedFunc   func(ctx context.Context, id int64) error
}

func (m *MockEmailVerificationRepository) Create(ctx context.Context, token *models.EmailVerificationToken) (*models.EmailVerificationToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	token.ID = 1
	return token, nil
}

func (m *MockEmailVerificationRepository) GetByToken(ctx context.Context, token string) (*models.EmailVerificationToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmailVerificationRepository) MarkUsed(ctx context.Context, id int64) error {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, id)
	}
	return nil
}

// MockPasswordResetRepository implements PasswordResetRepository for testing
type MockPasswordResetRepository struct {
	CreateFunc     func(ctx context.Context, token *models.PasswordResetToken) (*models.PasswordResetToken, error)
	GetByTokenFunc func(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkUsedFunc   func(ctx context.Context, id int64) error
}

func (m *MockPasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	token.ID = 1
	return token, nil
}

func (m *MockPasswordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockPasswordResetRepository) MarkUsed(ctx context.Context, id int64) error {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, id)
	}
	return nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token)
	}
	return nil
}
