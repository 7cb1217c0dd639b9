package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/oauth"
)

// OAuthService redeems provider authorization grants into local users and
// sessions, covering sign-in, account linking and email merge.
type OAuthService struct {
	providers map[string]oauth.Provider
	userRepo  UserRepository
	sessions  *SessionService
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewOAuthService creates a new OAuthService
func NewOAuthService(providers []oauth.Provider, userRepo UserRepository, sessions *SessionService, clock clockwork.Clock, logger *slog.Logger) *OAuthService {
	byName := make(map[string]oauth.Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	return &OAuthService{
		providers: byName,
		userRepo:  userRepo,
		sessions:  sessions,
		clock:     clock,
		logger:    logger,
	}
}

func (s *OAuthService) provider(name string) (oauth.Provider, error) {
	p, ok := s.providers[name]
	if !ok || !p.Enabled() {
		return nil, models.ErrNotFound
	}
	return p, nil
}

// AuthorizeURL builds the provider consent URL. linkingUserID is non-zero
// when an authenticated user wants to attach the external identity to
// their existing account.
func (s *OAuthService) AuthorizeURL(providerName, returnTo string, linkingUserID int64) (string, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return "", err
	}

	state := oauth.EncodeState(oauth.State{
		ReturnTo: returnTo,
		UserID:   linkingUserID,
	})

	return p.AuthorizeURL(state), nil
}

// Complete redeems the authorization code: exchanges it, fetches the
// profile, resolves or creates the local user and issues a session. A
// session is returned even when the refresh record cannot be persisted;
// that failure is logged and the refresh token is simply not redeemable.
func (s *OAuthService) Complete(ctx context.Context, providerName, code, rawState string, meta SessionMetadata) (*TokenPair, *models.User, error) {
	p, err := s.provider(providerName)
	if err != nil {
		return nil, nil, err
	}

	state, err := oauth.DecodeState(rawState)
	if err != nil {
		return nil, nil, err
	}

	accessToken, err := p.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("provider code exchange failed", slog.String("provider", providerName), slog.Any("error", err))
		return nil, nil, err
	}

	profile, err := p.FetchProfile(ctx, accessToken)
	if err != nil {
		s.logger.Warn("provider profile fetch failed", slog.String("provider", providerName), slog.Any("error", err))
		return nil, nil, err
	}

	user, err := s.resolveUser(ctx, p.Name(), profile, state.UserID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.userRepo.SetLastLogin(ctx, user.ID, s.clock.Now()); err != nil {
		s.logger.Warn("failed to record last login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	}

	s.refreshProfile(ctx, user, profile)

	pair, err := s.sessions.IssueBestEffort(ctx, user, meta)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("provider sign-in completed",
		slog.String("provider", providerName), slog.Int64("user_id", user.ID))
	return pair, user, nil
}

func (s *OAuthService) getByProviderID(ctx context.Context, provider, providerID string) (*models.User, error) {
	switch provider {
	case models.AuthMethodGitHub:
		return s.userRepo.GetByGitHubID(ctx, providerID)
	case models.AuthMethodGoogle:
		return s.userRepo.GetByGoogleID(ctx, providerID)
	}
	return nil, fmt.Errorf("unknown provider %q", provider)
}

// resolveUser maps the provider identity onto a local account: an existing
// link wins, then an explicit linking request, then merge by trusted email,
// then a fresh account.
func (s *OAuthService) resolveUser(ctx context.Context, provider string, profile *oauth.Profile, linkingUserID int64) (*models.User, error) {
	existing, err := s.getByProviderID(ctx, provider, profile.ProviderID)
	if err == nil {
		if linkingUserID != 0 && linkingUserID != existing.ID {
			s.logger.Info("link rejected: provider identity bound elsewhere",
				slog.String("provider", provider), slog.Int64("user_id", linkingUserID))
			return nil, models.ErrProviderIdentityTaken
		}
		return existing, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to look up provider identity", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if linkingUserID != 0 {
		return s.linkToUser(ctx, provider, profile, linkingUserID)
	}

	if profile.Email != "" {
		byEmail, err := s.userRepo.GetByEmail(ctx, profile.Email)
		if err == nil {
			// Merge by trusted email: the provider vouched for the address,
			// so attach the identity to the existing account.
			return s.linkToUser(ctx, provider, profile, byEmail.ID)
		}
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user by provider email", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	return s.createUser(ctx, provider, profile)
}

func (s *OAuthService) linkToUser(ctx context.Context, provider string, profile *oauth.Profile, userID int64) (*models.User, error) {
	if err := s.userRepo.LinkProvider(ctx, userID, provider, profile.ProviderID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUserNotFound
		}
		if errors.Is(err, models.ErrProviderIdentityTaken) {
			return nil, err
		}
		s.logger.Error("failed to link provider identity", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to reload linked user", slog.Int64("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("provider identity linked", slog.String("provider", provider), slog.Int64("user_id", userID))
	return user, nil
}

func (s *OAuthService) createUser(ctx context.Context, provider string, profile *oauth.Profile) (*models.User, error) {
	if profile.Email == "" {
		s.logger.Warn("provider supplied no email, refusing enrollment", slog.String("provider", provider))
		return nil, models.ErrInvalidEmail
	}

	username, err := s.uniqueUsername(ctx, profile)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:      username,
		Email:         strings.ToLower(profile.Email),
		Name:          profile.Name,
		EmailVerified: profile.EmailVerified,
		AuthMethod:    provider,
		AvatarURL:     profile.AvatarURL,
		Bio:           profile.Bio,
		Location:      profile.Location,
		Company:       profile.Company,
	}
	switch provider {
	case models.AuthMethodGitHub:
		user.GitHubID = profile.ProviderID
	case models.AuthMethodGoogle:
		user.GoogleID = profile.ProviderID
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) || errors.Is(err, models.ErrUsernameTaken) || errors.Is(err, models.ErrProviderIdentityTaken) {
			return nil, err
		}
		s.logger.Error("failed to create provider-enrolled user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user enrolled via provider", slog.String("provider", provider), slog.Int64("user_id", created.ID))
	return created, nil
}

// uniqueUsername derives a username from the provider login or the email
// local part, suffixing a counter until it is free.
func (s *OAuthService) uniqueUsername(ctx context.Context, profile *oauth.Profile) (string, error) {
	base := profile.Username
	if base == "" {
		base, _, _ = strings.Cut(profile.Email, "@")
	}
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		base = "user"
	}

	candidate := base
	for i := 1; i <= 20; i++ {
		_, err := s.userRepo.GetByUsername(ctx, candidate)
		if errors.Is(err, models.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			s.logger.Error("failed to probe username", slog.Any("error", err))
			return "", models.ErrInternalServer
		}
		candidate = fmt.Sprintf("%s%d", base, i)
	}

	// Pathological collision run; fall back to a random suffix.
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}

// refreshProfile copies provider profile fields onto the account,
// preferring provider values but never blanking existing ones.
func (s *OAuthService) refreshProfile(ctx context.Context, user *models.User, profile *oauth.Profile) {
	pick := func(fresh, current string) string {
		if fresh != "" {
			return fresh
		}
		return current
	}

	name := pick(profile.Name, user.Name)
	avatar := pick(profile.AvatarURL, user.AvatarURL)
	bio := pick(profile.Bio, user.Bio)
	location := pick(profile.Location, user.Location)
	company := pick(profile.Company, user.Company)

	if name == user.Name && avatar == user.AvatarURL && bio == user.Bio &&
		location == user.Location && company == user.Company {
		return
	}

	if err := s.userRepo.UpdateProfile(ctx, user.ID, name, avatar, bio, location, company); err != nil {
		s.logger.Warn("failed to refresh profile from provider", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return
	}

	user.Name, user.AvatarURL, user.Bio, user.Location, user.Company = name, avatar, bio, location, company
}
