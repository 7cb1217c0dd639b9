package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider implements oauth.Provider with canned responses.
type stubProvider struct {
	name    string
	profile *oauth.Profile
}

func (p *stubProvider) Name() string                 { return p.name }
func (p *stubProvider) Enabled() bool                { return true }
func (p *stubProvider) ValidateConfig() error        { return nil }
func (p *stubProvider) AuthorizeURL(s string) string { return "https://provider.test/authorize?state=" + s }

func (p *stubProvider) Exchange(ctx context.Context, code string) (string, error) {
	if code == "bad-code" {
		return "", models.ErrProviderUnavailable
	}
	return "provider-access-token", nil
}

func (p *stubProvider) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	return p.profile, nil
}

func githubStub(profile *oauth.Profile) *stubProvider {
	return &stubProvider{name: models.AuthMethodGitHub, profile: profile}
}

func newOAuthService(provider oauth.Provider, userRepo UserRepository, refreshRepo RefreshTokenRepository) *OAuthService {
	clock := clockwork.NewFakeClock()
	sessions := newSessionService(clock, refreshRepo, userRepo)
	return NewOAuthService([]oauth.Provider{provider}, userRepo, sessions, clock, slog.Default())
}

func TestOAuthService_AuthorizeURLCarriesState(t *testing.T) {
	svc := newOAuthService(githubStub(nil), &MockUserRepository{}, &MockRefreshTokenRepository{})

	url, err := svc.AuthorizeURL(models.AuthMethodGitHub, "/dashboard", 42)
	require.NoError(t, err)

	state := url[len("https://provider.test/authorize?state="):]
	decoded, err := oauth.DecodeState(state)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", decoded.ReturnTo)
	assert.Equal(t, int64(42), decoded.UserID)
}

func TestOAuthService_AuthorizeURLUnknownProvider(t *testing.T) {
	svc := newOAuthService(githubStub(nil), &MockUserRepository{}, &MockRefreshTokenRepository{})

	_, err := svc.AuthorizeURL("gitlab", "", 0)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOAuthService_CompleteCreatesNewUser(t *testing.T) {
	profile := &oauth.Profile{
		ProviderID:    "gh-123",
		Username:      "Alice",
		Email:         "Alice@Example.com",
		EmailVerified: true,
		Name:          "Alice A",
		AvatarURL:     "https://avatars.test/alice",
	}

	var created *models.User
	userRepo := &MockUserRepository{
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = 7
			created = user
			return user, nil
		},
	}
	svc := newOAuthService(githubStub(profile), userRepo, &MockRefreshTokenRepository{})

	pair, user, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "", SessionMetadata{})
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, int64(7), user.ID)

	require.NotNil(t, created)
	assert.Equal(t, "alice", created.Username)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Equal(t, "gh-123", created.GitHubID)
	assert.Equal(t, models.AuthMethodGitHub, created.AuthMethod)
	assert.True(t, created.EmailVerified)
}

func TestOAuthService_CompleteReusesLinkedUser(t *testing.T) {
	existing := testUser()
	existing.GitHubID = "gh-123"

	userRepo := &MockUserRepository{
		GetByGitHubIDFunc: func(ctx context.Context, githubID string) (*models.User, error) {
			return existing, nil
		},
	}
	profile := &oauth.Profile{ProviderID: "gh-123", Email: "alice@example.com", EmailVerified: true}
	svc := newOAuthService(githubStub(profile), userRepo, &MockRefreshTokenRepository{})

	_, user, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "", SessionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
}

func TestOAuthService_CompleteLinkConflict(t *testing.T) {
	existing := testUser() // ID 42 holds the identity

	userRepo := &MockUserRepository{
		GetByGitHubIDFunc: func(ctx context.Context, githubID string) (*models.User, error) {
			return existing, nil
		},
	}
	profile := &oauth.Profile{ProviderID: "gh-123", Email: "alice@example.com"}
	svc := newOAuthService(githubStub(profile), userRepo, &MockRefreshTokenRepository{})

	state := oauth.EncodeState(oauth.State{UserID: 99})
	_, _, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", state, SessionMetadata{})
	assert.ErrorIs(t, err, models.ErrProviderIdentityTaken)
}

func TestOAuthService_CompleteLinksToRequestingUser(t *testing.T) {
	target := testUser()

	var linkedProvider, linkedID string
	userRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return target, nil
		},
		LinkProviderFunc: func(ctx context.Context, userID int64, provider, providerID string) error {
			linkedProvider, linkedID = provider, providerID
			return nil
		},
	}
	profile := &oauth.Profile{ProviderID: "gh-123", Email: "alice@example.com"}
	svc := newOAuthService(githubStub(profile), userRepo, &MockRefreshTokenRepository{})

	state := oauth.EncodeState(oauth.State{UserID: target.ID})
	_, user, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", state, SessionMetadata{})
	require.NoError(t, err)

	assert.Equal(t, target.ID, user.ID)
	assert.Equal(t, models.AuthMethodGitHub, linkedProvider)
	assert.Equal(t, "gh-123", linkedID)
}

func TestOAuthService_CompleteMergesByEmail(t *testing.T) {
	existing := testUser()

	var linked bool
	userRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return existing, nil
		},
		GetByIDFunc: func(ctx context.Context, id int64) (*models.User, error) {
			return existing, nil
		},
		LinkProviderFunc: func(ctx context.Context, userID int64, provider, providerID string) error {
			linked = true
			assert.Equal(t, existing.ID, userID)
			return nil
		},
	}
	profile := &oauth.Profile{ProviderID: "gh-123", Email: "alice@example.com", EmailVerified: true}
	svc := newOAuthService(githubStub(profile), userRepo, &MockRefreshTokenRepository{})

	_, user, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "", SessionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
	assert.True(t, linked)
}

func TestOAuthService_CompleteRejectsMissingEmail(t *testing.T) {
	profile := &oauth.Profile{ProviderID: "gh-123"}
	svc := newOAuthService(githubStub(profile), &MockUserRepository{}, &MockRefreshTokenRepository{})

	_, _, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "", SessionMetadata{})
	assert.ErrorIs(t, err, models.ErrInvalidEmail)
}

func TestOAuthService_CompleteToleratesRecordPersistenceFailure(t *testing.T) {
	existing := testUser()
	existing.GitHubID = "gh-123"

	userRepo := &MockUserRepository{
		GetByGitHubIDFunc: func(ctx context.Context, githubID string) (*models.User, error) {
			return existing, nil
		},
	}
	refreshRepo := &MockRefreshTokenRepository{
		CreateFunc: func(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
			return nil, models.ErrInternalServer
		},
	}
	profile := &oauth.Profile{ProviderID: "gh-123", Email: "alice@example.com"}
	svc := newOAuthService(githubStub(profile), userRepo, refreshRepo)

	pair, _, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "", SessionMetadata{})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshToken)
}

func TestOAuthService_CompleteBadCode(t *testing.T) {
	svc := newOAuthService(githubStub(nil), &MockUserRepository{}, &MockRefreshTokenRepository{})

	_, _, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "bad-code", "", SessionMetadata{})
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestOAuthService_CompleteMalformedState(t *testing.T) {
	svc := newOAuthService(githubStub(nil), &MockUserRepository{}, &MockRefreshTokenRepository{})

	_, _, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "%%%not-base64%%%", SessionMetadata{})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestOAuthService_UniqueUsernameSuffixes(t *testing.T) {
	taken := map[string]bool{"alice": true, "alice1": true}
	userRepo := &MockUserRepository{
		GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
			if taken[username] {
				return testUser(), nil
			}
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = 8
			return user, nil
		},
	}
	profile := &oauth.Profile{ProviderID: "gh-999", Username: "Alice", Email: "other@example.com", EmailVerified: true}
	svc := newOAuthService(githubStub(profile), userRepo, &MockRefreshTokenRepository{})

	_, user, err := svc.Complete(context.Background(), models.AuthMethodGitHub, "good-code", "", SessionMetadata{})
	require.NoError(t, err)
	assert.Equal(t, "alice2", user.Username)
}
