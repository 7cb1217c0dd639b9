package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/config"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

const (
	githubAuthorizeURL = "https://github.com/login/oauth/authorize"
	githubTokenURL     = "https://github.com/login/oauth/access_token"
	githubUserURL      = "https://api.github.com/user"
	githubEmailsURL    = "https://api.github.com/user/emails"
)

// GitHubProvider implements the authorization-code flow against GitHub.
type GitHubProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
	logger *slog.Logger

	// endpoint overrides for tests
	authorizeURL string
	tokenURL     string
	userURL      string
	emailsURL    string
}

func NewGitHubProvider(cfg config.ProviderConfig, logger *slog.Logger) *GitHubProvider {
	return &GitHubProvider{
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
		authorizeURL: githubAuthorizeURL,
		tokenURL:     githubTokenURL,
		userURL:      githubUserURL,
		emailsURL:    githubEmailsURL,
	}
}

func (p *GitHubProvider) Name() string { return models.AuthMethodGitHub }

func (p *GitHubProvider) Enabled() bool { return p.cfg.Enabled() }

func (p *GitHubProvider) ValidateConfig() error {
	if !p.cfg.Enabled() {
		return nil
	}
	// A Google-issued client id pasted into the GitHub slot is a common
	// deployment mistake; catch it before a user hits the consent screen.
	if strings.Contains(p.cfg.ClientID, "apps.googleusercontent.com") {
		return fmt.Errorf("%w: GITHUB_CLIENT_ID looks like a Google client id", models.ErrProviderConfig)
	}
	if p.cfg.ClientSecret == "" || p.cfg.CallbackURL == "" {
		return fmt.Errorf("%w: github client secret and callback URL are required", models.ErrProviderConfig)
	}
	return nil
}

func (p *GitHubProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.CallbackURL)
	q.Set("scope", "read:user user:email")
	if state != "" {
		q.Set("state", state)
	}
	return p.authorizeURL + "?" + q.Encode()
}

func (p *GitHubProvider) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.CallbackURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var result struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := doJSON(p.client, req, &result); err != nil {
		return "", err
	}

	if result.AccessToken == "" {
		p.logger.Warn("github token exchange rejected",
			slog.String("error", result.Error),
			slog.String("description", result.ErrorDescription))
		return "", fmt.Errorf("%w: token exchange rejected", models.ErrProviderUnavailable)
	}

	return result.AccessToken, nil
}

func (p *GitHubProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
		Bio       string `json:"bio"`
		Location  string `json:"location"`
		Company   string `json:"company"`
	}
	if err := p.getJSON(ctx, p.userURL, accessToken, &user); err != nil {
		return nil, err
	}

	email := user.Email
	if email == "" {
		// Users with a private email hide it on the profile; the emails
		// endpoint still lists the primary verified address.
		primary, err := p.fetchPrimaryEmail(ctx, accessToken)
		if err != nil {
			return nil, err
		}
		email = primary
	}

	return &Profile{
		ProviderID:    strconv.FormatInt(user.ID, 10),
		Username:      user.Login,
		Email:         email,
		EmailVerified: email != "",
		Name:          user.Name,
		AvatarURL:     user.AvatarURL,
		Bio:           user.Bio,
		Location:      user.Location,
		Company:       user.Company,
	}, nil
}

func (p *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, error) {
	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, p.emailsURL, accessToken, &emails); err != nil {
		return "", err
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}
	return "", nil
}

func (p *GitHubProvider) getJSON(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

	return doJSON(p.client, req, out)
}
