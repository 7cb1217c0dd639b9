package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/config"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

const (
	googleAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL     = "https://oauth2.googleapis.com/token"
	googleUserinfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleProvider implements the authorization-code flow against Google.
type GoogleProvider struct {
	cfg    config.ProviderConfig
	client *http.Client
	logger *slog.Logger

	// endpoint overrides for tests
	authorizeURL string
	tokenURL     string
	userinfoURL  string
}

func NewGoogleProvider(cfg config.ProviderConfig, logger *slog.Logger) *GoogleProvider {
	return &GoogleProvider{
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
		authorizeURL: googleAuthorizeURL,
		tokenURL:     googleTokenURL,
		userinfoURL:  googleUserinfoURL,
	}
}

func (p *GoogleProvider) Name() string { return models.AuthMethodGoogle }

func (p *GoogleProvider) Enabled() bool { return p.cfg.Enabled() }

func (p *GoogleProvider) ValidateConfig() error {
	if !p.cfg.Enabled() {
		return nil
	}
	if p.cfg.ClientSecret == "" || p.cfg.CallbackURL == "" {
		return fmt.Errorf("%w: google client secret and callback URL are required", models.ErrProviderConfig)
	}
	return nil
}

func (p *GoogleProvider) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", p.cfg.ClientID)
	q.Set("redirect_uri", p.cfg.CallbackURL)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	if state != "" {
		q.Set("state", state)
	}
	return p.authorizeURL + "?" + q.Encode()
}

func (p *GoogleProvider) Exchange(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", p.cfg.ClientID)
	form.Set("client_secret", p.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", p.cfg.CallbackURL)
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var result struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := doJSON(p.client, req, &result); err != nil {
		return "", err
	}

	if result.AccessToken == "" {
		p.logger.Warn("google token exchange rejected", slog.String("error", result.Error))
		return "", fmt.Errorf("%w: token exchange rejected", models.ErrProviderUnavailable)
	}

	return result.AccessToken, nil
}

func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := doJSON(p.client, req, &user); err != nil {
		return nil, err
	}

	return &Profile{
		ProviderID:    user.ID,
		Email:         user.Email,
		EmailVerified: user.VerifiedEmail,
		Name:          user.Name,
		AvatarURL:     user.Picture,
	}, nil
}
