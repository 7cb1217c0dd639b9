package oauth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/config"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func githubTestConfig() config.ProviderConfig {
	return config.ProviderConfig{
		ClientID:     "gh-client-id",
		ClientSecret: "gh-client-secret",
		CallbackURL:  "http://localhost:8080/auth/github/callback",
		Timeout:      5 * time.Second,
	}
}

func TestGitHubProvider_ValidateConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p := NewGitHubProvider(githubTestConfig(), slog.Default())
		assert.NoError(t, p.ValidateConfig())
	})

	t.Run("disabled provider passes", func(t *testing.T) {
		p := NewGitHubProvider(config.ProviderConfig{}, slog.Default())
		assert.NoError(t, p.ValidateConfig())
	})

	t.Run("google client id in github slot", func(t *testing.T) {
		cfg := githubTestConfig()
		cfg.ClientID = "12345.apps.googleusercontent.com"
		p := NewGitHubProvider(cfg, slog.Default())
		assert.ErrorIs(t, p.ValidateConfig(), models.ErrProviderConfig)
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := githubTestConfig()
		cfg.ClientSecret = ""
		p := NewGitHubProvider(cfg, slog.Default())
		assert.ErrorIs(t, p.ValidateConfig(), models.ErrProviderConfig)
	})
}

func TestGitHubProvider_AuthorizeURL(t *testing.T) {
	p := NewGitHubProvider(githubTestConfig(), slog.Default())

	url := p.AuthorizeURL("abc123")
	assert.True(t, strings.HasPrefix(url, githubAuthorizeURL+"?"))
	assert.Contains(t, url, "client_id=gh-client-id")
	assert.Contains(t, url, "state=abc123")
	assert.Contains(t, url, "scope=read%3Auser+user%3Aemail")
}

func TestGitHubProvider_Exchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "gh-client-id", r.Form.Get("client_id"))
		assert.Equal(t, "the-code", r.Form.Get("code"))
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_token"})
	}))
	defer srv.Close()

	p := NewGitHubProvider(githubTestConfig(), slog.Default())
	p.tokenURL = srv.URL

	token, err := p.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_token", token)
}

func TestGitHubProvider_ExchangeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "bad_verification_code"})
	}))
	defer srv.Close()

	p := NewGitHubProvider(githubTestConfig(), slog.Default())
	p.tokenURL = srv.URL

	_, err := p.Exchange(context.Background(), "stale-code")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}

func TestGitHubProvider_FetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"id": 123, "login": "alice", "email": "alice@example.com",
			"name": "Alice A", "avatar_url": "https://a.test/alice",
			"bio": "builds things", "location": "Berlin", "company": "ACME",
		})
	}))
	defer srv.Close()

	p := NewGitHubProvider(githubTestConfig(), slog.Default())
	p.userURL = srv.URL

	profile, err := p.FetchProfile(context.Background(), "gho_token")
	require.NoError(t, err)

	assert.Equal(t, "123", profile.ProviderID)
	assert.Equal(t, "alice", profile.Username)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "Berlin", profile.Location)
}

func TestGitHubProvider_FetchProfileFallsBackToEmailsEndpoint(t *testing.T) {
	userSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Profile hides the email.
		json.NewEncoder(w).Encode(map[string]any{"id": 123, "login": "alice"})
	}))
	defer userSrv.Close()

	emailsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "alice@example.com", "primary": true, "verified": true},
		})
	}))
	defer emailsSrv.Close()

	p := NewGitHubProvider(githubTestConfig(), slog.Default())
	p.userURL = userSrv.URL
	p.emailsURL = emailsSrv.URL

	profile, err := p.FetchProfile(context.Background(), "gho_token")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)
}

func TestGitHubProvider_FetchProfileServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewGitHubProvider(githubTestConfig(), slog.Default())
	p.userURL = srv.URL

	_, err := p.FetchProfile(context.Background(), "gho_token")
	assert.ErrorIs(t, err, models.ErrProviderUnavailable)
}
