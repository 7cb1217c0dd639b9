package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/auth"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/oauth"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/services"
	pkghttp "github.com/oklabflensburg/hackathonhub-sub000/pkg/http"
)

// OAuthServiceInterface defines the interface for provider enrollment
type OAuthServiceInterface interface {
	AuthorizeURL(providerName, returnTo string, linkingUserID int64) (string, error)
	Complete(ctx context.Context, providerName, code, rawState string, meta services.SessionMetadata) (*services.TokenPair, *models.User, error)
}

// OAuthHandler handles the provider authorization-code endpoints
type OAuthHandler struct {
	service     OAuthServiceInterface
	frontendURL string
	ipConfig    *pkghttp.IPConfig
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(service OAuthServiceInterface, frontendURL string, ipConfig *pkghttp.IPConfig) *OAuthHandler {
	return &OAuthHandler{
		service:     service,
		frontendURL: frontendURL,
		ipConfig:    ipConfig,
	}
}

// Authorize redirects the browser to the provider's consent screen
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	returnTo := r.URL.Query().Get("return_to")

	authorizeURL, err := h.service.AuthorizeURL(provider, returnTo, 0)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Unknown or disabled provider")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Link starts the consent flow for attaching a provider identity to the
// authenticated user's account
func (h *OAuthHandler) Link(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	provider := chi.URLParam(r, "provider")
	returnTo := r.URL.Query().Get("return_to")

	authorizeURL, err := h.service.AuthorizeURL(provider, returnTo, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Unknown or disabled provider")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

// Callback redeems the provider's authorization code. When the state carries
// a return_to path the browser is redirected to the frontend with the token
// pair in the query; API clients calling without return_to get JSON.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	code := r.URL.Query().Get("code")
	rawState := r.URL.Query().Get("state")

	if code == "" {
		pkghttp.WriteBadRequest(w, "Missing authorization code")
		return
	}

	meta := services.SessionMetadata{
		DeviceFingerprint: r.Header.Get("X-Device-Fingerprint"),
		IPAddress:         pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:         r.Header.Get("User-Agent"),
	}

	pair, user, err := h.service.Complete(r.Context(), provider, code, rawState, meta)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "Unknown or disabled provider")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Malformed state parameter")
		case errors.Is(err, models.ErrInvalidEmail):
			pkghttp.WriteBadRequest(w, "Provider did not supply a usable email address")
		case errors.Is(err, models.ErrProviderIdentityTaken),
			errors.Is(err, models.ErrEmailTaken),
			errors.Is(err, models.ErrUsernameTaken):
			pkghttp.WriteConflict(w, "Account already linked elsewhere")
		case errors.Is(err, models.ErrUserNotFound):
			pkghttp.WriteUnauthorized(w, "User no longer exists")
		case errors.Is(err, models.ErrProviderUnavailable):
			pkghttp.WriteBadGateway(w, "Provider request failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if state, stateErr := oauth.DecodeState(rawState); stateErr == nil && state.ReturnTo != "" {
		http.Redirect(w, r, h.frontendRedirect(state.ReturnTo, pair), http.StatusFound)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResponse(pair, user))
}

func (h *OAuthHandler) frontendRedirect(returnTo string, pair *services.TokenPair) string {
	// return_to is a frontend-relative path; anything absolute is ignored
	// so the callback cannot be used as an open redirect.
	if !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = "/"
	}

	q := url.Values{}
	q.Set("access_token", pair.AccessToken)
	q.Set("refresh_token", pair.RefreshToken)

	return h.frontendURL + returnTo + "?" + q.Encode()
}
