package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

// Profile is the provider-neutral view of an external identity after the
// code exchange and profile fetch.
type Profile struct {
	ProviderID    string
	Username      string
	Email         string
	EmailVerified bool
	Name          string
	AvatarURL     string
	Bio           string
	Location      string
	Company       string
}

// Provider is the uniform authorization-code contract both providers
// implement.
type Provider interface {
	Name() string
	Enabled() bool
	// ValidateConfig rejects incomplete or mismatched credentials. Run at
	// startup so a misconfigured provider fails the boot, not a user.
	ValidateConfig() error
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// doJSON performs the request and decodes a JSON body, mapping transport
// failures and non-2xx statuses to ErrProviderUnavailable.
func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", models.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", models.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", models.ErrProviderUnavailable, err)
	}

	return nil
}
