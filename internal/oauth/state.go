package oauth

import (
	"encoding/base64"
	"encoding/json"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

// State is the payload round-tripped through the provider's state
// parameter: where to send the user afterwards and, when an authenticated
// user is linking an external identity, who they are.
type State struct {
	ReturnTo string `json:"return_to,omitempty"`
	UserID   int64  `json:"user_id,omitempty"`
}

// EncodeState serializes the state as base64url JSON.
func EncodeState(s State) string {
	b, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState parses a state parameter. Anything unparseable maps to
// ErrBadRequest.
func DecodeState(raw string) (State, error) {
	var s State
	if raw == "" {
		return s, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return s, models.ErrBadRequest
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, models.ErrBadRequest
	}

	return s, nil
}
