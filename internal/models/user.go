package models

import (
	"time"
)

// Authentication mechanisms recorded in User.AuthMethod. The tag reflects
// the most recent mechanism used to set a credential.
const (
	AuthMethodEmail  = "email"
	AuthMethodGitHub = "github"
	AuthMethodGoogle = "google"
)

type User struct {
	ID            int64
	Username      string
	Email         string
	Name          string
	PasswordHash  string // empty for OAuth-only users
	GitHubID      string // provider id, empty when not linked
	GoogleID      string // provider id, empty when not linked
	EmailVerified bool
	AuthMethod    string
	AvatarURL     string
	Bio           string
	Location      string
	Company       string
	LastLogin     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasPassword reports whether the user can authenticate with a local password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}
