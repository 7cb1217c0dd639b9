package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Registration conflicts, distinguished per field
	ErrEmailTaken    = errors.New("email already registered")
	ErrUsernameTaken = errors.New("username already taken")
	ErrInvalidEmail  = errors.New("invalid email address")

	// Authentication errors
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailNotVerified    = errors.New("email address not verified")
	ErrRefreshTokenInvalid = errors.New("refresh token expired or revoked")
	ErrUserNotFound        = errors.New("user no longer exists")

	// Email verification token redemption
	ErrVerificationTokenInvalid = errors.New("verification token not found")
	ErrVerificationTokenExpired = errors.New("verification token expired")
	ErrVerificationTokenUsed    = errors.New("verification token already used")

	// Password reset token redemption
	ErrResetTokenInvalid = errors.New("password reset token not found or used")
	ErrResetTokenExpired = errors.New("password reset token expired")

	// OAuth enrollment
	ErrProviderIdentityTaken = errors.New("provider account already linked to another user")
	ErrProviderConfig        = errors.New("provider configuration invalid")
	ErrProviderUnavailable   = errors.New("provider request failed")
)
