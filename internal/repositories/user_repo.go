package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/database"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

const userColumns = `id, username, email, name, password_hash, github_id, google_id,
	email_verified, auth_method, avatar_url, bio, location, company,
	last_login, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var passwordHash, githubID, googleID *string
	var lastLogin *time.Time

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.Name,
		&passwordHash, &githubID, &googleID,
		&user.EmailVerified, &user.AuthMethod,
		&user.AvatarURL, &user.Bio, &user.Location, &user.Company,
		&lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	if githubID != nil {
		user.GitHubID = *githubID
	}
	if googleID != nil {
		user.GoogleID = *googleID
	}
	user.LastLogin = lastLogin

	return &user, nil
}

// nullable maps empty strings to SQL NULL so unique indexes on provider
// columns ignore unlinked users.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, name, password_hash, github_id, google_id, email_verified, auth_method, avatar_url, bio, location, company)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.Username, user.Email, user.Name,
		nullable(user.PasswordHash), nullable(user.GitHubID), nullable(user.GoogleID),
		user.EmailVerified, user.AuthMethod,
		user.AvatarURL, user.Bio, user.Location, user.Company,
	))
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, username))
}

// GetByEmail matches case-insensitively so a mixed-case login still finds
// the account registered in lowercase.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByGitHubID(ctx context.Context, githubID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE github_id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, githubID))
}

func (r *UserRepository) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, googleID))
}

func (r *UserRepository) SetEmailVerified(ctx context.Context, userID int64, verified bool) error {
	query := `UPDATE users SET email_verified = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, verified, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored hash and tags the account as
// password-authenticated.
func (r *UserRepository) SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, auth_method = $2, updated_at = NOW() WHERE id = $3`

	result, err := r.pool.Exec(ctx, query, passwordHash, models.AuthMethodEmail, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetLastLogin(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE users SET last_login = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, at, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// LinkProvider attaches a provider identity to an existing account and
// records the provider as the latest auth method.
func (r *UserRepository) LinkProvider(ctx context.Context, userID int64, provider, providerID string) error {
	var column string
	switch provider {
	case models.AuthMethodGitHub:
		column = "github_id"
	case models.AuthMethodGoogle:
		column = "google_id"
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}

	query := fmt.Sprintf(`UPDATE users SET %s = $1, auth_method = $2, updated_at = NOW() WHERE id = $3`, column)

	result, err := r.pool.Exec(ctx, query, providerID, provider, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// UpdateProfile overwrites the provider-sourced profile fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, name, avatarURL, bio, location, company string) error {
	query := `
		UPDATE users SET name = $1, avatar_url = $2, bio = $3, location = $4, company = $5, updated_at = NOW()
		WHERE id = $6
	`

	result, err := r.pool.Exec(ctx, query, name, avatarURL, bio, location, company, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
