package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/database"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

const refreshTokenColumns = `id, user_id, token_id, device_fingerprint, ip_address, user_agent,
	expires_at, revoked, revoked_at, replaced_by_token_id, created_at`

type RefreshTokenRepository struct {
	db *database.DB
}

func NewRefreshTokenRepository(db *database.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func scanRefreshTokenRow(scanner rowScanner) (*models.RefreshToken, error) {
	var token models.RefreshToken
	var replacedBy *string

	err := scanner.Scan(
		&token.ID, &token.UserID, &token.TokenID,
		&token.DeviceFingerprint, &token.IPAddress, &token.UserAgent,
		&token.ExpiresAt, &token.Revoked, &token.RevokedAt,
		&replacedBy, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	if replacedBy != nil {
		token.ReplacedByTokenID = *replacedBy
	}

	return &token, nil
}

func insertRefreshToken(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, token *models.RefreshToken) (*models.RefreshToken, error) {
	query := `
		INSERT INTO refresh_tokens (user_id, token_id, device_fingerprint, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + refreshTokenColumns

	return scanRefreshTokenRow(q.QueryRow(ctx, query,
		token.UserID, token.TokenID,
		token.DeviceFingerprint, token.IPAddress, token.UserAgent,
		token.ExpiresAt,
	))
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token *models.RefreshToken) (*models.RefreshToken, error) {
	return insertRefreshToken(ctx, r.db.Pool, token)
}

func (r *RefreshTokenRepository) GetByTokenID(ctx context.Context, tokenID string) (*models.RefreshToken, error) {
	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_id = $1`
	return scanRefreshTokenRow(r.db.Pool.QueryRow(ctx, query, tokenID))
}

// Rotate revokes the old record and inserts the replacement in one
// transaction. The UPDATE only matches an unrevoked row, so two concurrent
// redemptions of the same token race on it and exactly one wins; the loser
// gets ErrRefreshTokenInvalid.
func (r *RefreshTokenRepository) Rotate(ctx context.Context, oldTokenID string, next *models.RefreshToken, now time.Time) (*models.RefreshToken, error) {
	var created *models.RefreshToken

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE refresh_tokens
			SET revoked = TRUE, revoked_at = $1, replaced_by_token_id = $2
			WHERE token_id = $3 AND revoked = FALSE
		`, now, next.TokenID, oldTokenID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrRefreshTokenInvalid
		}

		created, err = insertRefreshToken(ctx, tx, next)
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Revoke marks a record revoked. Reports whether this call flipped the
// flag, so callers can treat a repeat logout as a no-op.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenID string, now time.Time) (bool, error) {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $1
		WHERE token_id = $2 AND revoked = FALSE
	`, now, tokenID)
	if err != nil {
		return false, database.MapPostgresError(err)
	}
	return result.RowsAffected() > 0, nil
}

// RevokeAllForUser revokes every live record belonging to the user and
// returns how many were revoked.
func (r *RefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked = TRUE, revoked_at = $1
		WHERE user_id = $2 AND revoked = FALSE
	`, now, userID)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired purges records past their expiry. Revocation never deletes,
// but expired rows carry no further meaning and can go.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
