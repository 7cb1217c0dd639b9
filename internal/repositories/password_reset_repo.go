package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/database"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

type PasswordResetRepository struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepository(db *database.DB) *PasswordResetRepository {
	return &PasswordResetRepository{pool: db.Pool}
}

func (r *PasswordResetRepository) Create(ctx context.Context, token *models.PasswordResetToken) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, token, expires_at, used, created_at
	`

	var created models.PasswordResetToken
	err := r.pool.QueryRow(ctx, query, token.UserID, token.Token, token.ExpiresAt).Scan(
		&created.ID, &created.UserID, &created.Token,
		&created.ExpiresAt, &created.Used, &created.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &created, nil
}

func (r *PasswordResetRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens WHERE token = $1
	`

	var found models.PasswordResetToken
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&found.ID, &found.UserID, &found.Token,
		&found.ExpiresAt, &found.Used, &found.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &found, nil
}

func (r *PasswordResetRepository) MarkUsed(ctx context.Context, id int64) error {
	query := `UPDATE password_reset_tokens SET used = TRUE WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < $1`, now)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
