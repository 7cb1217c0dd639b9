package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/oklabflensburg/hackathonhub-sub000/internal/database"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/models"
)

// testDB holds the postgres testcontainer shared by the repository tests.
type testDB struct {
	container testcontainers.Container
	pool      *pgxpool.Pool
	db        *database.DB
}

var sharedDB *testDB

func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") == "true" {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	db, err := setupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration setup failed: %v\n", err)
		os.Exit(1)
	}
	sharedDB = db

	code := m.Run()

	db.teardown(ctx)
	os.Exit(code)
}

func setupTestDatabase(ctx context.Context) (*testDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("hackathonhub"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := runTestMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return &testDB{
		container: container,
		pool:      pool,
		db:        database.NewFromPool(pool, logger),
	}, nil
}

func runTestMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir, err := filepath.Abs("../../migrations")
	if err != nil {
		return err
	}

	goose.SetLogger(goose.NopLogger())

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	return goose.UpContext(ctx, sqlDB, migrationsDir)
}

func (db *testDB) teardown(ctx context.Context) {
	if db.pool != nil {
		db.pool.Close()
	}
	if db.container != nil {
		db.container.Terminate(ctx)
	}
}

func requireDB(t *testing.T) *testDB {
	t.Helper()
	if sharedDB == nil {
		t.Skip("integration tests disabled")
	}
	return sharedDB
}

func (db *testDB) truncate(t *testing.T) {
	t.Helper()
	for _, table := range []string{"password_reset_tokens", "email_verification_tokens", "refresh_tokens", "users"} {
		_, err := db.pool.Exec(context.Background(), fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err)
	}
}

func seedUser(t *testing.T, repo *UserRepository, username, email string) *models.User {
	t.Helper()
	user, err := repo.Create(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		AuthMethod:   models.AuthMethodEmail,
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository_CreateAndLookups(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	repo := NewUserRepository(db.db)

	created := seedUser(t, repo, "alice", "alice@example.com")
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.AuthMethodEmail, created.AuthMethod)
	assert.False(t, created.EmailVerified)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)

	byUsername, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byUsername.ID)

	// Email lookup is case-insensitive.
	byEmail, err := repo.GetByEmail(ctx, "ALICE@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_PerFieldConflicts(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	repo := NewUserRepository(db.db)

	seedUser(t, repo, "alice", "alice@example.com")

	_, err := repo.Create(ctx, &models.User{
		Username:   "bob",
		Email:      "alice@example.com",
		AuthMethod: models.AuthMethodEmail,
	})
	assert.ErrorIs(t, err, models.ErrEmailTaken)

	_, err = repo.Create(ctx, &models.User{
		Username:   "alice",
		Email:      "other@example.com",
		AuthMethod: models.AuthMethodEmail,
	})
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
}

func TestUserRepository_LinkProvider(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	repo := NewUserRepository(db.db)

	alice := seedUser(t, repo, "alice", "alice@example.com")
	bob := seedUser(t, repo, "bob", "bob@example.com")

	require.NoError(t, repo.LinkProvider(ctx, alice.ID, models.AuthMethodGitHub, "gh-123"))

	linked, err := repo.GetByGitHubID(ctx, "gh-123")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, linked.ID)
	assert.Equal(t, models.AuthMethodGitHub, linked.AuthMethod)

	// The same provider identity cannot be attached to a second account.
	err = repo.LinkProvider(ctx, bob.ID, models.AuthMethodGitHub, "gh-123")
	assert.ErrorIs(t, err, models.ErrProviderIdentityTaken)

	// Unlinked users store NULL, so several of them coexist.
	_, err = repo.GetByGoogleID(ctx, "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_Mutations(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	repo := NewUserRepository(db.db)

	alice := seedUser(t, repo, "alice", "alice@example.com")

	require.NoError(t, repo.SetEmailVerified(ctx, alice.ID, true))
	require.NoError(t, repo.SetPasswordHash(ctx, alice.ID, "$2a$10$replacementreplacement"))

	loginAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.SetLastLogin(ctx, alice.ID, loginAt))
	require.NoError(t, repo.UpdateProfile(ctx, alice.ID, "Alice A", "https://img.example/a.png", "builds things", "Flensburg", "OK Lab"))

	reloaded, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailVerified)
	assert.Equal(t, "$2a$10$replacementreplacement", reloaded.PasswordHash)
	assert.Equal(t, "Alice A", reloaded.Name)
	assert.Equal(t, "OK Lab", reloaded.Company)
	require.NotNil(t, reloaded.LastLogin)
	assert.WithinDuration(t, loginAt, *reloaded.LastLogin, time.Second)

	assert.ErrorIs(t, repo.SetEmailVerified(ctx, 999999, true), models.ErrNotFound)
}

func newRefreshRecord(userID int64, expiresAt time.Time) *models.RefreshToken {
	return &models.RefreshToken{
		UserID:            userID,
		TokenID:           uuid.New().String(),
		DeviceFingerprint: "fp-1",
		IPAddress:         "192.0.2.10",
		UserAgent:         "integration-test",
		ExpiresAt:         expiresAt,
	}
}

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	users := NewUserRepository(db.db)
	repo := NewRefreshTokenRepository(db.db)

	alice := seedUser(t, users, "alice", "alice@example.com")
	expiry := time.Now().Add(7 * 24 * time.Hour)

	record, err := repo.Create(ctx, newRefreshRecord(alice.ID, expiry))
	require.NoError(t, err)
	assert.NotZero(t, record.ID)

	fetched, err := repo.GetByTokenID(ctx, record.TokenID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, fetched.UserID)
	assert.True(t, fetched.Active(time.Now()))

	// Rotation revokes the old record and persists its successor atomically.
	next := newRefreshRecord(alice.ID, expiry)
	rotated, err := repo.Rotate(ctx, record.TokenID, next, time.Now())
	require.NoError(t, err)
	assert.Equal(t, next.TokenID, rotated.TokenID)

	old, err := repo.GetByTokenID(ctx, record.TokenID)
	require.NoError(t, err)
	assert.True(t, old.Revoked)
	assert.Equal(t, next.TokenID, old.ReplacedByTokenID)

	// The loser of a concurrent rotation gets an invalid-token error.
	_, err = repo.Rotate(ctx, record.TokenID, newRefreshRecord(alice.ID, expiry), time.Now())
	assert.ErrorIs(t, err, models.ErrRefreshTokenInvalid)
}

func TestRefreshTokenRepository_RevokeAndCleanup(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	users := NewUserRepository(db.db)
	repo := NewRefreshTokenRepository(db.db)

	alice := seedUser(t, users, "alice", "alice@example.com")
	now := time.Now()

	active, err := repo.Create(ctx, newRefreshRecord(alice.ID, now.Add(time.Hour)))
	require.NoError(t, err)

	revoked, err := repo.Revoke(ctx, active.TokenID, now)
	require.NoError(t, err)
	assert.True(t, revoked)

	// Revoking again is a no-op, not an error.
	revoked, err = repo.Revoke(ctx, active.TokenID, now)
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = repo.Create(ctx, newRefreshRecord(alice.ID, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRefreshRecord(alice.ID, now.Add(time.Hour)))
	require.NoError(t, err)

	count, err := repo.RevokeAllForUser(ctx, alice.ID, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	expired, err := repo.Create(ctx, newRefreshRecord(alice.ID, now.Add(-time.Hour)))
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	_, err = repo.GetByTokenID(ctx, expired.TokenID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEmailVerificationRepository_Lifecycle(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	users := NewUserRepository(db.db)
	repo := NewEmailVerificationRepository(db.db)

	alice := seedUser(t, users, "alice", "alice@example.com")
	now := time.Now()

	created, err := repo.Create(ctx, &models.EmailVerificationToken{
		UserID:    alice.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	fetched, err := repo.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.False(t, fetched.Used)
	assert.False(t, fetched.Expired(now))

	require.NoError(t, repo.MarkUsed(ctx, created.ID))

	fetched, err = repo.GetByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.True(t, fetched.Used)

	_, err = repo.GetByToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPasswordResetRepository_Lifecycle(t *testing.T) {
	db := requireDB(t)
	db.truncate(t)
	ctx := context.Background()
	users := NewUserRepository(db.db)
	repo := NewPasswordResetRepository(db.db)

	alice := seedUser(t, users, "alice", "alice@example.com")
	now := time.Now()

	created, err := repo.Create(ctx, &models.PasswordResetToken{
		UserID:    alice.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	require.NoError(t, repo.MarkUsed(ctx, created.ID))
	assert.ErrorIs(t, repo.MarkUsed(ctx, 999999), models.ErrNotFound)

	expired, err := repo.Create(ctx, &models.PasswordResetToken{
		UserID:    alice.ID,
		Token:     uuid.New().String(),
		ExpiresAt: now.Add(-time.Minute),
	})
	require.NoError(t, err)

	deleted, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	_, err = repo.GetByToken(ctx, expired.Token)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
