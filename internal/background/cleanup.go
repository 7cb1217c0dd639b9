package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/repositories"
)

// CleanupManager periodically purges expired refresh token records and
// stale verification and reset tokens from the database
type CleanupManager struct {
	refreshRepo      *repositories.RefreshTokenRepository
	verificationRepo *repositories.EmailVerificationRepository
	resetRepo        *repositories.PasswordResetRepository
	clock            clockwork.Clock
	logger           *slog.Logger
	interval         time.Duration
	stopCh           chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	refreshRepo *repositories.RefreshTokenRepository,
	verificationRepo *repositories.EmailVerificationRepository,
	resetRepo *repositories.PasswordResetRepository,
	clock clockwork.Clock,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		refreshRepo:      refreshRepo,
		verificationRepo: verificationRepo,
		resetRepo:        resetRepo,
		clock:            clock,
		logger:           logger,
		interval:         interval,
		stopCh:           make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.clock.Now()
	var total int64

	if n, err := cm.refreshRepo.DeleteExpired(cleanupCtx, now); err != nil {
		cm.logger.Error("failed to purge expired refresh tokens", slog.Any("error", err))
	} else {
		total += n
	}

	if n, err := cm.verificationRepo.DeleteExpired(cleanupCtx, now); err != nil {
		cm.logger.Error("failed to purge expired verification tokens", slog.Any("error", err))
	} else {
		total += n
	}

	if n, err := cm.resetRepo.DeleteExpired(cleanupCtx, now); err != nil {
		cm.logger.Error("failed to purge expired reset tokens", slog.Any("error", err))
	} else {
		total += n
	}

	if total > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", total))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
