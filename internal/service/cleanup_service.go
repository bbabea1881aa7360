package service

import (
	"context"
	"log/slog"
	"time"

	"finflow-identity/internal/repository"
)

// CleanupService sweeps expired blacklist rows on a schedule. Expired
// tokens are rejected on expiry regardless of row presence, so the sweep
// only reclaims space and is safe to interleave with verification.
type CleanupService struct {
	blacklist repository.InvalidatedTokenRepository
}

func NewCleanupService(blacklist repository.InvalidatedTokenRepository) *CleanupService {
	return &CleanupService{blacklist: blacklist}
}

// StartSweepTicker runs the sweep on the given interval until the context
// is cancelled.
func (s *CleanupService) StartSweepTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *CleanupService) Sweep(ctx context.Context) {
	removed, err := s.blacklist.DeleteExpired(ctx)
	if err != nil {
		slog.Error("expired token sweep failed", "error", err)
		return
	}

	slog.Info("expired token sweep completed", "removed", removed)
}
