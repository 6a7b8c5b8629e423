// Package retention sweeps idle chat sessions out of the store.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/fitfusion/internal/shared"
)

// DefaultInterval is how often the sweeper runs.
const DefaultInterval = 5 * time.Minute

// Store deletes chat sessions idle for longer than ttl.
type Store interface {
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)
}

// Sweep removes expired chat sessions once, retrying on SQLite lock
// contention.
func Sweep(ctx context.Context, repo Store, ttl time.Duration) (int64, error) {
	var deleted int64
	err := shared.RetryOnConflict(ctx, "cleanup expired sessions", 3, 100*time.Millisecond, func() error {
		n, err := repo.CleanupExpiredSessions(ctx, ttl)
		if err != nil {
			return err
		}
		deleted = n
		return nil
	})
	return deleted, err
}

// StartWorker runs a background goroutine that sweeps every interval until
// ctx is cancelled. The returned channel is closed once the goroutine exits.
func StartWorker(ctx context.Context, repo Store, ttl, interval time.Duration) <-chan struct{} {
	if interval <= 0 {
		interval = DefaultInterval
	}
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		slog.Info("Session retention worker started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				deleted, err := Sweep(ctx, repo, ttl)
				switch {
				case err != nil:
					slog.Error("Session retention sweep failed", "error", err)
				case deleted > 0:
					slog.Info("Session retention removed idle chat sessions", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("Session retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}
