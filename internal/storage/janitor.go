package storage

import (
	"context"
	"log/slog"
	"time"
)

// RunJanitor purges expired sessions every interval until ctx is done.
// onPurge, if set, receives the number of sessions removed by each sweep.
func RunJanitor(ctx context.Context, store Store, interval time.Duration, onPurge func(n int64)) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpired(ctx)
			if err != nil {
				slog.Error("Session purge failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged expired sessions", "count", n)
			}
			if onPurge != nil {
				onPurge(n)
			}
		}
	}
}
