package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/clock"
)

// Purger permanently removes entries that were soft-deleted before a cutoff.
type Purger interface {
	PurgeDeleted(ctx context.Context, before time.Time) (int64, error)
}

// StartSoftDeleteCleaner purges soft-deleted entries older than retention
// every interval until ctx is done. The cutoff is taken from clk, which must
// be the clock the store stamps entries with. A nil clk is the system clock.
func StartSoftDeleteCleaner(
	ctx context.Context,
	purger Purger,
	clk clock.Clock,
	interval time.Duration,
	retention time.Duration,
	log *zap.Logger,
) {
	if clk == nil {
		clk = clock.System{}
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := clk.Now().Add(-retention)
				removed, err := purger.PurgeDeleted(ctx, cutoff)
				if err != nil {
					log.Error("failed to purge soft-deleted entries", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("purged soft-deleted entries", zap.Int64("removed", removed))
				}
			}
		}
	}()
}
