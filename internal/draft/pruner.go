package draft

import (
	"context"
	"time"
)

// RunPruner deletes abandoned drafts every interval until ctx is done.
func RunPruner(ctx context.Context, store Store, maxAge, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		PruneOnce(ctx, store, maxAge)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PruneOnce runs a single pruning pass and logs the outcome.
func PruneOnce(ctx context.Context, store Store, maxAge time.Duration) int64 {
	n, err := store.Prune(ctx, maxAge)
	if err != nil {
		draftLogger.Error().Err(err).Msg("Error pruning drafts")
		return 0
	}
	if n > 0 {
		draftLogger.Info().Int64("removed", n).Dur("max_age", maxAge).Msg("Pruned abandoned drafts")
	} else {
		draftLogger.Debug().Msg("No abandoned drafts to prune")
	}
	return n
}
