package authflowrepo

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunJanitor purges expired attempts from repo every interval until ctx is done.
func RunJanitor(ctx context.Context, repo Repo, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to purge expired auth attempts")
				continue
			}
			if n > 0 {
				log.Debug().Int("purged", n).Msg("Purged expired auth attempts")
			}
		}
	}
}
