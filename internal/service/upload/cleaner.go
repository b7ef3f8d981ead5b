package upload

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultCleanupInterval = time.Hour

// RunCleaner removes expired uploads every interval until ctx is done.
func (s *Service) RunCleaner(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.CleanupExpired(ctx); err != nil {
				log.Error().Err(err).Msg("cleanup expired uploads")
			}
		}
	}
}

// CleanupExpired deletes files whose expiry has passed and returns how many went.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	files, err := s.registry.Expired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if err := os.Remove(f.StoredPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", f.StoredPath).Msg("remove expired upload")
			continue
		}
		if err := s.registry.Delete(ctx, f.ID); err != nil {
			log.Warn().Err(err).Str("file_id", f.ID).Msg("delete upload record")
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Msg("expired uploads cleaned")
	}
	return removed, nil
}
