package service

import (
	"context"
	"time"
)

// PruneExpired deletes uploads whose TTL has passed.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.UploadsPrunedTotal.Add(float64(n))
		s.logger.InfoContext(ctx, "expired uploads pruned", "count", n)
	}
	return n, nil
}

// RunJanitor prunes expired uploads every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Debug("upload janitor started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("upload janitor stopped")
			return
		case <-ticker.C:
			if _, err := s.PruneExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("prune expired uploads", "error", err)
			}
		}
	}
}
