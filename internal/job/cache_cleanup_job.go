package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/repo"
)

// CacheCleanupJob expires old rows from the persistent embedding cache so a
// model or chunking change does not leave stale vectors around forever.
type CacheCleanupJob struct {
	cache  *repo.EmbeddingCacheRepo
	maxAge time.Duration
}

func NewCacheCleanupJob(cache *repo.EmbeddingCacheRepo, maxAgeDays int) *CacheCleanupJob {
	return &CacheCleanupJob{cache: cache, maxAge: time.Duration(maxAgeDays) * 24 * time.Hour}
}

func (j *CacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *CacheCleanupJob) Timeout() time.Duration {
	return time.Minute
}

func (j *CacheCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-j.maxAge).Unix()
	deleted, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("embedding cache cleaned", zap.Int64("deleted", deleted))
	}
	return nil
}
