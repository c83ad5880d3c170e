package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/service"
)

const indexPendingBatch = 20

// IndexPendingJob sweeps materials whose indexing failed or was skipped at
// upload time and retries them.
type IndexPendingJob struct {
	materials *service.MaterialService
}

func NewIndexPendingJob(materials *service.MaterialService) *IndexPendingJob {
	return &IndexPendingJob{materials: materials}
}

func (j *IndexPendingJob) Name() string {
	return "index_pending"
}

// Timeout bounds a sweep; each material may need extraction plus embedding
// calls, so the window is generous.
func (j *IndexPendingJob) Timeout() time.Duration {
	return 10 * time.Minute
}

func (j *IndexPendingJob) Run(ctx context.Context) error {
	reports, err := j.materials.IngestAll(ctx, indexPendingBatch)
	if err != nil {
		return err
	}
	succeeded, failed := 0, 0
	for _, report := range reports {
		if report.Result != nil && report.Result.Success {
			succeeded++
			continue
		}
		failed++
		errMsg := ""
		if report.Result != nil {
			errMsg = report.Result.Error
		}
		logutil.GetLogger(ctx).Warn("pending material index failed",
			zap.String("material_id", report.MaterialID),
			zap.String("file_name", report.FileName),
			zap.String("error", errMsg),
		)
	}
	if len(reports) > 0 {
		logutil.GetLogger(ctx).Info("pending index sweep done",
			zap.Int("succeeded", succeeded), zap.Int("failed", failed))
	}
	return nil
}
