package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/logistics/settlement/internal/application/settlement"
	"github.com/logistics/settlement/internal/domain/shared/valueobject"
	"github.com/logistics/settlement/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// maxJobErrorLength caps the stored failure message
const maxJobErrorLength = 2000

// GormRateSyncJobRepository records synchronizer runs in rate_sync_jobs
type GormRateSyncJobRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormRateSyncJobRepository creates a new GormRateSyncJobRepository
func NewGormRateSyncJobRepository(db *gorm.DB) *GormRateSyncJobRepository {
	return &GormRateSyncJobRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// RecordStart inserts a RUNNING job for date
func (r *GormRateSyncJobRepository) RecordStart(ctx context.Context, date time.Time, provider string) (uuid.UUID, error) {
	job := &models.RateSyncJobModel{
		ID:        uuid.New(),
		SyncDate:  valueobject.BusinessDate(date),
		Status:    models.RateSyncJobRunning,
		Provider:  provider,
		StartedAt: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return uuid.Nil, err
	}
	return job.ID, nil
}

// RecordSuccess marks the job SUCCEEDED with the number of rows written
func (r *GormRateSyncJobRepository) RecordSuccess(ctx context.Context, id uuid.UUID, written int) error {
	return r.complete(ctx, id, map[string]any{
		"status":        models.RateSyncJobSucceeded,
		"rates_written": written,
	})
}

// RecordFailure marks the job FAILED with the cause
func (r *GormRateSyncJobRepository) RecordFailure(ctx context.Context, id uuid.UUID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxJobErrorLength {
		msg = msg[:maxJobErrorLength]
	}
	return r.complete(ctx, id, map[string]any{
		"status": models.RateSyncJobFailed,
		"error":  msg,
	})
}

func (r *GormRateSyncJobRepository) complete(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	updates["completed_at"] = r.now()
	return r.db.WithContext(ctx).
		Model(&models.RateSyncJobModel{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListRecent returns the latest runs, newest first
func (r *GormRateSyncJobRepository) ListRecent(ctx context.Context, limit int) ([]models.RateSyncJobModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []models.RateSyncJobModel
	if err := r.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

var _ appsettlement.SyncJobRecorder = (*GormRateSyncJobRepository)(nil)
