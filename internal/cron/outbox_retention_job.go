package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/canteen-backend/pkg/logger"
)

const (
	defaultRetentionDays = 30
	retentionBatchSize   = 500
	// retentionMaxBatches bounds one run; the next cycle continues.
	retentionMaxBatches = 200
)

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	Repository    outboxPruner
	RetentionDays int
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	repo      outboxPruner
	retention int
	now       func() time.Time
}

// NewOutboxRetentionJob deletes published outbox rows older than the
// retention window, in batches.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = defaultRetentionDays
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		repo:      params.Repository,
		retention: retention,
		now:       time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	for batch := 0; batch < retentionMaxBatches; batch++ {
		rows, err := j.repo.DeletePublishedBefore(ctx, cutoff, retentionBatchSize)
		if err != nil {
			return fmt.Errorf("outbox retention: %w", err)
		}
		deleted += rows
		if rows < retentionBatchSize {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
