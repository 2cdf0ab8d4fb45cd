package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sonaskin/storefront-backend/pkg/logger"
)

const (
	defaultOutboxRetention   = 30 * 24 * time.Hour
	defaultOutboxMinAttempts = 10
	outboxRetentionEvery     = 24 * time.Hour
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type dlqPruner interface {
	DeleteFailedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// OutboxRetentionJobParams configure the outbox cleanup job. RetentionDays
// keeps relayed events around for audit; an unpublished row is treated as
// dead once it reaches MinAttempts.
type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	// DLQ is optional; parked events follow the same window.
	DLQ           dlqPruner
	RetentionDays int
	MinAttempts   int
	Now           func() time.Time
}

// OutboxRetentionJob prunes relayed and dead order events.
type OutboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPruner
	dlq         dlqPruner
	retention   time.Duration
	minAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (*OutboxRetentionJob, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &OutboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		dlq:         params.DLQ,
		retention:   defaultOutboxRetention,
		minAttempts: defaultOutboxMinAttempts,
		now:         params.Now,
	}
	if params.RetentionDays > 0 {
		job.retention = time.Duration(params.RetentionDays) * 24 * time.Hour
	}
	if params.MinAttempts > 0 {
		job.minAttempts = params.MinAttempts
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

func (j *OutboxRetentionJob) Name() string         { return "outbox-retention" }
func (j *OutboxRetentionJob) Every() time.Duration { return outboxRetentionEvery }

// Cutoff is the creation time before which rows are eligible for removal.
func (j *OutboxRetentionJob) Cutoff() time.Time {
	return j.now().UTC().Add(-j.retention)
}

func (j *OutboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff()
	var deleted, parked int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts)
		if err != nil {
			return err
		}
		deleted = n
		if j.dlq == nil {
			return nil
		}
		parked, err = j.dlq.DeleteFailedBefore(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return fmt.Errorf("prune outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"min_attempts": j.minAttempts,
		"rows_deleted": deleted,
		"dlq_deleted":  parked,
	}), "outbox pruned")
	return nil
}
