package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/darzi-doorstep/darzi-backend/pkg/logger"
)

const (
	defaultOTPRetention    = 24 * time.Hour
	defaultOutboxRetention = 30
)

type OTPPurgeJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
	}
	Retention time.Duration
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	Repository interface {
		DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}
	// Retention is expressed in days.
	Retention int
}

// NewOTPPurgeJob drops verification codes that expired more than Retention ago.
func NewOTPPurgeJob(params OTPPurgeJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("otp repository required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultOTPRetention
	}
	return newPruneJob("otp-purge", params.Logger, retention, params.Repository.DeleteStale)
}

// NewOutboxRetentionJob drops delivered outbox rows older than Retention days.
// Undelivered and terminal rows are kept for inspection.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Repository == nil {
		return nil, errors.New("outbox repository required")
	}
	days := params.Retention
	if days <= 0 {
		days = defaultOutboxRetention
	}
	return newPruneJob("outbox-retention", params.Logger, time.Duration(days)*24*time.Hour, params.Repository.DeletePublishedBefore)
}

type pruneFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// pruneJob deletes rows older than now minus retention.
type pruneJob struct {
	name      string
	logg      *logger.Logger
	retention time.Duration
	prune     pruneFunc
	now       func() time.Time
}

func newPruneJob(name string, logg *logger.Logger, retention time.Duration, prune pruneFunc) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("%s: logger required", name)
	}
	return &pruneJob{
		name:      name,
		logg:      logg,
		retention: retention,
		prune:     prune,
		now:       time.Now,
	}, nil
}

func (j *pruneJob) Name() string { return j.name }

func (j *pruneJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.prune(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"job":          j.name,
		"cutoff":       cutoff,
		"retention":    j.retention.String(),
		"rows_deleted": deleted,
	}), "retention sweep complete")
	return nil
}
