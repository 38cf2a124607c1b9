package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "tidepool/contexts/treasury-core/vesting-engine/application"
	"tidepool/contexts/treasury-core/vesting-engine/application/commands"
	domainerrors "tidepool/contexts/treasury-core/vesting-engine/domain/errors"
)

// VestingJob runs one release cycle per calendar interval. The run lock
// inside the use case covers concurrent triggers; this job only tracks
// the local cadence.
type VestingJob struct {
	UseCase  commands.UseCase
	Interval time.Duration
	Logger   *slog.Logger

	nextRunAt time.Time
}

func (j *VestingJob) Name() string { return "vesting-job" }

func (j *VestingJob) Tick(ctx context.Context) error {
	now := time.Now().UTC()
	if j.nextRunAt.IsZero() {
		j.nextRunAt = now
	}
	if now.Before(j.nextRunAt) {
		return nil
	}

	logger := application.ResolveLogger(j.Logger)
	result, err := j.UseCase.RunVesting(ctx, commands.RunVestingCommand{TriggeredBy: "scheduler"})
	if err != nil {
		if errors.Is(err, domainerrors.ErrRunInProgress) {
			logger.Info("vesting already running elsewhere",
				"event", "vesting_job_skipped",
				"module", "treasury-core/vesting-engine",
				"layer", "worker",
			)
			return nil
		}
		logger.Error("vesting job failed",
			"event", "vesting_job_failed",
			"module", "treasury-core/vesting-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	j.nextRunAt = now.Add(j.interval())
	logger.Info("vesting job finished",
		"event", "vesting_job_finished",
		"module", "treasury-core/vesting-engine",
		"layer", "worker",
		"run_id", result.RunID,
		"total_released", result.TotalReleased,
		"released", result.Released,
		"failed", result.Failed,
	)
	return nil
}

func (j *VestingJob) interval() time.Duration {
	if j.Interval <= 0 {
		return 30 * 24 * time.Hour
	}
	return j.Interval
}
