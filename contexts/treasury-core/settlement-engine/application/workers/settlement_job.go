package workers

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "tidepool/contexts/treasury-core/settlement-engine/application"
	"tidepool/contexts/treasury-core/settlement-engine/application/commands"
	domainerrors "tidepool/contexts/treasury-core/settlement-engine/domain/errors"
)

// SettlementJob fires the trim-back exactly once after the sale closes.
// It is idempotent across worker restarts because the run lock and the
// per-account trim-back both tolerate repeats: a second run finds no
// account above the threshold.
type SettlementJob struct {
	UseCase     commands.UseCase
	SaleCloseAt time.Time
	Logger      *slog.Logger

	ran bool
}

func (j *SettlementJob) Name() string { return "settlement-job" }

func (j *SettlementJob) Tick(ctx context.Context) error {
	if j.ran {
		return nil
	}
	now := time.Now().UTC()
	if j.SaleCloseAt.IsZero() || now.Before(j.SaleCloseAt) {
		return nil
	}

	logger := application.ResolveLogger(j.Logger)
	result, err := j.UseCase.RunSettlement(ctx, commands.RunSettlementCommand{TriggeredBy: "scheduler"})
	if err != nil {
		if errors.Is(err, domainerrors.ErrRunInProgress) {
			logger.Info("settlement already running elsewhere",
				"event", "settlement_job_skipped",
				"module", "treasury-core/settlement-engine",
				"layer", "worker",
			)
			return nil
		}
		logger.Error("settlement job failed",
			"event", "settlement_job_failed",
			"module", "treasury-core/settlement-engine",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	j.ran = true
	logger.Info("settlement job finished",
		"event", "settlement_job_finished",
		"module", "treasury-core/settlement-engine",
		"layer", "worker",
		"run_id", result.RunID,
		"total_refunded", result.TotalRefunded,
		"whales_impacted", result.WhalesImpacted,
		"failed", result.Failed,
	)
	return nil
}
