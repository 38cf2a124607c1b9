package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "tidepool/contexts/treasury-core/vesting-engine/application"
	domainerrors "tidepool/contexts/treasury-core/vesting-engine/domain/errors"
	"tidepool/contexts/treasury-core/vesting-engine/ports"
	"tidepool/internal/shared/money"
)

const (
	runLockName     = "vesting"
	defaultRunLease = 15 * time.Minute
	vestingSource   = "vesting-engine"

	defaultTrancheRatio = 0.10
)

type RunVestingCommand struct {
	TriggeredBy string
}

type RunVestingResult struct {
	RunID         string
	TotalReleased float64
	Released      int
	Attempted     int
	Failed        int
}

type UseCase struct {
	Accounts     ports.AccountStore
	Payer        ports.ReleasePayer
	RunLock      ports.RunLockStore
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	TrancheRatio float64
	RunLease     time.Duration
	Logger       *slog.Logger
}

// RunVesting pays one tranche to every eligible account. An account only
// advances after its payout is confirmed, so a failed release leaves it
// fully eligible for the next cycle.
func (uc UseCase) RunVesting(ctx context.Context, cmd RunVestingCommand) (RunVestingResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	runID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return RunVestingResult{}, err
	}
	acquired, err := uc.RunLock.AcquireRunLock(ctx, runLockName, runID, uc.runLease())
	if err != nil {
		logger.Error("vesting run lock acquire failed",
			"event", "vesting_run_lock_acquire_failed",
			"module", "treasury-core/vesting-engine",
			"layer", "application",
			"run_id", runID,
			"error", err.Error(),
		)
		return RunVestingResult{}, err
	}
	if !acquired {
		logger.Warn("vesting run already in progress",
			"event", "vesting_run_in_progress",
			"module", "treasury-core/vesting-engine",
			"layer", "application",
			"run_id", runID,
			"triggered_by", strings.TrimSpace(cmd.TriggeredBy),
		)
		return RunVestingResult{}, domainerrors.ErrRunInProgress
	}
	defer func() {
		if err := uc.RunLock.ReleaseRunLock(ctx, runLockName, runID); err != nil {
			logger.Error("vesting run lock release failed",
				"event", "vesting_run_lock_release_failed",
				"module", "treasury-core/vesting-engine",
				"layer", "application",
				"run_id", runID,
				"error", err.Error(),
			)
		}
	}()

	eligible, err := uc.Accounts.ListVestable(ctx)
	if err != nil {
		logger.Error("vesting account enumeration failed",
			"event", "vesting_enumeration_failed",
			"module", "treasury-core/vesting-engine",
			"layer", "application",
			"run_id", runID,
			"error", err.Error(),
		)
		return RunVestingResult{}, domainerrors.ErrEnumerationFailed
	}

	result := RunVestingResult{RunID: runID}
	for _, account := range eligible {
		tranche := money.Normalize(account.Allocated * uc.trancheRatio())
		if remaining := money.Normalize(account.Allocated - account.Released); tranche > remaining {
			tranche = remaining
		}
		if tranche <= 0 {
			continue
		}
		result.Attempted++
		memo := fmt.Sprintf("vesting tranche %d of %.6f", account.TranchesCompleted+1, tranche)
		reference, err := uc.Payer.PayRelease(ctx, account.Address, tranche, memo)
		if err != nil {
			result.Failed++
			logger.Error("vesting release failed",
				"event", "vesting_release_failed",
				"module", "treasury-core/vesting-engine",
				"layer", "application",
				"run_id", runID,
				"address", account.Address,
				"tranche", tranche,
				"error", err.Error(),
			)
			continue
		}
		newReleased := money.Normalize(account.Released + tranche)
		if newReleased > account.Allocated {
			newReleased = account.Allocated
		}
		if err := uc.Accounts.ApplyRelease(ctx, account.Address, newReleased, account.TranchesCompleted+1, uc.now()); err != nil {
			result.Failed++
			logger.Error("vesting release persist failed",
				"event", "vesting_release_persist_failed",
				"module", "treasury-core/vesting-engine",
				"layer", "application",
				"run_id", runID,
				"address", account.Address,
				"external_reference", reference,
				"error", err.Error(),
			)
			continue
		}
		result.TotalReleased = money.Normalize(result.TotalReleased + tranche)
		result.Released++
		logger.Info("vesting tranche released",
			"event", "vesting_tranche_released",
			"module", "treasury-core/vesting-engine",
			"layer", "application",
			"run_id", runID,
			"address", account.Address,
			"tranche", tranche,
			"tranches_completed", account.TranchesCompleted+1,
			"external_reference", reference,
		)
	}

	uc.appendRunOutbox(ctx, logger, result, strings.TrimSpace(cmd.TriggeredBy))
	logger.Info("vesting run completed",
		"event", "vesting_run_completed",
		"module", "treasury-core/vesting-engine",
		"layer", "application",
		"run_id", runID,
		"total_released", result.TotalReleased,
		"released", result.Released,
		"failed", result.Failed,
	)
	return result, nil
}

func (uc UseCase) appendRunOutbox(
	ctx context.Context,
	logger *slog.Logger,
	result RunVestingResult,
	triggeredBy string,
) {
	if uc.Outbox == nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("vesting outbox id generation failed",
			"event", "vesting_outbox_id_generation_failed",
			"module", "treasury-core/vesting-engine",
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
		return
	}
	data, err := json.Marshal(map[string]any{
		"run_id":         result.RunID,
		"total_released": result.TotalReleased,
		"released":       result.Released,
		"failed":         result.Failed,
		"triggered_by":   triggeredBy,
	})
	if err != nil {
		return
	}
	if err := uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "vesting.cycle.completed",
		OccurredAt:       uc.now(),
		SourceService:    vestingSource,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "run_id",
		PartitionKey:     result.RunID,
		Data:             data,
	}); err != nil {
		logger.Error("vesting outbox append failed",
			"event", "vesting_outbox_append_failed",
			"module", "treasury-core/vesting-engine",
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) trancheRatio() float64 {
	if uc.TrancheRatio <= 0 {
		return defaultTrancheRatio
	}
	return uc.TrancheRatio
}

func (uc UseCase) runLease() time.Duration {
	if uc.RunLease <= 0 {
		return defaultRunLease
	}
	return uc.RunLease
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
