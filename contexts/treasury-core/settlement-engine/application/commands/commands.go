package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "tidepool/contexts/treasury-core/settlement-engine/application"
	domainerrors "tidepool/contexts/treasury-core/settlement-engine/domain/errors"
	"tidepool/contexts/treasury-core/settlement-engine/ports"
	"tidepool/internal/shared/money"
)

const (
	runLockName      = "settlement"
	defaultRunLease  = 15 * time.Minute
	settlementSource = "settlement-engine"
)

type RunSettlementCommand struct {
	// FinalPool is the closing water level. Zero or negative means derive
	// it by summing contributions at call time.
	FinalPool   float64
	TriggeredBy string
}

type RunSettlementResult struct {
	RunID          string
	FinalPool      float64
	Threshold      float64
	TotalRefunded  float64
	WhalesImpacted int
	Attempted      int
	Failed         int
}

type UseCase struct {
	Accounts   ports.AccountStore
	Payer      ports.RefundPayer
	RunLock    ports.RunLockStore
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	WhaleRatio float64
	RunLease   time.Duration
	Logger     *slog.Logger
}

// RunSettlement trims every whale back to the concentration threshold.
// Individual refund failures are isolated per account; only an enumeration
// failure aborts the run.
func (uc UseCase) RunSettlement(ctx context.Context, cmd RunSettlementCommand) (RunSettlementResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	runID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return RunSettlementResult{}, err
	}
	acquired, err := uc.RunLock.AcquireRunLock(ctx, runLockName, runID, uc.runLease())
	if err != nil {
		logger.Error("settlement run lock acquire failed",
			"event", "settlement_run_lock_acquire_failed",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
			"error", err.Error(),
		)
		return RunSettlementResult{}, err
	}
	if !acquired {
		logger.Warn("settlement run already in progress",
			"event", "settlement_run_in_progress",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
			"triggered_by", strings.TrimSpace(cmd.TriggeredBy),
		)
		return RunSettlementResult{}, domainerrors.ErrRunInProgress
	}
	defer func() {
		if err := uc.RunLock.ReleaseRunLock(ctx, runLockName, runID); err != nil {
			logger.Error("settlement run lock release failed",
				"event", "settlement_run_lock_release_failed",
				"module", "treasury-core/settlement-engine",
				"layer", "application",
				"run_id", runID,
				"error", err.Error(),
			)
		}
	}()

	finalPool := money.Normalize(cmd.FinalPool)
	if finalPool <= 0 {
		total, err := uc.Accounts.SumContributed(ctx)
		if err != nil {
			logger.Error("settlement pool aggregation failed",
				"event", "settlement_pool_aggregation_failed",
				"module", "treasury-core/settlement-engine",
				"layer", "application",
				"run_id", runID,
				"error", err.Error(),
			)
			return RunSettlementResult{}, domainerrors.ErrEnumerationFailed
		}
		finalPool = money.Normalize(total)
	}
	if finalPool <= 0 {
		logger.Warn("settlement skipped on empty pool",
			"event", "settlement_empty_pool",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
		)
		return RunSettlementResult{RunID: runID}, nil
	}

	threshold := money.Normalize(finalPool * uc.WhaleRatio)
	whales, err := uc.Accounts.ListContributedAbove(ctx, threshold)
	if err != nil {
		logger.Error("settlement account enumeration failed",
			"event", "settlement_enumeration_failed",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
			"threshold", threshold,
			"error", err.Error(),
		)
		return RunSettlementResult{}, domainerrors.ErrEnumerationFailed
	}

	// Mid-sale whale flags are provisional. Clear every flag at or under
	// the final threshold before trimming, so a wallet diluted below the
	// line does not stay excluded from vesting. Runs before the trim loop
	// because trimmed whales land exactly on the threshold and must keep
	// their flag.
	cleared, err := uc.Accounts.ClearWhaleFlagsAtOrBelow(ctx, threshold, uc.now())
	if err != nil {
		logger.Error("stale whale flag clear failed",
			"event", "settlement_whale_flag_clear_failed",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
			"threshold", threshold,
			"error", err.Error(),
		)
		return RunSettlementResult{}, domainerrors.ErrEnumerationFailed
	}
	if cleared > 0 {
		logger.Info("stale whale flags cleared",
			"event", "settlement_whale_flags_cleared",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
			"threshold", threshold,
			"cleared", cleared,
		)
	}

	result := RunSettlementResult{
		RunID:     runID,
		FinalPool: finalPool,
		Threshold: threshold,
	}
	for _, whale := range whales {
		excess := money.Normalize(whale.Contributed - threshold)
		if excess <= 0 {
			continue
		}
		result.Attempted++
		memo := fmt.Sprintf("trim-back refund of %.6f above threshold %.6f", excess, threshold)
		reference, err := uc.Payer.PayRefund(ctx, whale.Address, excess, memo)
		if err != nil {
			result.Failed++
			logger.Error("whale refund failed",
				"event", "settlement_refund_failed",
				"module", "treasury-core/settlement-engine",
				"layer", "application",
				"run_id", runID,
				"address", whale.Address,
				"excess", excess,
				"error", err.Error(),
			)
			continue
		}
		if err := uc.Accounts.ApplyTrimBack(ctx, whale.Address, threshold, uc.now()); err != nil {
			result.Failed++
			logger.Error("whale trim-back persist failed",
				"event", "settlement_trimback_persist_failed",
				"module", "treasury-core/settlement-engine",
				"layer", "application",
				"run_id", runID,
				"address", whale.Address,
				"external_reference", reference,
				"error", err.Error(),
			)
			continue
		}
		result.TotalRefunded = money.Normalize(result.TotalRefunded + excess)
		result.WhalesImpacted++
		logger.Info("whale trimmed back",
			"event", "settlement_whale_trimmed",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", runID,
			"address", whale.Address,
			"excess", excess,
			"external_reference", reference,
		)
	}

	uc.appendRunOutbox(ctx, logger, result, strings.TrimSpace(cmd.TriggeredBy))
	logger.Info("settlement run completed",
		"event", "settlement_run_completed",
		"module", "treasury-core/settlement-engine",
		"layer", "application",
		"run_id", runID,
		"final_pool", result.FinalPool,
		"threshold", result.Threshold,
		"total_refunded", result.TotalRefunded,
		"whales_impacted", result.WhalesImpacted,
		"failed", result.Failed,
	)
	return result, nil
}

func (uc UseCase) appendRunOutbox(
	ctx context.Context,
	logger *slog.Logger,
	result RunSettlementResult,
	triggeredBy string,
) {
	if uc.Outbox == nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("settlement outbox id generation failed",
			"event", "settlement_outbox_id_generation_failed",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
		return
	}
	data, err := json.Marshal(map[string]any{
		"run_id":          result.RunID,
		"final_pool":      result.FinalPool,
		"threshold":       result.Threshold,
		"total_refunded":  result.TotalRefunded,
		"whales_impacted": result.WhalesImpacted,
		"failed":          result.Failed,
		"triggered_by":    triggeredBy,
	})
	if err != nil {
		return
	}
	if err := uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "settlement.completed",
		OccurredAt:       uc.now(),
		SourceService:    settlementSource,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "run_id",
		PartitionKey:     result.RunID,
		Data:             data,
	}); err != nil {
		logger.Error("settlement outbox append failed",
			"event", "settlement_outbox_append_failed",
			"module", "treasury-core/settlement-engine",
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
	}
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
