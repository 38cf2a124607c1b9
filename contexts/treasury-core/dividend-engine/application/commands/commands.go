package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	application "tidepool/contexts/treasury-core/dividend-engine/application"
	domainerrors "tidepool/contexts/treasury-core/dividend-engine/domain/errors"
	"tidepool/contexts/treasury-core/dividend-engine/ports"
	"tidepool/internal/shared/money"
)

const (
	runLockName     = "dividend"
	defaultRunLease = 15 * time.Minute
	dividendSource  = "dividend-engine"

	defaultCeilingRatio = 0.10
)

type DistributeCommand struct {
	TotalPot    float64
	TriggeredBy string
}

type DistributeResult struct {
	RunID            string
	TotalPot         float64
	Ceiling          float64
	TotalDistributed float64
	Recipients       int
	Attempted        int
	Failed           int
}

type UseCase struct {
	Accounts     ports.AccountStore
	Payer        ports.DividendPayer
	RunLock      ports.RunLockStore
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	FixedSupply  float64
	CeilingRatio float64
	RunLease     time.Duration
	Logger       *slog.Logger
}

// Distribute pays each holder its allocation-proportional share of the pot,
// truncated at the per-round ceiling. Account records are never mutated;
// the shared ledger is the only written surface.
func (uc UseCase) Distribute(ctx context.Context, cmd DistributeCommand) (DistributeResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	pot := money.Normalize(cmd.TotalPot)
	if pot <= 0 || uc.FixedSupply <= 0 {
		logger.Warn("dividend distribution rejected",
			"event", "dividend_invalid_input",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"total_pot", cmd.TotalPot,
			"fixed_supply", uc.FixedSupply,
		)
		return DistributeResult{}, domainerrors.ErrInvalidDividendInput
	}

	runID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return DistributeResult{}, err
	}
	acquired, err := uc.RunLock.AcquireRunLock(ctx, runLockName, runID, uc.runLease())
	if err != nil {
		logger.Error("dividend run lock acquire failed",
			"event", "dividend_run_lock_acquire_failed",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"run_id", runID,
			"error", err.Error(),
		)
		return DistributeResult{}, err
	}
	if !acquired {
		logger.Warn("dividend run already in progress",
			"event", "dividend_run_in_progress",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"run_id", runID,
			"triggered_by", strings.TrimSpace(cmd.TriggeredBy),
		)
		return DistributeResult{}, domainerrors.ErrRunInProgress
	}
	defer func() {
		if err := uc.RunLock.ReleaseRunLock(ctx, runLockName, runID); err != nil {
			logger.Error("dividend run lock release failed",
				"event", "dividend_run_lock_release_failed",
				"module", "treasury-core/dividend-engine",
				"layer", "application",
				"run_id", runID,
				"error", err.Error(),
			)
		}
	}()

	holders, err := uc.Accounts.ListHolders(ctx)
	if err != nil {
		logger.Error("dividend holder enumeration failed",
			"event", "dividend_enumeration_failed",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"run_id", runID,
			"error", err.Error(),
		)
		return DistributeResult{}, domainerrors.ErrEnumerationFailed
	}

	result := DistributeResult{
		RunID:    runID,
		TotalPot: pot,
		Ceiling:  money.Normalize(pot * uc.ceilingRatio()),
	}
	for _, holder := range holders {
		share := money.Normalize(holder.Allocated / uc.FixedSupply * pot)
		if share > result.Ceiling {
			share = result.Ceiling
		}
		if share <= 0 {
			continue
		}
		result.Attempted++
		memo := fmt.Sprintf("dividend share %.6f of pot %.6f", share, pot)
		reference, err := uc.Payer.PayDividend(ctx, holder.Address, share, memo)
		if err != nil {
			result.Failed++
			logger.Error("dividend payout failed",
				"event", "dividend_payout_failed",
				"module", "treasury-core/dividend-engine",
				"layer", "application",
				"run_id", runID,
				"address", holder.Address,
				"share", share,
				"error", err.Error(),
			)
			continue
		}
		result.TotalDistributed = money.Normalize(result.TotalDistributed + share)
		result.Recipients++
		logger.Info("dividend paid",
			"event", "dividend_paid",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"run_id", runID,
			"address", holder.Address,
			"share", share,
			"external_reference", reference,
		)
	}

	uc.appendRunOutbox(ctx, logger, result, strings.TrimSpace(cmd.TriggeredBy))
	logger.Info("dividend run completed",
		"event", "dividend_run_completed",
		"module", "treasury-core/dividend-engine",
		"layer", "application",
		"run_id", runID,
		"total_pot", result.TotalPot,
		"total_distributed", result.TotalDistributed,
		"recipients", result.Recipients,
		"failed", result.Failed,
	)
	return result, nil
}

func (uc UseCase) appendRunOutbox(
	ctx context.Context,
	logger *slog.Logger,
	result DistributeResult,
	triggeredBy string,
) {
	if uc.Outbox == nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("dividend outbox id generation failed",
			"event", "dividend_outbox_id_generation_failed",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
		return
	}
	data, err := json.Marshal(map[string]any{
		"run_id":            result.RunID,
		"total_pot":         result.TotalPot,
		"ceiling":           result.Ceiling,
		"total_distributed": result.TotalDistributed,
		"recipients":        result.Recipients,
		"failed":            result.Failed,
		"triggered_by":      triggeredBy,
	})
	if err != nil {
		return
	}
	if err := uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "dividend.distribution.completed",
		OccurredAt:       uc.now(),
		SourceService:    dividendSource,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "run_id",
		PartitionKey:     result.RunID,
		Data:             data,
	}); err != nil {
		logger.Error("dividend outbox append failed",
			"event", "dividend_outbox_append_failed",
			"module", "treasury-core/dividend-engine",
			"layer", "application",
			"run_id", result.RunID,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) ceilingRatio() float64 {
	if uc.CeilingRatio <= 0 {
		return defaultCeilingRatio
	}
	return uc.CeilingRatio
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
