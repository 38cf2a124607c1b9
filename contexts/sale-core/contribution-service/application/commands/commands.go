package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "tidepool/contexts/sale-core/contribution-service/application"
	"tidepool/contexts/sale-core/contribution-service/domain/entities"
	domainerrors "tidepool/contexts/sale-core/contribution-service/domain/errors"
	"tidepool/contexts/sale-core/contribution-service/ports"
	"tidepool/internal/shared/money"
)

type RecordContributionCommand struct {
	Address           string
	Amount            float64
	ExternalReference string
	Memo              string
}

type RecordContributionResult struct {
	Account     entities.Account
	Allocated   float64
	SpotPrice   float64
	WaterLevel  float64
	EntryID     string
	WhaleShare  float64
	WhaleWarned bool
}

type UseCase struct {
	Accounts    ports.AccountRepository
	Ledger      ports.ContributionLedger
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	FixedSupply float64
	WhaleRatio  float64
	Logger      *slog.Logger
}

// RecordContribution upserts the pioneer account for one received payment.
// The external reference is the inbound idempotency key: a duplicate is
// rejected with a conflict before any state change.
func (uc UseCase) RecordContribution(ctx context.Context, cmd RecordContributionCommand) (RecordContributionResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	address := strings.TrimSpace(cmd.Address)
	reference := strings.TrimSpace(cmd.ExternalReference)
	amount := money.Normalize(cmd.Amount)
	if address == "" || reference == "" || amount <= 0 {
		logger.Warn("contribution rejected",
			"event", "contribution_invalid_input",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"external_reference", reference,
			"amount", amount,
		)
		return RecordContributionResult{}, domainerrors.ErrInvalidContributionInput
	}

	now := uc.now()
	entryID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("contribution id generation failed",
			"event", "contribution_id_generation_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"error", err.Error(),
		)
		return RecordContributionResult{}, err
	}

	// The ledger write is first so a duplicate reference never touches the
	// account row.
	if err := uc.Ledger.RecordContribution(ctx, ports.ContributionRecord{
		EntryID:           entryID,
		Address:           address,
		Amount:            amount,
		ExternalReference: reference,
		Memo:              strings.TrimSpace(cmd.Memo),
		ReceivedAt:        now,
	}); err != nil {
		if err == domainerrors.ErrDuplicateContribution {
			logger.Warn("duplicate contribution rejected",
				"event", "contribution_duplicate_reference",
				"module", "sale-core/contribution-service",
				"layer", "application",
				"address", address,
				"external_reference", reference,
			)
			return RecordContributionResult{}, err
		}
		logger.Error("contribution ledger write failed",
			"event", "contribution_ledger_write_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"external_reference", reference,
			"error", err.Error(),
		)
		return RecordContributionResult{}, err
	}

	account, err := uc.Accounts.GetAccount(ctx, address)
	if err != nil && err != domainerrors.ErrAccountNotFound {
		logger.Error("contribution account lookup failed",
			"event", "contribution_account_lookup_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"error", err.Error(),
		)
		return RecordContributionResult{}, err
	}
	if err == domainerrors.ErrAccountNotFound {
		account = entities.Account{Address: address}
	}

	priorPool, err := uc.Accounts.SumContributed(ctx)
	if err != nil {
		logger.Error("contribution water level read failed",
			"event", "contribution_water_level_read_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"error", err.Error(),
		)
		return RecordContributionResult{}, err
	}

	// Allocation is fixed at the spot price of receipt, including this
	// contribution in the water level.
	waterLevel := money.Normalize(priorPool + amount)
	spotPrice := 0.0
	if waterLevel > 0 {
		spotPrice = uc.FixedSupply / waterLevel
	}
	allocated := money.Normalize(amount * spotPrice)

	account.Contributed = money.Normalize(account.Contributed + amount)
	account.Allocated = money.Normalize(account.Allocated + allocated)
	account.LastContributionAt = now
	account.UpdatedAt = now

	whaleShare := money.PercentOf(account.Contributed, waterLevel)
	// Advisory only while the sale is open; settlement owns the
	// authoritative flag.
	account.IsWhale = account.Contributed > money.Normalize(waterLevel*uc.WhaleRatio)
	account.ClampReleased()

	if err := uc.Accounts.UpsertAccount(ctx, account); err != nil {
		logger.Error("contribution account upsert failed",
			"event", "contribution_account_upsert_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"error", err.Error(),
		)
		return RecordContributionResult{}, err
	}

	warned := uc.warnOnOverAllocation(ctx, logger, address)
	uc.appendContributionOutbox(ctx, logger, account, amount, reference)

	logger.Info("contribution recorded",
		"event", "contribution_recorded",
		"module", "sale-core/contribution-service",
		"layer", "application",
		"address", address,
		"amount", amount,
		"allocated", allocated,
		"water_level", waterLevel,
		"is_whale", account.IsWhale,
	)
	return RecordContributionResult{
		Account:     account,
		Allocated:   allocated,
		SpotPrice:   money.Normalize(spotPrice),
		WaterLevel:  waterLevel,
		EntryID:     entryID,
		WhaleShare:  whaleShare,
		WhaleWarned: warned,
	}, nil
}

// warnOnOverAllocation logs when aggregate allocation exceeds the fixed sale
// supply. Issuance policy lives outside the engine, so this never rejects.
func (uc UseCase) warnOnOverAllocation(ctx context.Context, logger *slog.Logger, address string) bool {
	totalAllocated, err := uc.Accounts.SumAllocated(ctx)
	if err != nil {
		logger.Warn("allocation aggregate read failed",
			"event", "contribution_allocation_aggregate_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", address,
			"error", err.Error(),
		)
		return false
	}
	if totalAllocated <= uc.FixedSupply {
		return false
	}
	logger.Warn("aggregate allocation exceeds fixed supply",
		"event", "contribution_allocation_over_supply",
		"module", "sale-core/contribution-service",
		"layer", "application",
		"address", address,
		"total_allocated", money.Normalize(totalAllocated),
		"fixed_supply", uc.FixedSupply,
	)
	return true
}

func (uc UseCase) appendContributionOutbox(
	ctx context.Context,
	logger *slog.Logger,
	account entities.Account,
	amount float64,
	reference string,
) {
	if uc.Outbox == nil {
		return
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("contribution outbox id generation failed",
			"event", "contribution_outbox_id_generation_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", account.Address,
			"error", err.Error(),
		)
		return
	}
	data, err := json.Marshal(map[string]any{
		"address":            account.Address,
		"amount":             amount,
		"contributed":        account.Contributed,
		"allocated":          account.Allocated,
		"external_reference": reference,
	})
	if err != nil {
		logger.Error("contribution outbox payload marshal failed",
			"event", "contribution_outbox_payload_marshal_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", account.Address,
			"error", err.Error(),
		)
		return
	}
	if err := uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          eventID,
		EventType:        "contribution.recorded",
		OccurredAt:       uc.now(),
		SourceService:    "contribution-service",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "address",
		PartitionKey:     account.Address,
		Data:             data,
	}); err != nil {
		logger.Error("contribution outbox append failed",
			"event", "contribution_outbox_append_failed",
			"module", "sale-core/contribution-service",
			"layer", "application",
			"address", account.Address,
			"error", err.Error(),
		)
	}
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
