package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	domainerrors "tidepool/contexts/treasury-core/payout-service/domain/errors"
	"tidepool/contexts/treasury-core/payout-service/ports"
	"tidepool/internal/shared/money"
)

type PayCommand struct {
	Address     string
	GrossAmount float64
	Kind        entities.LedgerKind
	Memo        string
}

type PayResult struct {
	EntryID   string
	NetAmount float64
	Reference string
}

type Service struct {
	Ledger     ports.LedgerRepository
	Gateway    ports.PaymentGateway
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	NetworkFee float64
	Logger     *slog.Logger
}

// Pay moves net = gross - networkFee to the destination wallet.
//
// The PENDING ledger entry is written before the external call on purpose:
// an attempted-but-unconfirmed payout must stay auditable if the process
// dies mid-call. No retry happens here; retry policy belongs to the caller.
func (s Service) Pay(ctx context.Context, cmd PayCommand) (PayResult, error) {
	logger := ResolveLogger(s.Logger)
	address := strings.TrimSpace(cmd.Address)
	if address == "" || !entities.ValidKind(cmd.Kind) {
		logger.Warn("payout rejected",
			"event", "payout_invalid_input",
			"module", "treasury-core/payout-service",
			"layer", "application",
			"address", address,
			"kind", string(cmd.Kind),
		)
		return PayResult{}, domainerrors.ErrInvalidPayoutInput
	}

	net := money.Normalize(cmd.GrossAmount - s.NetworkFee)
	if net <= 0 {
		logger.Warn("payout below network fee",
			"event", "payout_below_network_fee",
			"module", "treasury-core/payout-service",
			"layer", "application",
			"address", address,
			"gross_amount", cmd.GrossAmount,
			"network_fee", s.NetworkFee,
		)
		return PayResult{}, domainerrors.ErrAmountBelowFee
	}

	now := s.now()
	entryID, err := s.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("payout id generation failed",
			"event", "payout_id_generation_failed",
			"module", "treasury-core/payout-service",
			"layer", "application",
			"address", address,
			"error", err.Error(),
		)
		return PayResult{}, err
	}

	memo := strings.TrimSpace(cmd.Memo)
	if memo == "" {
		memo = string(cmd.Kind) + " payout to " + address
	}
	if err := s.Ledger.CreateEntry(ctx, entities.LedgerEntry{
		EntryID:   entryID,
		Address:   address,
		Amount:    net,
		Kind:      cmd.Kind,
		Status:    entities.LedgerStatusPending,
		Memo:      memo,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		logger.Error("payout ledger create failed",
			"event", "payout_ledger_create_failed",
			"module", "treasury-core/payout-service",
			"layer", "application",
			"address", address,
			"entry_id", entryID,
			"error", err.Error(),
		)
		return PayResult{}, err
	}

	result, gatewayErr := s.Gateway.SubmitPayment(ctx, ports.PaymentRequest{
		DestinationAddress: address,
		Amount:             net,
		Memo:               memo,
	})
	if gatewayErr != nil {
		if err := s.Ledger.MarkFailed(ctx, entryID, gatewayErr.Error(), s.now()); err != nil {
			logger.Error("payout failed-mark write failed",
				"event", "payout_failed_mark_write_failed",
				"module", "treasury-core/payout-service",
				"layer", "application",
				"address", address,
				"entry_id", entryID,
				"error", err.Error(),
			)
		}
		logger.Error("payout gateway call failed",
			"event", "payout_gateway_call_failed",
			"module", "treasury-core/payout-service",
			"layer", "application",
			"address", address,
			"entry_id", entryID,
			"kind", string(cmd.Kind),
			"net_amount", net,
			"error", gatewayErr.Error(),
		)
		return PayResult{EntryID: entryID, NetAmount: net}, gatewayErr
	}

	reference := strings.TrimSpace(result.Reference)
	if err := s.Ledger.MarkCompleted(ctx, entryID, reference, s.now()); err != nil {
		logger.Error("payout completed-mark write failed",
			"event", "payout_completed_mark_write_failed",
			"module", "treasury-core/payout-service",
			"layer", "application",
			"address", address,
			"entry_id", entryID,
			"external_reference", reference,
			"error", err.Error(),
		)
		return PayResult{EntryID: entryID, NetAmount: net, Reference: reference}, err
	}

	logger.Info("payout completed",
		"event", "payout_completed",
		"module", "treasury-core/payout-service",
		"layer", "application",
		"address", address,
		"entry_id", entryID,
		"kind", string(cmd.Kind),
		"net_amount", net,
		"external_reference", reference,
	)
	return PayResult{EntryID: entryID, NetAmount: net, Reference: reference}, nil
}

func (s Service) GetEntry(ctx context.Context, entryID string) (entities.LedgerEntry, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return entities.LedgerEntry{}, domainerrors.ErrInvalidPayoutInput
	}
	return s.Ledger.GetEntry(ctx, entryID)
}

func (s Service) ListEntries(
	ctx context.Context,
	address string,
	status string,
	limit int,
	offset int,
) ([]entities.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	address = strings.TrimSpace(address)
	status = strings.ToUpper(strings.TrimSpace(status))
	if address != "" {
		items, err := s.Ledger.ListEntriesByAddress(ctx, address, limit, offset)
		if err != nil {
			return nil, err
		}
		if status == "" {
			return items, nil
		}
		filtered := make([]entities.LedgerEntry, 0, len(items))
		for _, item := range items {
			if string(item.Status) == status {
				filtered = append(filtered, item)
			}
		}
		return filtered, nil
	}
	if status == "" {
		return nil, domainerrors.ErrInvalidPayoutInput
	}
	return s.Ledger.ListEntriesByStatus(ctx, entities.LedgerStatus(status), limit)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}
