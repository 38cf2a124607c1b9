package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	payoutservice "tidepool/contexts/treasury-core/payout-service"
	"tidepool/contexts/treasury-core/payout-service/adapters/memory"
	"tidepool/contexts/treasury-core/payout-service/application"
	"tidepool/contexts/treasury-core/payout-service/domain/entities"
	domainerrors "tidepool/contexts/treasury-core/payout-service/domain/errors"
	"tidepool/contexts/treasury-core/payout-service/ports"
)

// ledgerPeekingGateway reads the ledger while the external call is in
// flight, to observe what a crash at that moment would leave behind.
type ledgerPeekingGateway struct {
	ledger        *memory.Store
	sawPending    bool
	pendingAmount float64
}

func (g *ledgerPeekingGateway) SubmitPayment(ctx context.Context, _ ports.PaymentRequest) (ports.PaymentResult, error) {
	entries, err := g.ledger.ListEntriesByStatus(ctx, entities.LedgerStatusPending, 10)
	if err != nil {
		return ports.PaymentResult{}, err
	}
	if len(entries) == 1 {
		g.sawPending = true
		g.pendingAmount = entries[0].Amount
	}
	return ports.PaymentResult{Reference: "ext-peek-1"}, nil
}

func TestPayWritesPendingEntryBeforeGatewayCall(t *testing.T) {
	store := memory.NewStore()
	gateway := &ledgerPeekingGateway{ledger: store}
	service := application.Service{
		Ledger:     store,
		Gateway:    gateway,
		Clock:      store,
		IDGen:      store,
		NetworkFee: 0.01,
	}

	result, err := service.Pay(context.Background(), application.PayCommand{
		Address:     "wallet-1",
		GrossAmount: 100,
		Kind:        entities.LedgerKindRefund,
	})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if !gateway.sawPending {
		t.Fatalf("ledger entry must exist with status PENDING before the external call")
	}
	if gateway.pendingAmount != 99.99 {
		t.Fatalf("pending entry must carry the net amount 99.99, got %v", gateway.pendingAmount)
	}

	entry, err := service.GetEntry(context.Background(), result.EntryID)
	if err != nil {
		t.Fatalf("get entry failed: %v", err)
	}
	if entry.Status != entities.LedgerStatusCompleted {
		t.Fatalf("expected COMPLETED after gateway success, got %s", entry.Status)
	}
}

func TestPayDeductsNetworkFee(t *testing.T) {
	module := payoutservice.NewInMemoryModule(0.01, nil)

	result, err := module.Service.Pay(context.Background(), application.PayCommand{
		Address:     "wallet-1",
		GrossAmount: 100,
		Kind:        entities.LedgerKindRefund,
	})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if result.NetAmount != 99.99 {
		t.Fatalf("expected net 99.99, got %v", result.NetAmount)
	}
	if result.Reference == "" {
		t.Fatalf("expected external reference on success")
	}

	entry, err := module.Service.GetEntry(context.Background(), result.EntryID)
	if err != nil {
		t.Fatalf("get entry failed: %v", err)
	}
	if entry.Status != entities.LedgerStatusCompleted {
		t.Fatalf("expected COMPLETED entry, got %s", entry.Status)
	}
	if entry.ExternalReference != result.Reference {
		t.Fatalf("expected stored reference %q, got %q", result.Reference, entry.ExternalReference)
	}
}

func TestPayBelowFeeWritesNothing(t *testing.T) {
	module := payoutservice.NewInMemoryModule(0.01, nil)

	_, err := module.Service.Pay(context.Background(), application.PayCommand{
		Address:     "wallet-1",
		GrossAmount: 0.01,
		Kind:        entities.LedgerKindDividend,
	})
	if !errors.Is(err, domainerrors.ErrAmountBelowFee) {
		t.Fatalf("expected below-fee error, got %v", err)
	}
	if submitted := module.Gateway.Submitted(); len(submitted) != 0 {
		t.Fatalf("expected no external call, got %d", len(submitted))
	}
	entries, err := module.Service.ListEntries(context.Background(), "wallet-1", "", 10, 0)
	if err != nil {
		t.Fatalf("list entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no ledger write, got %d entries", len(entries))
	}
}

func TestPayGatewayFailureMarksEntryFailed(t *testing.T) {
	module := payoutservice.NewInMemoryModule(0.01, nil)
	module.Gateway.FailFor("wallet-down", "network unreachable")

	result, err := module.Service.Pay(context.Background(), application.PayCommand{
		Address:     "wallet-down",
		GrossAmount: 50,
		Kind:        entities.LedgerKindVestingRelease,
	})
	if err == nil {
		t.Fatalf("expected gateway error")
	}

	entry, getErr := module.Service.GetEntry(context.Background(), result.EntryID)
	if getErr != nil {
		t.Fatalf("get entry failed: %v", getErr)
	}
	if entry.Status != entities.LedgerStatusFailed {
		t.Fatalf("expected FAILED entry, got %s", entry.Status)
	}
	if !strings.Contains(entry.Memo, "network unreachable") {
		t.Fatalf("expected failure reason in memo, got %q", entry.Memo)
	}
}

func TestPayRejectsInvalidInput(t *testing.T) {
	module := payoutservice.NewInMemoryModule(0.01, nil)

	_, err := module.Service.Pay(context.Background(), application.PayCommand{
		Address:     "",
		GrossAmount: 10,
		Kind:        entities.LedgerKindRefund,
	})
	if !errors.Is(err, domainerrors.ErrInvalidPayoutInput) {
		t.Fatalf("expected invalid input for empty address, got %v", err)
	}

	_, err = module.Service.Pay(context.Background(), application.PayCommand{
		Address:     "wallet-1",
		GrossAmount: 10,
		Kind:        entities.LedgerKind("BOGUS"),
	})
	if !errors.Is(err, domainerrors.ErrInvalidPayoutInput) {
		t.Fatalf("expected invalid input for bogus kind, got %v", err)
	}
}

func TestTerminalEntriesAreFrozen(t *testing.T) {
	module := payoutservice.NewInMemoryModule(0.01, nil)

	result, err := module.Service.Pay(context.Background(), application.PayCommand{
		Address:     "wallet-1",
		GrossAmount: 10,
		Kind:        entities.LedgerKindDividend,
	})
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}

	err = module.Store.MarkFailed(context.Background(), result.EntryID, "late failure", module.Store.Now())
	if !errors.Is(err, domainerrors.ErrLedgerEntryTerminal) {
		t.Fatalf("expected terminal-entry error, got %v", err)
	}
}
