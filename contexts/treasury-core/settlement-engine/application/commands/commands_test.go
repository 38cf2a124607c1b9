package commands_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"tidepool/contexts/treasury-core/settlement-engine/adapters/memory"
	"tidepool/contexts/treasury-core/settlement-engine/application/commands"
	domainerrors "tidepool/contexts/treasury-core/settlement-engine/domain/errors"
)

type fakePayer struct {
	refunds map[string]float64
	failFor map[string]error
}

func newFakePayer() *fakePayer {
	return &fakePayer{
		refunds: make(map[string]float64),
		failFor: make(map[string]error),
	}
}

func (p *fakePayer) PayRefund(_ context.Context, address string, gross float64, _ string) (string, error) {
	if err, ok := p.failFor[address]; ok {
		return "", err
	}
	p.refunds[address] = gross
	return "ref-" + address, nil
}

func newUseCase(store *memory.Store, payer *fakePayer) commands.UseCase {
	return commands.UseCase{
		Accounts:   store,
		Payer:      payer,
		RunLock:    store,
		Outbox:     store,
		Clock:      store,
		IDGen:      store,
		WhaleRatio: 0.10,
	}
}

func TestRunSettlementTrimsSingleWhale(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("whale-1", 15000.5555555)

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Threshold != 10000 {
		t.Fatalf("expected threshold 10000, got %v", result.Threshold)
	}
	if result.TotalRefunded != 5000.555555 {
		t.Fatalf("expected refund 5000.555555, got %v", result.TotalRefunded)
	}
	if got := payer.refunds["whale-1"]; got != 5000.555555 {
		t.Fatalf("expected payer to receive 5000.555555, got %v", got)
	}
	if got := store.Contributed("whale-1"); got != 10000 {
		t.Fatalf("expected contributed clamped to 10000, got %v", got)
	}
	if !store.IsWhale("whale-1") {
		t.Fatalf("expected whale flag set after trim-back")
	}
}

func TestRunSettlementAggregatesAcrossWhales(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("whale-a", 12000)
	store.Seed("whale-b", 13000)
	store.Seed("minnow", 500)

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalRefunded != 5000 {
		t.Fatalf("expected total refunded 5000, got %v", result.TotalRefunded)
	}
	if result.WhalesImpacted != 2 {
		t.Fatalf("expected 2 whales impacted, got %d", result.WhalesImpacted)
	}
	if _, touched := payer.refunds["minnow"]; touched {
		t.Fatalf("account at or below the threshold must not be refunded")
	}
	if got := store.Contributed("minnow"); got != 500 {
		t.Fatalf("expected minnow untouched, got %v", got)
	}
}

func TestRunSettlementExactThresholdIsNotAWhale(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("boundary", 10000)

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.WhalesImpacted != 0 || result.Attempted != 0 {
		t.Fatalf("account holding exactly the threshold must be left alone, got %+v", result)
	}
}

func TestRunSettlementContinuesPastRefundFailure(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	payer.failFor["whale-a"] = errors.New("gateway timeout")
	store.Seed("whale-a", 12000)
	store.Seed("whale-b", 13000)

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if err != nil {
		t.Fatalf("batch run must not abort on one refund failure: %v", err)
	}
	if result.Failed != 1 {
		t.Fatalf("expected 1 failed refund, got %d", result.Failed)
	}
	if result.WhalesImpacted != 1 || result.TotalRefunded != 3000 {
		t.Fatalf("expected the healthy whale trimmed, got %+v", result)
	}
	if got := store.Contributed("whale-a"); got != 12000 {
		t.Fatalf("failed refund must leave the account untouched, got %v", got)
	}
}

func TestRunSettlementDerivesPoolWhenUnset(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	for i := 0; i < 10; i++ {
		store.Seed(fmt.Sprintf("acct-%d", i), 10000)
	}

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.FinalPool != 100000 {
		t.Fatalf("expected derived pool 100000, got %v", result.FinalPool)
	}
	if result.WhalesImpacted != 0 {
		t.Fatalf("even split has no whales, got %d", result.WhalesImpacted)
	}
}

func TestRunSettlementRejectsConcurrentRun(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("whale-1", 20000)

	held, err := store.AcquireRunLock(context.Background(), "settlement", "other-run", time.Minute)
	if err != nil || !held {
		t.Fatalf("failed to pre-hold run lock: held=%v err=%v", held, err)
	}

	_, err = newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if !errors.Is(err, domainerrors.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if len(payer.refunds) != 0 {
		t.Fatalf("no refund may happen while another run holds the lock")
	}
}

func TestRunSettlementAbortsOnEnumerationFailure(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("whale-1", 20000)
	store.ListErr = errors.New("connection reset")

	_, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if !errors.Is(err, domainerrors.ErrEnumerationFailed) {
		t.Fatalf("expected ErrEnumerationFailed, got %v", err)
	}
	if len(payer.refunds) != 0 {
		t.Fatalf("enumeration failure must abort before any refund")
	}
}

func TestRunSettlementClearsStaleWhaleFlags(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	// Peaked above ten percent mid-sale and got flagged, then later
	// contributions diluted it below the final threshold.
	store.SeedFlagged("diluted", 4000)
	store.Seed("whale-1", 15000)
	for i := 0; i < 9; i++ {
		store.Seed(fmt.Sprintf("acct-%d", i), 9000)
	}

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.IsWhale("diluted") {
		t.Fatalf("below-threshold account must have its whale flag cleared by settlement")
	}
	if !store.IsWhale("whale-1") {
		t.Fatalf("trimmed whale must keep its flag")
	}
	if _, touched := payer.refunds["diluted"]; touched {
		t.Fatalf("below-threshold account must not be refunded")
	}
	if result.WhalesImpacted != 1 {
		t.Fatalf("expected 1 whale impacted, got %d", result.WhalesImpacted)
	}
}

func TestRunSettlementAppendsRunEvent(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("whale-1", 12000)

	result, err := newUseCase(store, payer).RunSettlement(context.Background(), commands.RunSettlementCommand{
		FinalPool: 100000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := store.Outbox()
	if len(events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(events))
	}
	if events[0].EventType != "settlement.completed" {
		t.Fatalf("unexpected event type %q", events[0].EventType)
	}
	if events[0].PartitionKey != result.RunID {
		t.Fatalf("expected run id partition key, got %q", events[0].PartitionKey)
	}
}
