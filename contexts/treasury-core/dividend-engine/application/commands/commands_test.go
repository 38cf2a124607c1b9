package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tidepool/contexts/treasury-core/dividend-engine/adapters/memory"
	"tidepool/contexts/treasury-core/dividend-engine/application/commands"
	domainerrors "tidepool/contexts/treasury-core/dividend-engine/domain/errors"
)

type fakePayer struct {
	dividends map[string]float64
	failFor   map[string]error
}

func newFakePayer() *fakePayer {
	return &fakePayer{
		dividends: make(map[string]float64),
		failFor:   make(map[string]error),
	}
}

func (p *fakePayer) PayDividend(_ context.Context, address string, gross float64, _ string) (string, error) {
	if err, ok := p.failFor[address]; ok {
		return "", err
	}
	p.dividends[address] = gross
	return "ref-" + address, nil
}

func newUseCase(store *memory.Store, payer *fakePayer) commands.UseCase {
	return commands.UseCase{
		Accounts:    store,
		Payer:       payer,
		RunLock:     store,
		Outbox:      store,
		Clock:       store,
		IDGen:       store,
		FixedSupply: 1000000,
	}
}

func TestDistributePaysProportionalShare(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	// Exactly one percent of the fixed supply.
	store.Seed("pioneer-1", 500, 10000)

	result, err := newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
		TotalPot: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := payer.dividends["pioneer-1"]; got != 100 {
		t.Fatalf("expected share 100, got %v", got)
	}
	if result.TotalDistributed != 100 || result.Recipients != 1 {
		t.Fatalf("unexpected summary %+v", result)
	}
}

func TestDistributeTruncatesAtCeiling(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	// Thirty percent of supply; the raw share of 3000 exceeds the
	// per-round ceiling of ten percent of the pot.
	store.Seed("large-holder", 9000, 300000)

	result, err := newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
		TotalPot: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Ceiling != 1000 {
		t.Fatalf("expected ceiling 1000, got %v", result.Ceiling)
	}
	if got := payer.dividends["large-holder"]; got != 1000 {
		t.Fatalf("expected truncated share 1000, got %v", got)
	}
}

func TestDistributeSkipsNonContributors(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 500, 10000)
	store.Seed("ghost", 0, 10000)

	result, err := newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
		TotalPot: 10000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Recipients != 1 {
		t.Fatalf("expected 1 recipient, got %d", result.Recipients)
	}
	if _, touched := payer.dividends["ghost"]; touched {
		t.Fatalf("accounts without contributions must not receive dividends")
	}
}

func TestDistributeRejectsNonPositivePot(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 500, 10000)

	for _, pot := range []float64{0, -100} {
		_, err := newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
			TotalPot: pot,
		})
		if !errors.Is(err, domainerrors.ErrInvalidDividendInput) {
			t.Fatalf("pot %v: expected ErrInvalidDividendInput, got %v", pot, err)
		}
	}
	if len(payer.dividends) != 0 {
		t.Fatalf("rejected pot must not pay anything")
	}
}

func TestDistributeContinuesPastPayoutFailure(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	payer.failFor["pioneer-a"] = errors.New("gateway timeout")
	store.Seed("pioneer-a", 500, 10000)
	store.Seed("pioneer-b", 500, 20000)

	result, err := newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
		TotalPot: 10000,
	})
	if err != nil {
		t.Fatalf("batch run must not abort on one payout failure: %v", err)
	}
	if result.Failed != 1 || result.Recipients != 1 {
		t.Fatalf("expected one failure and one recipient, got %+v", result)
	}
	if got := payer.dividends["pioneer-b"]; got != 200 {
		t.Fatalf("expected healthy holder paid 200, got %v", got)
	}
}

func TestDistributeRejectsConcurrentRun(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 500, 10000)

	held, err := store.AcquireRunLock(context.Background(), "dividend", "other-run", time.Minute)
	if err != nil || !held {
		t.Fatalf("failed to pre-hold run lock: held=%v err=%v", held, err)
	}

	_, err = newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
		TotalPot: 10000,
	})
	if !errors.Is(err, domainerrors.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if len(payer.dividends) != 0 {
		t.Fatalf("no dividend may be paid while another run holds the lock")
	}
}

func TestDistributeAbortsOnEnumerationFailure(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 500, 10000)
	store.ListErr = errors.New("connection reset")

	_, err := newUseCase(store, payer).Distribute(context.Background(), commands.DistributeCommand{
		TotalPot: 10000,
	})
	if !errors.Is(err, domainerrors.ErrEnumerationFailed) {
		t.Fatalf("expected ErrEnumerationFailed, got %v", err)
	}
}
