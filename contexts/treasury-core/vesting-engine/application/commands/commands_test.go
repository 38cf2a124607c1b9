package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"tidepool/contexts/treasury-core/vesting-engine/adapters/memory"
	"tidepool/contexts/treasury-core/vesting-engine/application/commands"
	domainerrors "tidepool/contexts/treasury-core/vesting-engine/domain/errors"
)

type fakePayer struct {
	releases map[string][]float64
	failFor  map[string]error
}

func newFakePayer() *fakePayer {
	return &fakePayer{
		releases: make(map[string][]float64),
		failFor:  make(map[string]error),
	}
}

func (p *fakePayer) PayRelease(_ context.Context, address string, gross float64, _ string) (string, error) {
	if err, ok := p.failFor[address]; ok {
		return "", err
	}
	p.releases[address] = append(p.releases[address], gross)
	return "ref-" + address, nil
}

func newUseCase(store *memory.Store, payer *fakePayer) commands.UseCase {
	return commands.UseCase{
		Accounts:     store,
		Payer:        payer,
		RunLock:      store,
		Outbox:       store,
		Clock:        store,
		IDGen:        store,
		TrancheRatio: 0.10,
	}
}

func TestRunVestingPaysOneTranche(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 500, 1000, false)

	result, err := newUseCase(store, payer).RunVesting(context.Background(), commands.RunVestingCommand{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalReleased != 100 {
		t.Fatalf("expected 100 released, got %v", result.TotalReleased)
	}
	if got := store.Released("pioneer-1"); got != 100 {
		t.Fatalf("expected cumulative released 100, got %v", got)
	}
	if got := store.TranchesCompleted("pioneer-1"); got != 1 {
		t.Fatalf("expected 1 tranche completed, got %d", got)
	}
}

func TestRunVestingCompletesAfterTenCycles(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 500, 1000, false)
	uc := newUseCase(store, payer)

	for i := 0; i < 10; i++ {
		if _, err := uc.RunVesting(context.Background(), commands.RunVestingCommand{}); err != nil {
			t.Fatalf("cycle %d failed: %v", i+1, err)
		}
	}
	if got := store.Released("pioneer-1"); got != 1000 {
		t.Fatalf("expected full allocation released, got %v", got)
	}
	if got := store.TranchesCompleted("pioneer-1"); got != 10 {
		t.Fatalf("expected 10 tranches completed, got %d", got)
	}

	result, err := uc.RunVesting(context.Background(), commands.RunVestingCommand{})
	if err != nil {
		t.Fatalf("eleventh cycle failed: %v", err)
	}
	if result.Attempted != 0 || result.TotalReleased != 0 {
		t.Fatalf("eleventh cycle must be a no-op, got %+v", result)
	}
	if got := len(payer.releases["pioneer-1"]); got != 10 {
		t.Fatalf("expected exactly 10 payouts, got %d", got)
	}
}

func TestRunVestingExcludesWhalesAndNonContributors(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("whale", 20000, 50000, true)
	store.Seed("ghost", 0, 0, false)
	store.Seed("pioneer", 100, 1000, false)

	result, err := newUseCase(store, payer).RunVesting(context.Background(), commands.RunVestingCommand{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Released != 1 {
		t.Fatalf("expected only the compliant account released, got %d", result.Released)
	}
	if _, touched := payer.releases["whale"]; touched {
		t.Fatalf("whales must not vest")
	}
	if _, touched := payer.releases["ghost"]; touched {
		t.Fatalf("accounts without contributions must not vest")
	}
}

func TestRunVestingClampsReleasedToAllocation(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	// Allocation not evenly divisible by the tranche ratio leaves a
	// short final tranche.
	store.Seed("pioneer-1", 100, 33.333333, false)
	uc := newUseCase(store, payer)

	for i := 0; i < 11; i++ {
		if _, err := uc.RunVesting(context.Background(), commands.RunVestingCommand{}); err != nil {
			t.Fatalf("cycle %d failed: %v", i+1, err)
		}
	}
	if got := store.Released("pioneer-1"); got > 33.333333 {
		t.Fatalf("released must never exceed allocated, got %v", got)
	}
}

func TestRunVestingContinuesPastReleaseFailure(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	payer.failFor["pioneer-a"] = errors.New("gateway timeout")
	store.Seed("pioneer-a", 100, 1000, false)
	store.Seed("pioneer-b", 100, 2000, false)

	result, err := newUseCase(store, payer).RunVesting(context.Background(), commands.RunVestingCommand{})
	if err != nil {
		t.Fatalf("batch run must not abort on one release failure: %v", err)
	}
	if result.Failed != 1 || result.Released != 1 {
		t.Fatalf("expected one failure and one release, got %+v", result)
	}
	if got := store.TranchesCompleted("pioneer-a"); got != 0 {
		t.Fatalf("failed release must not advance the account, got %d tranches", got)
	}
	if got := store.Released("pioneer-b"); got != 200 {
		t.Fatalf("expected healthy account released 200, got %v", got)
	}
}

func TestRunVestingRejectsConcurrentRun(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 100, 1000, false)

	held, err := store.AcquireRunLock(context.Background(), "vesting", "other-run", time.Minute)
	if err != nil || !held {
		t.Fatalf("failed to pre-hold run lock: held=%v err=%v", held, err)
	}

	_, err = newUseCase(store, payer).RunVesting(context.Background(), commands.RunVestingCommand{})
	if !errors.Is(err, domainerrors.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if len(payer.releases) != 0 {
		t.Fatalf("no release may happen while another run holds the lock")
	}
}

func TestRunVestingAbortsOnEnumerationFailure(t *testing.T) {
	store := memory.NewStore()
	payer := newFakePayer()
	store.Seed("pioneer-1", 100, 1000, false)
	store.ListErr = errors.New("connection reset")

	_, err := newUseCase(store, payer).RunVesting(context.Background(), commands.RunVestingCommand{})
	if !errors.Is(err, domainerrors.ErrEnumerationFailed) {
		t.Fatalf("expected ErrEnumerationFailed, got %v", err)
	}
	if len(payer.releases) != 0 {
		t.Fatalf("enumeration failure must abort before any release")
	}
}
