package ports

import (
	"context"
	"time"

	contractsv1 "tidepool/contracts/gen/events/v1"
)

// Account is the vesting view of a pioneer wallet.
type Account struct {
	Address           string
	Allocated         float64
	Released          float64
	TranchesCompleted int
}

type AccountStore interface {
	// ListVestable enumerates accounts with a positive contribution,
	// fewer than the maximum tranches, and no whale flag. An error here
	// aborts the run before any account work.
	ListVestable(ctx context.Context) ([]Account, error)
	// ApplyRelease persists a confirmed tranche: cumulative released
	// amount, incremented tranche counter, release timestamp.
	ApplyRelease(ctx context.Context, address string, newReleased float64, tranchesCompleted int, releasedAt time.Time) error
}

// ReleasePayer is the payout subsystem seen from this engine.
type ReleasePayer interface {
	PayRelease(ctx context.Context, address string, gross float64, memo string) (reference string, err error)
}

type RunLockStore interface {
	AcquireRunLock(ctx context.Context, name string, owner string, lease time.Duration) (bool, error)
	ReleaseRunLock(ctx context.Context, name string, owner string) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope = contractsv1.Envelope

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}
