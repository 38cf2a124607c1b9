package ports

import (
	"context"
	"time"

	contractsv1 "tidepool/contracts/gen/events/v1"
)

// Account is the dividend view of a pioneer wallet.
type Account struct {
	Address   string
	Allocated float64
}

type AccountStore interface {
	// ListHolders enumerates accounts with a positive contribution. An
	// error here aborts the run before any account work.
	ListHolders(ctx context.Context) ([]Account, error)
}

// DividendPayer is the payout subsystem seen from this engine.
type DividendPayer interface {
	PayDividend(ctx context.Context, address string, gross float64, memo string) (reference string, err error)
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
