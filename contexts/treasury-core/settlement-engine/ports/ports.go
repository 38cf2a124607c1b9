package ports

import (
	"context"
	"time"

	contractsv1 "tidepool/contracts/gen/events/v1"
)

// Account is the settlement view of a pioneer wallet.
type Account struct {
	Address     string
	Contributed float64
}

type AccountStore interface {
	// SumContributed derives the final pool when the trigger does not
	// supply one.
	SumContributed(ctx context.Context) (float64, error)
	// ListContributedAbove enumerates accounts strictly above the
	// threshold. An error here aborts the run before any account work.
	ListContributedAbove(ctx context.Context, threshold float64) ([]Account, error)
	// ApplyTrimBack persists the post-refund account state: contributed
	// clamped to the threshold, whale flag set, settlement timestamp.
	ApplyTrimBack(ctx context.Context, address string, newContributed float64, settledAt time.Time) error
	// ClearWhaleFlagsAtOrBelow resets the advisory whale flag on every
	// account at or under the final threshold. Mid-sale flagging is
	// provisional; the flag is only authoritative once settlement has run.
	ClearWhaleFlagsAtOrBelow(ctx context.Context, threshold float64, clearedAt time.Time) (int, error)
}

// RefundPayer is the payout subsystem seen from this engine.
type RefundPayer interface {
	PayRefund(ctx context.Context, address string, gross float64, memo string) (reference string, err error)
}

// RunLockStore serializes engine runs across trigger sources. The lease
// bounds how long a crashed run can hold the lock.
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
