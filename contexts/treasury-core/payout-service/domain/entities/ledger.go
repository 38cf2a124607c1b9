package entities

import "time"

type LedgerKind string

const (
	LedgerKindContribution   LedgerKind = "CONTRIBUTION"
	LedgerKindRefund         LedgerKind = "REFUND"
	LedgerKindDividend       LedgerKind = "DIVIDEND"
	LedgerKindVestingRelease LedgerKind = "VESTING_RELEASE"
)

type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "PENDING"
	LedgerStatusCompleted LedgerStatus = "COMPLETED"
	LedgerStatusFailed    LedgerStatus = "FAILED"
)

// LedgerEntry is one money movement attempt. Append-mostly: status moves
// PENDING -> COMPLETED | FAILED at most once, then the row is frozen.
type LedgerEntry struct {
	EntryID           string
	Address           string
	Amount            float64
	Kind              LedgerKind
	Status            LedgerStatus
	ExternalReference string
	Memo              string
	Reconciled        bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (e LedgerEntry) IsTerminal() bool {
	return e.Status == LedgerStatusCompleted || e.Status == LedgerStatusFailed
}

func ValidKind(kind LedgerKind) bool {
	switch kind {
	case LedgerKindContribution, LedgerKindRefund, LedgerKindDividend, LedgerKindVestingRelease:
		return true
	default:
		return false
	}
}
