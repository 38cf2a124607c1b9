// Package payoutservice implements the application-to-user (A2U) payout
// subsystem shared by the settlement, vesting, and dividend engines.
//
// Every money movement attempt is recorded as a ledger entry before the
// external payment network is called, so an attempted-but-unconfirmed payout
// stays auditable across a crash. Entries transition PENDING to COMPLETED or
// FAILED exactly once and are never mutated afterwards. Retry policy belongs
// to callers; a reconciliation sweep surfaces FAILED entries for operators.
package payoutservice
