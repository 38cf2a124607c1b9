package errors

import "errors"

var (
	ErrInvalidPayoutInput  = errors.New("payout input is invalid")
	ErrAmountBelowFee      = errors.New("payout amount does not cover the network fee")
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")
	ErrLedgerEntryTerminal = errors.New("ledger entry already reached a terminal status")
	ErrPaymentRejected     = errors.New("external payment network rejected the transfer")
)
