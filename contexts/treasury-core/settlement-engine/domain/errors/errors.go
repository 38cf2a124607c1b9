package errors

import "errors"

var (
	ErrInvalidSettlementInput = errors.New("settlement input is invalid")
	ErrRunInProgress          = errors.New("a settlement run is already in progress")
	ErrEnumerationFailed      = errors.New("settlement account enumeration failed")
)
