package errors

import "errors"

var (
	ErrInvalidDividendInput = errors.New("dividend input is invalid")
	ErrRunInProgress        = errors.New("a dividend run is already in progress")
	ErrEnumerationFailed    = errors.New("dividend account enumeration failed")
)
