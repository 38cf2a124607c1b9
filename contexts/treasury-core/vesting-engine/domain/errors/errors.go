package errors

import "errors"

var (
	ErrInvalidVestingInput = errors.New("vesting input is invalid")
	ErrRunInProgress       = errors.New("a vesting run is already in progress")
	ErrEnumerationFailed   = errors.New("vesting account enumeration failed")
)
