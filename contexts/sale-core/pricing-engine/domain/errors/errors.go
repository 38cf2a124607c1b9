package errors

import "errors"

var (
	ErrInvalidAmount  = errors.New("pricing amount must be a positive number")
	ErrPoolUnreadable = errors.New("pool snapshot is unavailable")
)
