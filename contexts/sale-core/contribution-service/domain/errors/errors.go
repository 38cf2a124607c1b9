package errors

import "errors"

var (
	ErrInvalidContributionInput = errors.New("contribution input is invalid")
	ErrDuplicateContribution    = errors.New("contribution external reference already recorded")
	ErrAccountNotFound          = errors.New("sale account not found")
)
