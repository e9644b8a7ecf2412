package credit

import "errors"

var (
	// ErrInsufficientCredits is returned when user doesn't have enough credits
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrInvalidKind is returned when a credit is requested with a non-credit
	// transaction type
	ErrInvalidKind = errors.New("invalid kind: must be purchase or bonus")

	ErrInternal = errors.New("internal error")
)
