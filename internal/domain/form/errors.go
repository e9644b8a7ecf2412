package form

import "errors"

var (
	// ErrCreationFailed wraps form creation service failures. Any credits
	// debited for the attempt are refunded before this is returned.
	ErrCreationFailed = errors.New("form creation failed")

	// ErrInvalidSpec is returned for an empty or unusable form spec.
	ErrInvalidSpec = errors.New("invalid form spec")
)
