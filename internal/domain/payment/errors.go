package payment

import "errors"

var (
	// ErrInvalidPurchase is returned when the purchase spec is missing
	// quantity or price; rejected before any ledger mutation.
	ErrInvalidPurchase = errors.New("invalid purchase: quantity and unit price must be greater than 0")

	// ErrGatewayUnavailable wraps gateway timeouts and transport failures.
	// Transient: the caller retries via webhook redelivery or re-poll.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)
