package credit

import (
	"context"

	"github.com/google/uuid"
)

// Service interface defines the credit ledger operations.
// All balance mutation in the system goes through Debit and Credit.
type Service interface {
	// GetBalance returns the current balance, lazily creating the user's
	// record (seeded with the signup bonus) on first access.
	GetBalance(ctx context.Context, userID uuid.UUID) (int, error)

	// GetSummary returns the full balance record with accounting counters.
	GetSummary(ctx context.Context, userID uuid.UUID) (*UserCredits, error)

	// Debit atomically deducts credits from a user.
	// Returns ErrInsufficientCredits if balance is insufficient.
	Debit(ctx context.Context, userID uuid.UUID, amount int, reason string) error

	// Credit atomically adds credits to a user. When paymentID is set and a
	// completed purchase with that id already exists, the call is an
	// idempotent no-op and returns applied=false with no error.
	Credit(ctx context.Context, userID uuid.UUID, amount int, kind TxType, paymentID *string, description string) (applied bool, err error)

	// HasProcessedPayment reports whether a completed purchase transaction
	// with the given external payment id exists.
	HasProcessedPayment(ctx context.Context, userID uuid.UUID, paymentID string) (bool, error)

	// ListTransactions returns paginated transaction history for a user
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)
}
