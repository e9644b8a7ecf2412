package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// service implements the Service interface
type service struct {
	repo Repository
}

// NewService creates a new credit service. signupBonus is granted on the
// first access to a user's balance.
func NewService(db *sqlx.DB, signupBonus int) Service {
	return &service{
		repo: NewRepository(db, signupBonus),
	}
}

// NewServiceWithRepository wires an explicit repository (used in tests).
func NewServiceWithRepository(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	summary, err := s.repo.GetSummary(ctx, userID.String())
	if err != nil {
		return 0, err
	}
	return summary.Balance, nil
}

func (s *service) GetSummary(ctx context.Context, userID uuid.UUID) (*UserCredits, error) {
	return s.repo.GetSummary(ctx, userID.String())
}

// Debit deducts credits for a metered action. The repository's conditional
// update guarantees the balance never goes negative under concurrency.
func (s *service) Debit(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.Debit(ctx, userID.String(), amount, reason)
}

// Credit adds credits from a purchase or bonus. Duplicate payment ids are
// collapsed to a single completed transaction; the second call reports
// applied=false without error.
func (s *service) Credit(ctx context.Context, userID uuid.UUID, amount int, kind TxType, paymentID *string, description string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if kind != TxTypePurchase && kind != TxTypeBonus {
		return false, ErrInvalidKind
	}
	return s.repo.Credit(ctx, userID.String(), amount, string(kind), paymentID, description)
}

func (s *service) HasProcessedPayment(ctx context.Context, userID uuid.UUID, paymentID string) (bool, error) {
	return s.repo.HasProcessedPayment(ctx, userID.String(), paymentID)
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}

	return s.repo.ListTransactions(ctx, userID.String(), Pagination{
		Limit:  limit,
		Offset: offset,
	})
}
