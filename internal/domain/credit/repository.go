package credit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository provides credit ledger and balance operations.
type Repository interface {
	GetSummary(ctx context.Context, userID string) (*UserCredits, error)
	Debit(ctx context.Context, userID string, amount int, reason string) error
	Credit(ctx context.Context, userID string, amount int, txType string, paymentID *string, description string) (bool, error)
	HasProcessedPayment(ctx context.Context, userID, paymentID string) (bool, error)
	ListTransactions(ctx context.Context, userID string, pagination Pagination) ([]Transaction, error)
}

// CreditRepository is the PostgreSQL implementation of Repository.
//
// Tables:
//
//	user_credits(user_id PK, balance, total_earned, total_purchased,
//	             total_used, updated_at)
//	credit_transactions(id PK, user_id, tx_type, amount, payment_id,
//	                    status, description, created_at)
//	UNIQUE INDEX uq_credit_tx_payment ON credit_transactions (payment_id)
//	             WHERE payment_id IS NOT NULL
//
// The partial unique index is the payment idempotency key.
type CreditRepository struct {
	db          *sqlx.DB
	signupBonus int
}

func NewRepository(db *sqlx.DB, signupBonus int) *CreditRepository {
	return &CreditRepository{db: db, signupBonus: signupBonus}
}

// GetSummary returns the user's balance record, materializing it with the
// signup bonus on first access.
func (r *CreditRepository) GetSummary(ctx context.Context, userID string) (*UserCredits, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.ensure(ctx2, tx, userID); err != nil {
		return nil, err
	}

	var out UserCredits
	err = tx.GetContext(ctx2, &out, `
		SELECT user_id, balance, total_earned, total_purchased, total_used, updated_at
		FROM user_credits
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: get summary", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return &out, nil
}

// Debit performs the atomic conditional decrement. The balance check and the
// decrement are a single UPDATE so concurrent debits cannot jointly overdraw.
func (r *CreditRepository) Debit(ctx context.Context, userID string, amount int, reason string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.ensure(ctx2, tx, userID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx2, `
		UPDATE user_credits
		SET balance = balance - $2,
		    total_used = total_used + $2,
		    updated_at = now()
		WHERE user_id = $1 AND balance >= $2
	`, userID, amount)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrInsufficientCredits
	}

	if err := r.insertTransaction(ctx2, tx, userID, string(TxTypeUsage), amount, nil, reason); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

// Credit adds credits. With a payment id the ledger insert goes first and
// lands on the partial unique index; a conflict means the payment was already
// applied, reported as (false, nil) without touching the balance.
func (r *CreditRepository) Credit(ctx context.Context, userID string, amount int, txType string, paymentID *string, description string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if txType != string(TxTypePurchase) && txType != string(TxTypeBonus) {
		return false, ErrInvalidKind
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if err := r.ensure(ctx2, tx, userID); err != nil {
		return false, err
	}

	if paymentID != nil {
		result, err := tx.ExecContext(ctx2, `
			INSERT INTO credit_transactions (id, user_id, tx_type, amount, payment_id, status, description)
			VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
			ON CONFLICT (payment_id) WHERE payment_id IS NOT NULL DO NOTHING
		`, userID, txType, amount, *paymentID, string(TxStatusCompleted), description)
		if err != nil {
			return false, fmt.Errorf("%w: insert transaction", ErrInternal)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("%w: rows affected", ErrInternal)
		}
		if rows == 0 {
			// Already credited for this payment id. Idempotent no-op.
			if err := tx.Commit(); err != nil {
				return false, fmt.Errorf("%w: commit tx", ErrInternal)
			}
			return false, nil
		}
	} else {
		if err := r.insertTransaction(ctx2, tx, userID, txType, amount, nil, description); err != nil {
			return false, err
		}
	}

	earnedColumn := "total_earned"
	if txType == string(TxTypePurchase) {
		earnedColumn = "total_purchased"
	}

	_, err = tx.ExecContext(ctx2, `
		UPDATE user_credits
		SET balance = balance + $2,
		    `+earnedColumn+` = `+earnedColumn+` + $2,
		    updated_at = now()
		WHERE user_id = $1
	`, userID, amount)
	if err != nil {
		return false, fmt.Errorf("%w: update balance", ErrInternal)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return true, nil
}

// HasProcessedPayment reports whether a completed transaction with the given
// payment id already exists for the user.
func (r *CreditRepository) HasProcessedPayment(ctx context.Context, userID, paymentID string) (bool, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := r.db.GetContext(ctx2, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM credit_transactions
			WHERE user_id = $1 AND payment_id = $2 AND status = $3
		)
	`, userID, paymentID, string(TxStatusCompleted))
	if err != nil {
		return false, fmt.Errorf("%w: check payment", ErrInternal)
	}

	return exists, nil
}

func (r *CreditRepository) ListTransactions(ctx context.Context, userID string, pagination Pagination) ([]Transaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	transactions := make([]Transaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT id, user_id, tx_type, amount, payment_id, status, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}

// ensure materializes the user's balance row on first access, seeding the
// signup bonus and its ledger entry.
func (r *CreditRepository) ensure(ctx context.Context, tx *sqlx.Tx, userID string) error {
	result, err := tx.ExecContext(ctx, `
		INSERT INTO user_credits (user_id, balance, total_earned, total_purchased, total_used, updated_at)
		VALUES ($1, $2, $2, 0, 0, now())
		ON CONFLICT (user_id) DO NOTHING
	`, userID, r.signupBonus)
	if err != nil {
		return fmt.Errorf("%w: ensure balance row", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 1 && r.signupBonus > 0 {
		if err := r.insertTransaction(ctx, tx, userID, string(TxTypeBonus), r.signupBonus, nil, "signup bonus"); err != nil {
			return err
		}
	}

	return nil
}

func (r *CreditRepository) insertTransaction(ctx context.Context, tx *sqlx.Tx, userID, txType string, amount int, paymentID *string, description string) error {
	if description == "" {
		description = "credit balance adjustment"
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, user_id, tx_type, amount, payment_id, status, description)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)
	`, userID, txType, amount, paymentID, string(TxStatusCompleted), description)
	if err != nil {
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	return nil
}
