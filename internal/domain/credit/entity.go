package credit

import "time"

// TxType defines supported credit transaction types.
type TxType string

const (
	TxTypePurchase TxType = "purchase"
	TxTypeUsage    TxType = "usage"
	TxTypeBonus    TxType = "bonus"
)

// TxStatus defines transaction statuses. The schema admits pending and
// failed rows; this service only ever writes completed ones.
type TxStatus string

const (
	TxStatusCompleted TxStatus = "completed"
)

// UserCredits is the per-user balance record. Counters are monotonic;
// balance never goes below zero.
type UserCredits struct {
	UserID         string    `db:"user_id" json:"user_id"`
	Balance        int       `db:"balance" json:"balance"`
	TotalEarned    int       `db:"total_earned" json:"total_earned"`
	TotalPurchased int       `db:"total_purchased" json:"total_purchased"`
	TotalUsed      int       `db:"total_used" json:"total_used"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger row. PaymentID is set only for
// purchases and acts as the idempotency key.
type Transaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	TxType      string    `db:"tx_type" json:"type"`
	Amount      int       `db:"amount" json:"amount"`
	PaymentID   *string   `db:"payment_id" json:"payment_id,omitempty"`
	Status      string    `db:"status" json:"status"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"date"`
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}
