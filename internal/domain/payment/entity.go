package payment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// PurchaseSpec describes a pending credit purchase. It is ephemeral: it only
// exists to compute the grant once the gateway confirms approval.
type PurchaseSpec struct {
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"required,gt=0"`
	PackSize        int     `json:"pack_size,omitempty" validate:"credit_pack"`
	DiscountPercent float64 `json:"discount_percent,omitempty" validate:"gte=0,lte=100"`
}

// TotalPrice computes the price after the pack discount.
func (p PurchaseSpec) TotalPrice() float64 {
	total := float64(p.Quantity) * p.UnitPrice
	if p.DiscountPercent > 0 {
		total = total * (1 - p.DiscountPercent/100)
	}
	return total
}

// VerifyResult reports the outcome of a reconciliation attempt.
type VerifyResult struct {
	Applied bool   `json:"applied"`
	Status  string `json:"status"`
}

// CheckoutResult is the created gateway checkout.
type CheckoutResult struct {
	PreferenceID string  `json:"preference_id"`
	RedirectURL  string  `json:"redirect_url"`
	TotalPrice   float64 `json:"total_price"`
}

// externalReference encodes userID and quantity so reconciliation is
// self-contained: a webhook alone carries enough to apply the credit.
func buildExternalReference(userID uuid.UUID, quantity int) string {
	return userID.String() + ":" + strconv.Itoa(quantity)
}

func parseExternalReference(ref string) (uuid.UUID, int, error) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return uuid.Nil, 0, fmt.Errorf("malformed external reference: %q", ref)
	}

	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("malformed external reference user id: %w", err)
	}

	quantity, err := strconv.Atoi(parts[1])
	if err != nil || quantity <= 0 {
		return uuid.Nil, 0, fmt.Errorf("malformed external reference quantity: %q", parts[1])
	}

	return userID, quantity, nil
}
