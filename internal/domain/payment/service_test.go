package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/fastform/fastform-api/internal/domain/credit"
	"github.com/fastform/fastform-api/internal/domain/payment"
	"github.com/fastform/fastform-api/internal/pkg/mercadopago"
)

/* =========================
   Fakes
   ========================= */

type fakeGateway struct {
	payments    map[string]*mercadopago.Payment
	unavailable bool
	preference  *mercadopago.Preference
	lastRequest *mercadopago.PreferenceRequest
}

func (g *fakeGateway) GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error) {
	if g.unavailable {
		return nil, mercadopago.ErrUnavailable
	}
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, errors.New("payment not found")
	}
	return p, nil
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	if g.unavailable {
		return nil, mercadopago.ErrUnavailable
	}
	g.lastRequest = &req
	return g.preference, nil
}

// fakeCredits is an in-memory ledger with the same idempotency contract as
// the real repository: one completed transaction per payment id.
type fakeCredits struct {
	mu        sync.Mutex
	balances  map[uuid.UUID]int
	processed map[string]bool
}

func newFakeCredits() *fakeCredits {
	return &fakeCredits{
		balances:  make(map[uuid.UUID]int),
		processed: make(map[string]bool),
	}
}

func (f *fakeCredits) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID], nil
}

func (f *fakeCredits) GetSummary(ctx context.Context, userID uuid.UUID) (*credit.UserCredits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &credit.UserCredits{UserID: userID.String(), Balance: f.balances[userID]}, nil
}

func (f *fakeCredits) Debit(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return credit.ErrInsufficientCredits
	}
	f.balances[userID] -= amount
	return nil
}

func (f *fakeCredits) Credit(ctx context.Context, userID uuid.UUID, amount int, kind credit.TxType, paymentID *string, description string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if paymentID != nil {
		if f.processed[*paymentID] {
			return false, nil
		}
		f.processed[*paymentID] = true
	}
	f.balances[userID] += amount
	return true, nil
}

func (f *fakeCredits) HasProcessedPayment(ctx context.Context, userID uuid.UUID, paymentID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processed[paymentID], nil
}

func (f *fakeCredits) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]credit.Transaction, error) {
	return nil, nil
}

func newTestService(gateway *fakeGateway, credits *fakeCredits) *payment.Service {
	return payment.NewService(gateway, credits, payment.Config{
		FrontendURL: "https://app.fastform.test",
		BackendURL:  "https://api.fastform.test",
	})
}

/* =========================
   VerifyAndApply
   ========================= */

func TestVerifyApprovedAppliesOnce(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"12345": {ID: 12345, Status: mercadopago.StatusApproved},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	result, err := service.VerifyAndApply(context.Background(), userID, "12345", payment.PurchaseSpec{Quantity: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected first verify to apply")
	}
	if result.Status != mercadopago.StatusApproved {
		t.Fatalf("expected status approved, got %q", result.Status)
	}

	// Second verify for the same payment is a no-op.
	result, err = service.VerifyAndApply(context.Background(), userID, "12345", payment.PurchaseSpec{Quantity: 25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Fatal("expected duplicate verify to be a no-op")
	}

	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 25 {
		t.Fatalf("expected balance 25, got %d", balance)
	}
}

func TestVerifyPendingThenApproved(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"777": {ID: 777, Status: mercadopago.StatusPending},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	result, err := service.VerifyAndApply(context.Background(), userID, "777", payment.PurchaseSpec{Quantity: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Fatal("pending payment must not apply credits")
	}

	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 0 {
		t.Fatalf("expected balance 0 while pending, got %d", balance)
	}

	gateway.payments["777"].Status = mercadopago.StatusApproved

	result, err = service.VerifyAndApply(context.Background(), userID, "777", payment.PurchaseSpec{Quantity: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected approved payment to apply")
	}

	balance, _ = credits.GetBalance(context.Background(), userID)
	if balance != 10 {
		t.Fatalf("expected balance 10, got %d", balance)
	}
}

func TestVerifyRejectedIsNonErrorNoOp(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"900": {ID: 900, Status: mercadopago.StatusRejected},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	result, err := service.VerifyAndApply(context.Background(), userID, "900", payment.PurchaseSpec{Quantity: 10})
	if err != nil {
		t.Fatalf("rejected payment should not be an error, got %v", err)
	}
	if result.Applied {
		t.Fatal("rejected payment must not apply credits")
	}
	if result.Status != mercadopago.StatusRejected {
		t.Fatalf("expected status rejected, got %q", result.Status)
	}
}

func TestVerifyInvalidQuantity(t *testing.T) {
	service := newTestService(&fakeGateway{}, newFakeCredits())

	_, err := service.VerifyAndApply(context.Background(), uuid.New(), "1", payment.PurchaseSpec{Quantity: 0})
	if !errors.Is(err, payment.ErrInvalidPurchase) {
		t.Fatalf("expected ErrInvalidPurchase, got %v", err)
	}
}

func TestVerifyUsesCheckoutReferenceQuantity(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"321": {ID: 321, Status: mercadopago.StatusApproved, ExternalReference: userID.String() + ":25"},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	// Inflated client quantity is overridden by what checkout recorded.
	result, err := service.VerifyAndApply(context.Background(), userID, "321", payment.PurchaseSpec{Quantity: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected verify to apply")
	}

	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 25 {
		t.Fatalf("expected checkout quantity of 25 credited, got %d", balance)
	}
}

func TestVerifyRejectsForeignPayment(t *testing.T) {
	userID := uuid.New()
	otherUser := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"322": {ID: 322, Status: mercadopago.StatusApproved, ExternalReference: otherUser.String() + ":25"},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	_, err := service.VerifyAndApply(context.Background(), userID, "322", payment.PurchaseSpec{Quantity: 25})
	if !errors.Is(err, payment.ErrInvalidPurchase) {
		t.Fatalf("expected ErrInvalidPurchase for another user's payment, got %v", err)
	}

	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 0 {
		t.Fatalf("expected no credit, got %d", balance)
	}
}

func TestVerifyGatewayUnavailable(t *testing.T) {
	userID := uuid.New()
	credits := newFakeCredits()
	service := newTestService(&fakeGateway{unavailable: true}, credits)

	_, err := service.VerifyAndApply(context.Background(), userID, "12345", payment.PurchaseSpec{Quantity: 10})
	if !errors.Is(err, payment.ErrGatewayUnavailable) {
		t.Fatalf("expected ErrGatewayUnavailable, got %v", err)
	}

	// A gateway timeout must never be read as a rejection.
	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 0 {
		t.Fatalf("expected balance untouched, got %d", balance)
	}
}

/* =========================
   Webhook
   ========================= */

func TestWebhookApprovedCredits(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"555": {ID: 555, Status: mercadopago.StatusApproved, ExternalReference: userID.String() + ":50"},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	err := service.HandleWebhook(context.Background(), &mercadopago.WebhookNotification{
		Type: mercadopago.NotificationTypePayment,
		Data: mercadopago.WebhookData{ID: "555"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 50 {
		t.Fatalf("expected balance 50, got %d", balance)
	}
}

func TestWebhookIgnoresNonPaymentType(t *testing.T) {
	gateway := &fakeGateway{}
	service := newTestService(gateway, newFakeCredits())

	err := service.HandleWebhook(context.Background(), &mercadopago.WebhookNotification{
		Type: mercadopago.NotificationTypePreference,
	})
	if err != nil {
		t.Fatalf("non-payment notification should be ignored, got %v", err)
	}
}

func TestWebhookSkipsUnusableExternalReference(t *testing.T) {
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"666": {ID: 666, Status: mercadopago.StatusApproved, ExternalReference: "not-a-reference"},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	err := service.HandleWebhook(context.Background(), &mercadopago.WebhookNotification{
		Type: mercadopago.NotificationTypePayment,
		Data: mercadopago.WebhookData{ID: "666"},
	})
	if err != nil {
		t.Fatalf("unusable reference should be skipped, got %v", err)
	}
}

func TestWebhookAndVerifyConverge(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{payments: map[string]*mercadopago.Payment{
		"42": {ID: 42, Status: mercadopago.StatusApproved, ExternalReference: userID.String() + ":10"},
	}}
	credits := newFakeCredits()
	service := newTestService(gateway, credits)

	err := service.HandleWebhook(context.Background(), &mercadopago.WebhookNotification{
		Type: mercadopago.NotificationTypePayment,
		Data: mercadopago.WebhookData{ID: "42"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := service.VerifyAndApply(context.Background(), userID, "42", payment.PurchaseSpec{Quantity: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Applied {
		t.Fatal("verify after webhook must be a no-op")
	}

	balance, _ := credits.GetBalance(context.Background(), userID)
	if balance != 10 {
		t.Fatalf("expected single grant of 10, got %d", balance)
	}
}

/* =========================
   Checkout
   ========================= */

func TestCreateCheckout(t *testing.T) {
	userID := uuid.New()
	gateway := &fakeGateway{preference: &mercadopago.Preference{
		ID:        "pref-1",
		InitPoint: "https://mercadopago.test/checkout/pref-1",
	}}
	service := newTestService(gateway, newFakeCredits())

	out, err := service.CreateCheckout(context.Background(), userID, payment.PurchaseSpec{
		Quantity:  25,
		UnitPrice: 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.RedirectURL != "https://mercadopago.test/checkout/pref-1" {
		t.Fatalf("unexpected redirect url: %s", out.RedirectURL)
	}
	if out.TotalPrice != 12.5 {
		t.Fatalf("expected total 12.5, got %v", out.TotalPrice)
	}

	req := gateway.lastRequest
	if req == nil {
		t.Fatal("expected a preference request")
	}
	if req.ExternalReference != userID.String()+":25" {
		t.Fatalf("unexpected external reference: %s", req.ExternalReference)
	}
	if req.NotificationURL != "https://api.fastform.test/webhooks/mercadopago" {
		t.Fatalf("unexpected notification url: %s", req.NotificationURL)
	}
}

func TestCreateCheckoutInvalidPurchase(t *testing.T) {
	service := newTestService(&fakeGateway{}, newFakeCredits())

	_, err := service.CreateCheckout(context.Background(), uuid.New(), payment.PurchaseSpec{Quantity: 0, UnitPrice: 0.5})
	if !errors.Is(err, payment.ErrInvalidPurchase) {
		t.Fatalf("expected ErrInvalidPurchase, got %v", err)
	}
}

func TestPurchaseDiscount(t *testing.T) {
	tests := []struct {
		name string
		spec payment.PurchaseSpec
		want float64
	}{
		{"no discount", payment.PurchaseSpec{Quantity: 10, UnitPrice: 0.5}, 5},
		{"ten percent", payment.PurchaseSpec{Quantity: 100, UnitPrice: 0.5, DiscountPercent: 10}, 45},
		{"full discount", payment.PurchaseSpec{Quantity: 10, UnitPrice: 1, DiscountPercent: 100}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.TotalPrice(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
