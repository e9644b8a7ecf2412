package credit_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/fastform/fastform-api/internal/domain/credit"
	"github.com/fastform/fastform-api/internal/middleware"
)

type stubService struct {
	balance      int
	transactions []credit.Transaction
}

func (s *stubService) GetBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.balance, nil
}

func (s *stubService) GetSummary(ctx context.Context, userID uuid.UUID) (*credit.UserCredits, error) {
	return &credit.UserCredits{UserID: userID.String(), Balance: s.balance, UpdatedAt: time.Now()}, nil
}

func (s *stubService) Debit(ctx context.Context, userID uuid.UUID, amount int, reason string) error {
	return nil
}

func (s *stubService) Credit(ctx context.Context, userID uuid.UUID, amount int, kind credit.TxType, paymentID *string, description string) (bool, error) {
	return true, nil
}

func (s *stubService) HasProcessedPayment(ctx context.Context, userID uuid.UUID, paymentID string) (bool, error) {
	return false, nil
}

func (s *stubService) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]credit.Transaction, error) {
	if limit < len(s.transactions) {
		return s.transactions[:limit], nil
	}
	return s.transactions, nil
}

// passthroughAuth injects a fixed user id the way the JWT middleware would.
func passthroughAuth(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestBalanceEndpoint(t *testing.T) {
	userID := uuid.New()
	handler := credit.NewHandler(&stubService{balance: 42})
	router := handler.Routes(passthroughAuth(userID))

	req := httptest.NewRequest(http.MethodGet, "/balance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Balance int `json:"balance"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success=true")
	}
	if resp.Data.Balance != 42 {
		t.Fatalf("expected balance 42, got %d", resp.Data.Balance)
	}
}

func TestTransactionsEndpointLimitCap(t *testing.T) {
	userID := uuid.New()
	transactions := make([]credit.Transaction, 150)
	for i := range transactions {
		transactions[i] = credit.Transaction{ID: uuid.New().String(), UserID: userID.String(), TxType: "usage", Amount: 1}
	}
	handler := credit.NewHandler(&stubService{transactions: transactions})
	router := handler.Routes(passthroughAuth(userID))

	req := httptest.NewRequest(http.MethodGet, "/transactions?limit=500", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data []credit.Transaction `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	// Out-of-range limit falls back to the default of 20.
	if len(resp.Data) != 20 {
		t.Fatalf("expected default limit of 20 transactions, got %d", len(resp.Data))
	}
}

func TestEndpointsRequireUser(t *testing.T) {
	handler := credit.NewHandler(&stubService{})
	// No auth middleware injecting a user id.
	router := handler.Routes(func(next http.Handler) http.Handler { return next })

	for _, path := range []string{"/", "/balance", "/transactions"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, rec.Code)
		}
	}
}
