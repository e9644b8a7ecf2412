package mercadopago_test

import (
	"testing"

	"github.com/fastform/fastform-api/internal/pkg/mercadopago"
)

func TestParseWebhook(t *testing.T) {
	body := []byte(`{
		"id": 987654,
		"type": "payment",
		"action": "payment.updated",
		"data": {"id": "12345"}
	}`)

	n, err := mercadopago.ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != mercadopago.NotificationTypePayment {
		t.Fatalf("expected payment type, got %q", n.Type)
	}
	if n.Data.ID != "12345" {
		t.Fatalf("expected data.id 12345, got %q", n.Data.ID)
	}
}

func TestParseWebhookNonPaymentWithoutDataID(t *testing.T) {
	// Only payment notifications require data.id.
	n, err := mercadopago.ParseWebhook([]byte(`{"type":"preference"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Type != mercadopago.NotificationTypePreference {
		t.Fatalf("expected preference type, got %q", n.Type)
	}
}

func TestParseWebhookInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{broken`},
		{"empty object", `{}`},
		{"blank type", `{"type":"  "}`},
		{"payment without data id", `{"type":"payment","data":{"id":""}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mercadopago.ParseWebhook([]byte(tt.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
