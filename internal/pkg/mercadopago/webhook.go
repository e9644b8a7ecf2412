package mercadopago

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Notification types sent to the webhook endpoint
const (
	NotificationTypePayment      = "payment"
	NotificationTypeSubscription = "subscription"
	NotificationTypePreference   = "preference"
)

// WebhookNotification represents the gateway's webhook payload.
// Only data.id is guaranteed; the full payment must be fetched back
// from the gateway before trusting its status.
type WebhookNotification struct {
	ID     int64       `json:"id"`
	Type   string      `json:"type"`
	Action string      `json:"action"`
	Data   WebhookData `json:"data"`
}

// WebhookData carries the referenced resource id.
type WebhookData struct {
	ID string `json:"id"`
}

// ParseWebhook parses a raw webhook body into a notification.
// A syntactically invalid payload is an error the caller should answer
// with 4xx so the gateway stops redelivering it.
func ParseWebhook(body []byte) (*WebhookNotification, error) {
	var n WebhookNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("invalid webhook payload: %w", err)
	}

	if strings.TrimSpace(n.Type) == "" {
		return nil, fmt.Errorf("invalid webhook payload: type is required")
	}
	if n.Type == NotificationTypePayment && strings.TrimSpace(n.Data.ID) == "" {
		return nil, fmt.Errorf("invalid webhook payload: data.id is required for payment notifications")
	}

	return &n, nil
}
