package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Payment statuses reported by the gateway
const (
	StatusApproved   = "approved"
	StatusPending    = "pending"
	StatusInProcess  = "in_process"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
	StatusChargeback = "charged_back"
)

// ErrUnavailable indicates the gateway could not be reached or timed out.
// Callers must treat this as transient and retry (webhook redelivery or
// client re-poll), never as a payment rejection.
var ErrUnavailable = errors.New("mercadopago: gateway unavailable")

// Config holds MercadoPago API configuration
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

// Client represents MercadoPago payment gateway client
type Client struct {
	httpClient *http.Client
	config     Config
}

// Payment represents a payment resource fetched from the gateway
type Payment struct {
	ID                int64   `json:"id"`
	Status            string  `json:"status"`
	StatusDetail      string  `json:"status_detail"`
	ExternalReference string  `json:"external_reference"`
	TransactionAmount float64 `json:"transaction_amount"`
}

// PreferenceItem is a single line item in a checkout preference
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

// BackURLs are the return URLs the gateway redirects the payer to
type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// PreferenceRequest represents a checkout preference creation request
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	BackURLs          BackURLs         `json:"back_urls"`
	NotificationURL   string           `json:"notification_url,omitempty"`
	AutoReturn        string           `json:"auto_return,omitempty"`
}

// Preference represents a created checkout preference
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

// NewClient creates new MercadoPago API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// GetPayment fetches the live payment resource by id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, fmt.Errorf("validation error: payment_id must be non-empty")
	}
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/v1/payments/" + url.PathEscape(paymentID)

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var out Payment
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse mercadopago payment: %w", err)
	}

	return &out, nil
}

// CreatePreference creates a checkout preference and returns the redirect URL
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("validation error: items must be non-empty")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("validation error: item quantity must be > 0")
		}
		if item.UnitPrice <= 0 {
			return nil, fmt.Errorf("validation error: item unit_price must be > 0")
		}
	}
	if err := c.checkConfig(); err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preference request: %w", err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/checkout/preferences"

	body, err := c.do(ctx, http.MethodPost, endpoint, jsonData)
	if err != nil {
		return nil, err
	}

	var out Preference
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse mercadopago preference: %w", err)
	}

	return &out, nil
}

func (c *Client) checkConfig() error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("mercadopago client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("mercadopago config error: base_url is empty")
	}
	if strings.TrimSpace(c.config.AccessToken) == "" {
		return fmt.Errorf("mercadopago config error: access_token is empty")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewBuffer(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("mercadopago api returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
