package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fastform/fastform-api/internal/domain/credit"
	"github.com/fastform/fastform-api/internal/pkg/mercadopago"
)

// Gateway is the slice of the MercadoPago client the reconciliation flow
// needs; narrowed to an interface so tests can fake it.
type Gateway interface {
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
}

// Config holds checkout URL configuration
type Config struct {
	FrontendURL string
	BackendURL  string
}

// Service bridges gateway notifications and client polls into a single
// idempotent credit grant. All de-duplication lives in the credit ledger;
// this service never tracks payment state of its own.
type Service struct {
	gateway Gateway
	credits credit.Service
	cfg     Config
}

// NewService creates a payment reconciliation service
func NewService(gateway Gateway, credits credit.Service, cfg Config) *Service {
	return &Service{gateway: gateway, credits: credits, cfg: cfg}
}

// CreateCheckout validates the purchase and creates a gateway checkout
// preference. The external reference encodes userID and quantity so the
// webhook path can apply the grant without extra lookups.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, purchase PurchaseSpec) (*CheckoutResult, error) {
	if purchase.Quantity <= 0 || purchase.UnitPrice <= 0 {
		return nil, ErrInvalidPurchase
	}

	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceRequest{
		Items: []mercadopago.PreferenceItem{{
			Title:      fmt.Sprintf("FastForm credits x%d", purchase.Quantity),
			Quantity:   1,
			UnitPrice:  purchase.TotalPrice(),
			CurrencyID: "USD",
		}},
		ExternalReference: buildExternalReference(userID, purchase.Quantity),
		BackURLs: mercadopago.BackURLs{
			Success: s.cfg.FrontendURL + "/credits/success",
			Failure: s.cfg.FrontendURL + "/credits/failure",
			Pending: s.cfg.FrontendURL + "/credits/pending",
		},
		NotificationURL: s.cfg.BackendURL + "/webhooks/mercadopago",
		AutoReturn:      "approved",
	})
	if err != nil {
		if errors.Is(err, mercadopago.ErrUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	return &CheckoutResult{
		PreferenceID: pref.ID,
		RedirectURL:  pref.InitPoint,
		TotalPrice:   purchase.TotalPrice(),
	}, nil
}

// VerifyAndApply fetches the live payment status and applies the credit
// grant when approved. Pending and rejected are reported as non-error
// no-ops. Safe to call concurrently with webhook delivery for the same
// payment id: the ledger collapses the race to one completed transaction.
func (s *Service) VerifyAndApply(ctx context.Context, userID uuid.UUID, paymentID string, purchase PurchaseSpec) (*VerifyResult, error) {
	if purchase.Quantity <= 0 {
		return nil, ErrInvalidPurchase
	}

	p, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrUnavailable) {
			// A timeout never means "not approved"; surface it so the
			// client re-polls.
			return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	// The external reference set at checkout is authoritative over the
	// client-supplied quantity, and a payment made by another user is
	// rejected outright.
	quantity := purchase.Quantity
	if refUserID, refQuantity, refErr := parseExternalReference(p.ExternalReference); refErr == nil {
		if refUserID != userID {
			return nil, fmt.Errorf("%w: payment belongs to a different user", ErrInvalidPurchase)
		}
		quantity = refQuantity
	}

	return s.apply(ctx, userID, paymentID, quantity, p.Status)
}

// CheckAlreadyProcessed lets the client short-circuit before starting a
// new gateway redirect for a payment that already landed.
func (s *Service) CheckAlreadyProcessed(ctx context.Context, userID uuid.UUID, paymentID string) (bool, error) {
	return s.credits.HasProcessedPayment(ctx, userID, paymentID)
}

// HandleWebhook processes one gateway notification. Payment notifications
// resolve the full payment back from the gateway and route by its own
// status; everything else is logged and ignored. Errors returned here are
// swallowed by the HTTP handler (2xx + log) because gateway redelivery plus
// the ledger's idempotency key make retries safe.
func (s *Service) HandleWebhook(ctx context.Context, n *mercadopago.WebhookNotification) error {
	if n.Type != mercadopago.NotificationTypePayment {
		log.Info().
			Str("type", n.Type).
			Str("action", n.Action).
			Msg("Ignoring non-payment webhook notification")
		return nil
	}

	p, err := s.gateway.GetPayment(ctx, n.Data.ID)
	if err != nil {
		if errors.Is(err, mercadopago.ErrUnavailable) {
			return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		return err
	}

	userID, quantity, err := parseExternalReference(p.ExternalReference)
	if err != nil {
		log.Warn().
			Str("payment_id", n.Data.ID).
			Str("external_reference", p.ExternalReference).
			Msg("Webhook payment has unusable external reference, skipping")
		return nil
	}

	result, err := s.apply(ctx, userID, n.Data.ID, quantity, p.Status)
	if err != nil {
		return err
	}

	log.Info().
		Str("payment_id", n.Data.ID).
		Str("user_id", userID.String()).
		Str("status", result.Status).
		Bool("applied", result.Applied).
		Msg("Webhook payment notification processed")

	return nil
}

// apply routes a payment status into the three terminal branches.
func (s *Service) apply(ctx context.Context, userID uuid.UUID, paymentID string, quantity int, status string) (*VerifyResult, error) {
	switch status {
	case mercadopago.StatusApproved:
		applied, err := s.credits.Credit(ctx, userID, quantity, credit.TxTypePurchase, &paymentID,
			fmt.Sprintf("credit purchase x%d", quantity))
		if err != nil {
			return nil, err
		}
		if !applied {
			log.Info().
				Str("payment_id", paymentID).
				Str("user_id", userID.String()).
				Msg("Payment already credited, duplicate ignored")
		}
		return &VerifyResult{Applied: applied, Status: status}, nil

	case mercadopago.StatusPending, mercadopago.StatusInProcess:
		// Not terminal; the caller may poll again or wait for a webhook.
		return &VerifyResult{Applied: false, Status: status}, nil

	default:
		// rejected, cancelled, refunded: expected terminal outcomes,
		// no credit applied, not an error.
		return &VerifyResult{Applied: false, Status: status}, nil
	}
}
