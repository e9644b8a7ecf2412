package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fastform/fastform-api/internal/middleware"
	"github.com/fastform/fastform-api/internal/pkg/mercadopago"
	"github.com/fastform/fastform-api/internal/pkg/response"
	"github.com/fastform/fastform-api/internal/pkg/validator"
)

// Handler handles payment HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates payment handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type checkoutRequest struct {
	Quantity        int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice       float64 `json:"unit_price" validate:"required,gt=0"`
	PackSize        int     `json:"pack_size" validate:"credit_pack"`
	DiscountPercent float64 `json:"discount_percent" validate:"gte=0,lte=100"`
}

type verifyRequest struct {
	PaymentID string  `json:"payment_id" validate:"required"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price"`
}

// Checkout handles POST /payments/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req checkoutRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	out, err := h.service.CreateCheckout(r.Context(), userID, PurchaseSpec{
		Quantity:        req.Quantity,
		UnitPrice:       req.UnitPrice,
		PackSize:        req.PackSize,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPurchase):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrGatewayUnavailable):
			response.ServiceUnavailable(w, "payment gateway unavailable, please try again later")
		default:
			log.Error().Err(err).Msg("Checkout creation failed")
			response.InternalError(w)
		}
		return
	}

	response.Created(w, out)
}

// Verify handles POST /payments/verify — the client poll half of the
// reconciliation race. Converges with webhook delivery via the ledger.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req verifyRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	out, err := h.service.VerifyAndApply(r.Context(), userID, req.PaymentID, PurchaseSpec{
		Quantity:  req.Quantity,
		UnitPrice: req.UnitPrice,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPurchase):
			response.BadRequest(w, err.Error())
		case errors.Is(err, ErrGatewayUnavailable):
			response.ServiceUnavailable(w, "payment gateway unavailable, please try again later")
		default:
			log.Error().Err(err).Str("payment_id", req.PaymentID).Msg("Payment verification failed")
			response.InternalError(w)
		}
		return
	}

	response.OK(w, out)
}

// Processed handles GET /payments/{paymentID}/processed
func (h *Handler) Processed(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	paymentID := chi.URLParam(r, "paymentID")
	if paymentID == "" {
		response.BadRequest(w, "payment id is required")
		return
	}

	processed, err := h.service.CheckAlreadyProcessed(r.Context(), userID, paymentID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]bool{"processed": processed})
}

// Webhook handles POST /webhooks/mercadopago. Malformed payloads get a 4xx
// so the gateway stops redelivering them; everything else is acknowledged
// with 2xx — downstream failures are retried through gateway redelivery and
// made safe by the ledger's idempotency key.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "unreadable body")
		return
	}
	defer r.Body.Close()

	notification, err := mercadopago.ParseWebhook(body)
	if err != nil {
		response.BadRequest(w, "invalid webhook payload")
		return
	}

	if err := h.service.HandleWebhook(r.Context(), notification); err != nil {
		log.Error().
			Err(err).
			Str("type", notification.Type).
			Str("data_id", notification.Data.ID).
			Msg("Webhook processing failed, acknowledging for redelivery")
	}

	response.OK(w, map[string]string{"status": "ok"})
}

// Routes returns the authenticated payment router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/checkout", h.Checkout)
	r.Post("/verify", h.Verify)
	r.Get("/{paymentID}/processed", h.Processed)
	return r
}

// WebhookRoutes returns the webhook router (no auth)
func (h *Handler) WebhookRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/mercadopago", h.Webhook)
	return r
}
