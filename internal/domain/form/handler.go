package form

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fastform/fastform-api/internal/domain/credit"
	"github.com/fastform/fastform-api/internal/middleware"
	"github.com/fastform/fastform-api/internal/pkg/formservice"
	"github.com/fastform/fastform-api/internal/pkg/response"
	"github.com/fastform/fastform-api/internal/pkg/validator"
)

// Handler handles metered form action requests
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type chatRequest struct {
	SessionID string `json:"session_id" validate:"required"`
	Message   string `json:"message" validate:"required"`
}

type generateRequest struct {
	Source      string                 `json:"source" validate:"form_source"`
	Title       string                 `json:"title" validate:"required"`
	Description string                 `json:"description"`
	Questions   []formservice.Question `json:"questions"`
}

type questionsRequest struct {
	Questions []formservice.Question `json:"questions" validate:"required,min=1"`
}

// Chat handles POST /forms/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req chatRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	out, err := h.svc.SendChatMessage(r.Context(), userID, req.SessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, out)
}

// Generate handles POST /forms/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req generateRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	out, err := h.svc.GenerateForm(r.Context(), userID, formservice.FormSpec{
		Title:       req.Title,
		Description: req.Description,
		Questions:   req.Questions,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, out)
}

// Publish handles POST /forms/{formID}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	out, err := h.svc.PublishForm(r.Context(), userID, chi.URLParam(r, "formID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, out)
}

// ExtraQuestions handles POST /forms/{formID}/questions
func (h *Handler) ExtraQuestions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req questionsRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	out, err := h.svc.AddExtraQuestions(r.Context(), userID, chi.URLParam(r, "formID"), req.Questions)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, credit.ErrInsufficientCredits):
		response.PaymentRequired(w, "insufficient credits, purchase more to continue")
	case errors.Is(err, ErrInvalidSpec):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrCreationFailed):
		log.Error().Err(err).Msg("Form creation service call failed")
		response.ServiceUnavailable(w, "form creation is temporarily unavailable, credits were not charged")
	default:
		log.Error().Err(err).Msg("Form action failed")
		response.InternalError(w)
	}
}

// Routes returns the form router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/chat", h.Chat)
	r.Post("/generate", h.Generate)
	r.Post("/{formID}/publish", h.Publish)
	r.Post("/{formID}/questions", h.ExtraQuestions)
	return r
}
