package form

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fastform/fastform-api/internal/domain/credit"
	"github.com/fastform/fastform-api/internal/domain/metering"
	"github.com/fastform/fastform-api/internal/pkg/formservice"
)

// FormCreator is the slice of the form creation service this domain needs.
type FormCreator interface {
	CreateForm(ctx context.Context, spec formservice.FormSpec) (*formservice.Form, error)
	PublishForm(ctx context.Context, formID string) (*formservice.Form, error)
	AddQuestions(ctx context.Context, formID string, questions []formservice.Question) (*formservice.Form, error)
}

// ChatResult is the outcome of one chat message: the charge applied and the
// warnings the UI should show.
type ChatResult struct {
	MessageCount int                `json:"message_count"`
	Cost         int                `json:"cost"`
	Balance      int                `json:"balance"`
	Warnings     []metering.Warning `json:"warnings,omitempty"`
}

// Service charges metered form actions against the credit ledger and calls
// the form creation collaborator only after a successful debit.
type Service struct {
	credits  credit.Service
	policy   metering.Config
	forms    FormCreator
	sessions SessionStore
}

// NewService creates a form action service
func NewService(credits credit.Service, policy metering.Config, forms FormCreator, sessions SessionStore) *Service {
	return &Service{credits: credits, policy: policy, forms: forms, sessions: sessions}
}

// SendChatMessage meters one conversational-AI message. The first N messages
// per session are free; after that each message is debited before the
// downstream call would be made.
func (s *Service) SendChatMessage(ctx context.Context, userID uuid.UUID, sessionID string) (*ChatResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrInvalidSpec)
	}

	messageCount, err := s.sessions.NextMessageCount(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	cost := s.policy.CostOf(metering.ActionChatMessage, metering.Context{MessageCount: messageCount})
	if cost > 0 {
		if err := s.credits.Debit(ctx, userID, cost, "chat message"); err != nil {
			return nil, err
		}
	}

	balance, err := s.credits.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		MessageCount: messageCount + 1,
		Cost:         cost,
		Balance:      balance,
		Warnings:     s.policy.WarningsFor(messageCount+1, balance),
	}, nil
}

// GenerateForm debits the AI generation cost and calls the form creation
// collaborator. A collaborator failure after the debit refunds the charge.
func (s *Service) GenerateForm(ctx context.Context, userID uuid.UUID, spec formservice.FormSpec) (*formservice.Form, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidSpec)
	}

	cost := s.policy.CostOf(metering.ActionGenerateForm, metering.Context{})
	if err := s.credits.Debit(ctx, userID, cost, "ai form generation"); err != nil {
		return nil, err
	}

	created, err := s.forms.CreateForm(ctx, spec)
	if err != nil {
		s.refund(ctx, userID, cost, "refund: ai form generation failed")
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	return created, nil
}

// PublishForm debits the publish cost and publishes through the collaborator.
func (s *Service) PublishForm(ctx context.Context, userID uuid.UUID, formID string) (*formservice.Form, error) {
	if strings.TrimSpace(formID) == "" {
		return nil, fmt.Errorf("%w: form id is required", ErrInvalidSpec)
	}

	cost := s.policy.CostOf(metering.ActionPublishForm, metering.Context{})
	if err := s.credits.Debit(ctx, userID, cost, "form publish"); err != nil {
		return nil, err
	}

	published, err := s.forms.PublishForm(ctx, formID)
	if err != nil {
		s.refund(ctx, userID, cost, "refund: form publish failed")
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	return published, nil
}

// AddExtraQuestions debits the extra-questions pack cost and appends the
// questions through the collaborator.
func (s *Service) AddExtraQuestions(ctx context.Context, userID uuid.UUID, formID string, questions []formservice.Question) (*formservice.Form, error) {
	if strings.TrimSpace(formID) == "" {
		return nil, fmt.Errorf("%w: form id is required", ErrInvalidSpec)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: questions are required", ErrInvalidSpec)
	}

	cost := s.policy.CostOf(metering.ActionExtraQuestions, metering.Context{})
	if err := s.credits.Debit(ctx, userID, cost, "extra questions pack"); err != nil {
		return nil, err
	}

	updated, err := s.forms.AddQuestions(ctx, formID, questions)
	if err != nil {
		s.refund(ctx, userID, cost, "refund: extra questions failed")
		return nil, fmt.Errorf("%w: %v", ErrCreationFailed, err)
	}

	return updated, nil
}

// refund compensates a debited action whose downstream call failed. Granted
// as a bonus so purchase accounting stays untouched.
func (s *Service) refund(ctx context.Context, userID uuid.UUID, amount int, reason string) {
	if amount <= 0 {
		return
	}
	if _, err := s.credits.Credit(ctx, userID, amount, credit.TxTypeBonus, nil, reason); err != nil {
		log.Error().
			Err(err).
			Str("user_id", userID.String()).
			Int("amount", amount).
			Msg("Refund after failed form action did not apply")
	}
}
