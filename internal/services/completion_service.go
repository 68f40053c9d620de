package services

import (
	"context"
	"log/slog"

	"budgetly/internal/amqp"
	"budgetly/internal/log"
	"budgetly/internal/wizard"
)

// CompletionPublisher sends completion events to the worker.
type CompletionPublisher interface {
	PublishOnboardingCompleted(ctx context.Context, msg *amqp.OnboardingCompletedMessage) error
}

// CompletionService hands finished wizard runs to the worker, or processes
// them in-process when no publisher is configured or publishing fails.
type CompletionService struct {
	publisher CompletionPublisher
	processor *OnboardingProcessor
}

func NewCompletionService(publisher CompletionPublisher, processor *OnboardingProcessor) *CompletionService {
	return &CompletionService{publisher: publisher, processor: processor}
}

// HandleCompletion never fails the wizard: the answers the user cares about
// are already persisted by the time it runs.
func (s *CompletionService) HandleCompletion(ctx context.Context, userID string, r wizard.Result) {
	msg := CompletionMessage(userID, r)

	if s.publisher != nil {
		err := s.publisher.PublishOnboardingCompleted(ctx, msg)
		if err == nil {
			return
		}
		slog.ErrorContext(ctx, "Failed to publish onboarding completed message, processing inline",
			log.FieldComponent, log.ComponentOnboarding,
			log.FieldRunID, r.RunID,
			log.FieldUserID, userID,
			log.FieldError, err)
	}

	if s.processor == nil {
		slog.WarnContext(ctx, "No onboarding processor configured, dropping completion",
			log.FieldRunID, r.RunID,
			log.FieldUserID, userID)
		return
	}
	if err := s.processor.Handle(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to process onboarding completion",
			log.FieldComponent, log.ComponentOnboarding,
			log.FieldRunID, r.RunID,
			log.FieldUserID, userID,
			log.FieldError, err)
	}
}

// CompletionMessage converts a wizard result into the wire message.
func CompletionMessage(userID string, r wizard.Result) *amqp.OnboardingCompletedMessage {
	msg := amqp.NewOnboardingCompletedMessage(r.RunID, userID)
	msg.Currency = r.Currency.String()
	msg.Timeline = r.Timeline.String()
	for _, fc := range r.FixedCosts {
		msg.FixedCosts = append(msg.FixedCosts, amqp.FixedCostEntry{
			AmountCents: fc.Amount.Cents,
			CategoryID:  fc.CategoryID,
		})
	}
	msg.SpendingCategories = append(msg.SpendingCategories, r.SpendingCategories...)
	return msg
}
