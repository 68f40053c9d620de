package services

import (
	"context"
	"fmt"
	"log/slog"

	"budgetly/internal/amqp"
	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/ports"
)

// OnboardingProcessor materializes a completed wizard run into the user's
// categories and fixed costs.
type OnboardingProcessor struct {
	scope ports.UserScope
}

func NewOnboardingProcessor(scope ports.UserScope) *OnboardingProcessor {
	return &OnboardingProcessor{scope: scope}
}

// Handle creates any missing spending categories and replaces the user's
// fixed costs with the ones from msg. Processing the same message twice
// leaves the same state behind.
func (p *OnboardingProcessor) Handle(ctx context.Context, msg *amqp.OnboardingCompletedMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid onboarding message: %w", err)
	}

	created, err := ensureCategories(ctx, p.scope.Categories(msg.UserID), msg.SpendingCategories)
	if err != nil {
		return err
	}

	costs := make([]core.FixedCost, 0, len(msg.FixedCosts))
	for _, fc := range msg.FixedCosts {
		costs = append(costs, core.FixedCost{
			Amount:     core.Money{Cents: fc.AmountCents},
			CategoryID: fc.CategoryID,
		})
	}
	if err := p.scope.FixedCosts(msg.UserID).ReplaceFixedCosts(ctx, costs); err != nil {
		return fmt.Errorf("replace fixed costs: %w", err)
	}

	slog.InfoContext(ctx, "Onboarding answers materialized",
		log.FieldComponent, log.ComponentOnboarding,
		log.FieldRunID, msg.RunID,
		log.FieldUserID, msg.UserID,
		log.FieldCategories, len(msg.SpendingCategories),
		log.FieldCategoriesCreated, created,
		log.FieldFixedCosts, len(costs))
	return nil
}

// ensureCategories creates the labels that do not exist yet and reports how
// many were actually inserted.
func ensureCategories(ctx context.Context, store ports.CategoryStore, labels []string) (int, error) {
	if len(labels) == 0 {
		return 0, nil
	}
	existing, err := store.ListCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("list categories: %w", err)
	}
	known := make(map[string]struct{}, len(existing)+len(labels))
	for _, c := range existing {
		known[c.ID] = struct{}{}
	}

	created := 0
	for _, label := range labels {
		id, err := store.CreateCategory(ctx, label)
		if err != nil {
			return created, fmt.Errorf("ensure category %q: %w", label, err)
		}
		if _, ok := known[id]; !ok {
			known[id] = struct{}{}
			created++
		}
	}
	return created, nil
}
