package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/ports"
)

// Settings keys written by the bridge.
const (
	FlagOnboarded        = "budgetly.hasOnboarded"
	KeyPreferredCurrency = "budgetly.preferredCurrency"
)

const flagSet = "true"

// Result is what a successful completion hands to the callback.
type Result struct {
	RunID              string
	Currency           core.Currency
	Timeline           core.BudgetPeriod
	FixedCosts         []core.FixedCost
	SpendingCategories []string
}

// CompletionCallback runs after the answers have been persisted.
type CompletionCallback func(ctx context.Context, r Result)

// Bridge persists wizard answers for one user. It implements Completer.
type Bridge struct {
	settings ports.KeyValueStore
	prefs    ports.PreferencesStore
	callback CompletionCallback
	logger   *slog.Logger
}

func NewBridge(settings ports.KeyValueStore, prefs ports.PreferencesStore, callback CompletionCallback, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		settings: settings,
		prefs:    prefs,
		callback: callback,
		logger:   logger.With(log.FieldComponent, log.ComponentWizard),
	}
}

// Complete writes the onboarded flag and the preferred currency, pushes a
// single preferences update carrying whatever of currency and timeline was
// answered, then invokes the callback. The first failing write stops the
// sequence and the callback is not invoked.
func (b *Bridge) Complete(ctx context.Context, runID string, a Answers) error {
	if err := b.settings.Set(ctx, FlagOnboarded, flagSet); err != nil {
		return fmt.Errorf("failed to set onboarded flag: %w", err)
	}
	if a.Currency != "" {
		if err := b.settings.Set(ctx, KeyPreferredCurrency, a.Currency.String()); err != nil {
			return fmt.Errorf("failed to store preferred currency: %w", err)
		}
	}

	update := preferencesUpdate(a)
	if !update.IsEmpty() {
		if err := b.prefs.UpdatePreferences(ctx, update); err != nil {
			return fmt.Errorf("failed to update preferences: %w", err)
		}
	}

	b.logger.InfoContext(ctx, "Wizard answers persisted",
		log.NewFields().
			WithOperation(log.OpFinish).
			WithAnswers(a.Currency.String(), a.Timeline.String(), len(a.FixedCosts), len(a.SpendingCategories)).
			ToSlice()...)

	if b.callback != nil {
		b.callback(ctx, Result{
			RunID:              runID,
			Currency:           a.Currency,
			Timeline:           a.Timeline,
			FixedCosts:         append([]core.FixedCost(nil), a.FixedCosts...),
			SpendingCategories: a.SpendingCategoryList(),
		})
	}
	return nil
}

func preferencesUpdate(a Answers) core.PreferencesUpdate {
	var u core.PreferencesUpdate
	if a.Currency != "" {
		c := a.Currency
		u.Currency = &c
	}
	if a.Timeline != "" {
		p := a.Timeline
		u.BudgetPeriod = &p
	}
	return u
}
