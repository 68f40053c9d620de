package wizard

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"budgetly/internal/core"
	"budgetly/internal/log"
)

// Completer receives the answers of a finished run.
type Completer interface {
	Complete(ctx context.Context, runID string, a Answers) error
}

// Machine is the wizard state machine. It owns the run state exclusively:
// callers read it through View and change it only through the methods below.
//
// Invalid transitions never fail. They leave the state untouched and report
// false, so the machine is always in a renderable state. A Machine is not
// safe for concurrent use.
type Machine struct {
	completer Completer
	logger    *slog.Logger

	runID     string
	open      bool
	completed bool
	index     int
	answers   Answers
}

// NewMachine returns a closed machine positioned on the first step.
// completer may be nil, in which case Finish only closes the run.
func NewMachine(completer Completer, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Machine{
		completer: completer,
		logger:    logger.With(log.FieldComponent, log.ComponentWizard),
	}
	m.startRun()
	return m
}

func (m *Machine) startRun() {
	m.runID = uuid.NewString()
	m.index = 0
	m.completed = false
	m.answers = newAnswers()
}

// Open shows the wizard. A closed, unfinished run resumes where it was left;
// a finished run is replaced by a fresh one.
func (m *Machine) Open() {
	if m.open {
		return
	}
	if m.completed {
		m.startRun()
	}
	m.open = true
	m.logger.Debug("Wizard opened", log.FieldRunID, m.runID, log.FieldStep, m.CurrentStep())
}

// Close hides the wizard without discarding the answers.
func (m *Machine) Close() {
	if !m.open {
		return
	}
	m.open = false
	m.logger.Debug("Wizard closed", log.FieldRunID, m.runID, log.FieldStep, m.CurrentStep())
}

func (m *Machine) IsOpen() bool { return m.open }
func (m *Machine) RunID() string { return m.runID }
func (m *Machine) CurrentIndex() int { return m.index }
func (m *Machine) IsFirstStep() bool { return m.index == 0 }
func (m *Machine) IsTerminal() bool { return m.index == TerminalIndex() }
func (m *Machine) CurrentStep() StepID { return StepIDAt(m.index) }

// Answers returns a copy of the accumulated answers.
func (m *Machine) Answers() Answers {
	return m.answers.clone()
}

// CanContinue evaluates the current step's predicate. It is always false on
// the terminal step.
func (m *Machine) CanContinue() bool {
	step, ok := StepAt(m.index)
	if !ok || step.Terminal() {
		return false
	}
	return step.canContinue(&m.answers)
}

// Next advances one step if the current step is valid.
func (m *Machine) Next() bool {
	if !m.open || m.IsTerminal() || !m.CanContinue() {
		return false
	}
	return m.advance()
}

// Skip advances one step without validating the current one.
func (m *Machine) Skip() bool {
	if !m.open || m.IsTerminal() {
		return false
	}
	return m.advance()
}

func (m *Machine) advance() bool {
	from := m.index
	m.index = min(m.index+1, TerminalIndex())
	m.logger.Debug("Wizard advanced",
		log.FieldRunID, m.runID,
		"from", StepIDAt(from),
		"to", StepIDAt(m.index))
	return m.index != from
}

// Back moves to the previous step, floored at the first one.
func (m *Machine) Back() bool {
	if !m.open || m.index == 0 {
		return false
	}
	m.index--
	return true
}

func (m *Machine) SelectCurrency(c core.Currency) bool {
	if !m.open || !c.IsValid() {
		return false
	}
	m.answers.Currency = c
	return true
}

func (m *Machine) SelectTimeline(p core.BudgetPeriod) bool {
	if !m.open || !p.IsValid() {
		return false
	}
	m.answers.Timeline = p
	return true
}

// AddFixedCostItem appends an empty item and returns its index, or -1 when
// the wizard is closed.
func (m *Machine) AddFixedCostItem() int {
	if !m.open {
		return -1
	}
	m.answers.FixedCosts = append(m.answers.FixedCosts, core.FixedCost{})
	return len(m.answers.FixedCosts) - 1
}

// UpdateFixedCostItem applies p to the item at i. The whole patch is
// rejected if i is out of range or the amount is negative.
func (m *Machine) UpdateFixedCostItem(i int, p FixedCostPatch) bool {
	if !m.open || i < 0 || i >= len(m.answers.FixedCosts) {
		return false
	}
	if p.Amount != nil && p.Amount.Validate() != nil {
		return false
	}
	item := m.answers.FixedCosts[i]
	if p.Amount != nil {
		item.Amount = *p.Amount
	}
	if p.CategoryID != nil {
		item.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	m.answers.FixedCosts[i] = item
	return true
}

func (m *Machine) RemoveFixedCostItem(i int) bool {
	if !m.open || i < 0 || i >= len(m.answers.FixedCosts) {
		return false
	}
	m.answers.FixedCosts = append(m.answers.FixedCosts[:i], m.answers.FixedCosts[i+1:]...)
	return true
}

// ToggleSpendingCategory selects label, or deselects it if already selected.
func (m *Machine) ToggleSpendingCategory(label string) bool {
	label = strings.TrimSpace(label)
	if !m.open || label == "" {
		return false
	}
	if _, ok := m.answers.SpendingCategories[label]; ok {
		delete(m.answers.SpendingCategories, label)
	} else {
		m.answers.SpendingCategories[label] = struct{}{}
	}
	return true
}

// Finish hands the answers to the completer and closes the wizard. It only
// applies on the terminal step and reports whether it did.
//
// A completer error is returned as is and the wizard still closes. The run
// is not marked completed in that case, so reopening resumes on the terminal
// step and Finish can be retried.
func (m *Machine) Finish(ctx context.Context) (bool, error) {
	if !m.open || !m.IsTerminal() {
		return false, nil
	}
	defer func() { m.open = false }()

	if m.completer != nil {
		if err := m.completer.Complete(ctx, m.runID, m.answers.clone()); err != nil {
			m.logger.ErrorContext(ctx, "Wizard completion failed",
				log.FieldRunID, m.runID,
				log.FieldError, err)
			return true, err
		}
	}
	m.completed = true
	m.logger.InfoContext(ctx, "Wizard finished", log.FieldRunID, m.runID)
	return true, nil
}
