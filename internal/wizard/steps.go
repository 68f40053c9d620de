// Package wizard implements the guided-setup wizard: an ordered step
// registry, the state machine that walks a user through it, the gate that
// decides when it opens and the bridge that persists the answers.
package wizard

// StepID identifies a wizard step.
type StepID string

const (
	StepCurrency        StepID = "currency"
	StepTimeline        StepID = "timeline"
	StepFixedCost       StepID = "fixedCost"
	StepSpendCategories StepID = "spendCategories"
	StepComplete        StepID = "complete"
)

// StepCount is the number of steps in the registry.
const StepCount = 5

// Step is an immutable step descriptor.
type Step struct {
	ID          StepID
	Order       int
	Title       string
	Description string

	// canContinue is nil for the terminal step.
	canContinue func(*Answers) bool
}

// Terminal reports whether s is the final display step.
func (s Step) Terminal() bool {
	return s.canContinue == nil
}

func always(*Answers) bool { return true }

var registry = [StepCount]Step{
	{
		ID:          StepCurrency,
		Order:       0,
		Title:       "Choose your currency",
		Description: "All amounts in your budget will use this currency.",
		canContinue: func(a *Answers) bool { return a.Currency != "" },
	},
	{
		ID:          StepTimeline,
		Order:       1,
		Title:       "Pick a budget timeline",
		Description: "How often do you want to plan your budget?",
		canContinue: func(a *Answers) bool { return a.Timeline != "" },
	},
	{
		ID:          StepFixedCost,
		Order:       2,
		Title:       "Add your fixed monthly costs",
		Description: "Rent, subscriptions, loans. You can skip this and add them later.",
		canContinue: always,
	},
	{
		ID:          StepSpendCategories,
		Order:       3,
		Title:       "Where does your money go?",
		Description: "Pick the categories you spend on.",
		canContinue: always,
	},
	{
		ID:          StepComplete,
		Order:       4,
		Title:       "You're all set",
		Description: "Review your answers and finish setup.",
	},
}

// Steps returns a copy of the registry in order.
func Steps() []Step {
	out := make([]Step, StepCount)
	copy(out, registry[:])
	return out
}

// StepAt returns the descriptor at index i.
func StepAt(i int) (Step, bool) {
	if i < 0 || i >= StepCount {
		return Step{}, false
	}
	return registry[i], true
}

// StepIDAt returns the id at index i, or "" when out of range.
func StepIDAt(i int) StepID {
	s, _ := StepAt(i)
	return s.ID
}

// IndexOf returns the index of id, or -1 when unknown.
func IndexOf(id StepID) int {
	for i, s := range registry {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// TerminalIndex is the index of the complete step.
func TerminalIndex() int {
	return StepCount - 1
}
