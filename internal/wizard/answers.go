package wizard

import (
	"sort"
	"strings"

	"budgetly/internal/core"
)

// Answers accumulates the data collected during a wizard run. Empty Currency
// and Timeline mean "not selected yet".
type Answers struct {
	Currency           core.Currency
	Timeline           core.BudgetPeriod
	FixedCosts         []core.FixedCost
	SpendingCategories map[string]struct{}
}

// FixedCostPatch is a partial update of a fixed-cost item.
type FixedCostPatch struct {
	Amount     *core.Money
	CategoryID *string
}

func newAnswers() Answers {
	return Answers{SpendingCategories: make(map[string]struct{})}
}

func (a Answers) clone() Answers {
	out := Answers{
		Currency:           a.Currency,
		Timeline:           a.Timeline,
		FixedCosts:         append([]core.FixedCost(nil), a.FixedCosts...),
		SpendingCategories: make(map[string]struct{}, len(a.SpendingCategories)),
	}
	for k := range a.SpendingCategories {
		out.SpendingCategories[k] = struct{}{}
	}
	return out
}

// HasSpendingCategory reports whether label is selected.
func (a Answers) HasSpendingCategory(label string) bool {
	_, ok := a.SpendingCategories[strings.TrimSpace(label)]
	return ok
}

// SpendingCategoryList returns the selected labels sorted alphabetically.
func (a Answers) SpendingCategoryList() []string {
	out := make([]string, 0, len(a.SpendingCategories))
	for k := range a.SpendingCategories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FixedCostSummary totals the fixed costs against the selected timeline.
func (a Answers) FixedCostSummary() core.FixedCostSummary {
	return core.SummarizeFixedCosts(a.FixedCosts, a.Timeline)
}
