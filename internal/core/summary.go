package core

// FixedCostSummary aggregates the fixed costs entered during onboarding.
type FixedCostSummary struct {
	Count         int
	Uncategorized int
	Monthly       Money
	PerPeriod     Money // Monthly scaled to the chosen period; zero if no period
}

// SummarizeFixedCosts totals monthly fixed costs and scales them to period.
func SummarizeFixedCosts(costs []FixedCost, period BudgetPeriod) FixedCostSummary {
	var s FixedCostSummary
	for _, c := range costs {
		s.Count++
		s.Monthly = s.Monthly.Add(c.Amount)
		if c.CategoryID == "" {
			s.Uncategorized++
		}
	}
	s.PerPeriod = s.Monthly.Times(period.Months())
	return s
}
