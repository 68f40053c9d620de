package core

import (
	"errors"
	"testing"
)

func TestParseCurrency(t *testing.T) {
	for _, in := range []string{"GBP", "usd", " eur ", "AED", "kwd", "SAR"} {
		if _, err := ParseCurrency(in); err != nil {
			t.Errorf("ParseCurrency(%q) unexpected error: %v", in, err)
		}
	}
	for _, in := range []string{"", "JPY", "US D"} {
		if _, err := ParseCurrency(in); !errors.Is(err, ErrInvalidCurrency) {
			t.Errorf("ParseCurrency(%q) = %v, want ErrInvalidCurrency", in, err)
		}
	}
}

func TestBudgetPeriodMonths(t *testing.T) {
	cases := []struct {
		p    BudgetPeriod
		want int
	}{
		{Monthly, 1},
		{Quarterly, 3},
		{Yearly, 12},
		{BudgetPeriod("weekly"), 0},
	}
	for _, tc := range cases {
		if got := tc.p.Months(); got != tc.want {
			t.Errorf("%q.Months() = %d, want %d", tc.p, got, tc.want)
		}
	}
	if _, err := ParseBudgetPeriod("Quarterly"); err != nil {
		t.Fatalf("expected quarterly to parse, got %v", err)
	}
	if _, err := ParseBudgetPeriod("daily"); !errors.Is(err, ErrInvalidBudgetPeriod) {
		t.Fatalf("expected ErrInvalidBudgetPeriod, got %v", err)
	}
}

func TestPreferencesUpdateApply(t *testing.T) {
	usd := USD
	u := PreferencesUpdate{Currency: &usd}
	if u.IsEmpty() {
		t.Fatalf("update with currency should not be empty")
	}
	got := u.Apply(Preferences{Currency: GBP, BudgetPeriod: Yearly})
	if got.Currency != USD || got.BudgetPeriod != Yearly {
		t.Fatalf("unexpected apply result: %+v", got)
	}
	if !(PreferencesUpdate{}).IsEmpty() {
		t.Fatalf("zero update should be empty")
	}
}

func TestNormalizeCategoryName(t *testing.T) {
	got, err := NormalizeCategoryName("  Eating   out ")
	if err != nil || got != "Eating out" {
		t.Fatalf("got %q, %v", got, err)
	}
	if _, err := NormalizeCategoryName("   "); !errors.Is(err, ErrEmptyCategoryName) {
		t.Fatalf("expected ErrEmptyCategoryName, got %v", err)
	}
}

func TestSummarizeFixedCosts(t *testing.T) {
	costs := []FixedCost{
		{Amount: Money{Cents: 120000}, CategoryID: "rent"},
		{Amount: Money{Cents: 4550}},
	}
	s := SummarizeFixedCosts(costs, Quarterly)
	if s.Count != 2 || s.Uncategorized != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.Monthly.Cents != 124550 || s.PerPeriod.Cents != 373650 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if got := SummarizeFixedCosts(nil, ""); got.PerPeriod.Cents != 0 {
		t.Fatalf("expected zero totals, got %+v", got)
	}
}
