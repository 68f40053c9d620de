package core

import (
	"errors"
	"strings"
	"time"
)

const (
	GBP Currency = "GBP"
	USD Currency = "USD"
	EUR Currency = "EUR"
	AED Currency = "AED"
	KWD Currency = "KWD"
	SAR Currency = "SAR"
)

const (
	Monthly   BudgetPeriod = "monthly"
	Quarterly BudgetPeriod = "quarterly"
	Yearly    BudgetPeriod = "yearly"
)

type (
	// Currency is an ISO 4217 code supported by the budget settings.
	Currency string

	// BudgetPeriod is the timeline a budget is planned over.
	BudgetPeriod string

	// FixedCost is a recurring monthly cost captured during onboarding.
	// CategoryID may be empty while the user is still editing it.
	FixedCost struct {
		Amount     Money
		CategoryID string
	}

	Preferences struct {
		Currency     Currency
		BudgetPeriod BudgetPeriod
		UpdatedAt    time.Time
	}

	// PreferencesUpdate is a partial update; nil fields are left untouched.
	PreferencesUpdate struct {
		Currency     *Currency
		BudgetPeriod *BudgetPeriod
	}

	Category struct {
		ID        string
		Name      string
		CreatedAt time.Time
	}
)

// Currencies lists the supported currencies in display order.
var Currencies = []Currency{GBP, USD, EUR, AED, KWD, SAR}

// BudgetPeriods lists the supported timelines in display order.
var BudgetPeriods = []BudgetPeriod{Monthly, Quarterly, Yearly}

var (
	ErrInvalidCurrency     = errors.New("invalid currency")
	ErrInvalidBudgetPeriod = errors.New("invalid budget period")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyCategoryName   = errors.New("empty category name")
	ErrNotFound            = errors.New("not found")
)

func (c Currency) IsValid() bool {
	for _, v := range Currencies {
		if c == v {
			return true
		}
	}
	return false
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency normalizes s to an upper-case code and checks it is supported.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case Monthly, Quarterly, Yearly:
		return true
	default:
		return false
	}
}

func (p BudgetPeriod) String() string {
	return string(p)
}

// Months returns how many calendar months the period spans, 0 if invalid.
func (p BudgetPeriod) Months() int {
	switch p {
	case Monthly:
		return 1
	case Quarterly:
		return 3
	case Yearly:
		return 12
	default:
		return 0
	}
}

func ParseBudgetPeriod(s string) (BudgetPeriod, error) {
	p := BudgetPeriod(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", ErrInvalidBudgetPeriod
	}
	return p, nil
}

// IsEmpty reports whether the update would change nothing.
func (u PreferencesUpdate) IsEmpty() bool {
	return u.Currency == nil && u.BudgetPeriod == nil
}

// Apply returns p with the non-nil fields of u applied.
func (u PreferencesUpdate) Apply(p Preferences) Preferences {
	if u.Currency != nil {
		p.Currency = *u.Currency
	}
	if u.BudgetPeriod != nil {
		p.BudgetPeriod = *u.BudgetPeriod
	}
	return p
}

// NormalizeCategoryName trims and collapses inner whitespace.
func NormalizeCategoryName(name string) (string, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "", ErrEmptyCategoryName
	}
	if len(name) > 80 {
		return "", errors.New("category name too long (max 80 characters)")
	}
	return name, nil
}
