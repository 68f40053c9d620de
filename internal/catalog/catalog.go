// Package catalog holds the display labels the setup wizard offers: the
// currencies, the budget timelines and preset category names.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"budgetly/internal/core"
)

//go:embed default.toml
var defaultCatalog []byte

type Currency struct {
	Code   core.Currency `toml:"code"`
	Label  string        `toml:"label"`
	Symbol string        `toml:"symbol"`
}

type Timeline struct {
	ID          core.BudgetPeriod `toml:"id"`
	Label       string            `toml:"label"`
	Description string            `toml:"description"`
}

type Categories struct {
	Spending  []string `toml:"spending"`
	FixedCost []string `toml:"fixed_cost"`
}

type Catalog struct {
	Currencies []Currency `toml:"currencies"`
	Timelines  []Timeline `toml:"timelines"`
	Categories Categories `toml:"categories"`
}

// Default returns the embedded catalog.
func Default() Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) (Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML catalog.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return Catalog{}, fmt.Errorf("parsing catalog: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Catalog{}, fmt.Errorf("parsing catalog: unknown key %s", undecoded[0])
	}
	if err := c.validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.Currencies) == 0 {
		return fmt.Errorf("catalog: no currencies")
	}
	seen := map[core.Currency]bool{}
	for i := range c.Currencies {
		cur := &c.Currencies[i]
		code, err := core.ParseCurrency(string(cur.Code))
		if err != nil {
			return fmt.Errorf("catalog: currency %q: %w", cur.Code, err)
		}
		if seen[code] {
			return fmt.Errorf("catalog: duplicate currency %s", code)
		}
		seen[code] = true
		cur.Code = code
		if cur.Label == "" {
			cur.Label = code.String()
		}
	}

	if len(c.Timelines) == 0 {
		return fmt.Errorf("catalog: no timelines")
	}
	for i := range c.Timelines {
		tl := &c.Timelines[i]
		id, err := core.ParseBudgetPeriod(string(tl.ID))
		if err != nil {
			return fmt.Errorf("catalog: timeline %q: %w", tl.ID, err)
		}
		tl.ID = id
		if tl.Label == "" {
			tl.Label = strings.ToUpper(id.String()[:1]) + id.String()[1:]
		}
	}

	var err error
	if c.Categories.Spending, err = normalizeNames(c.Categories.Spending); err != nil {
		return fmt.Errorf("catalog: spending categories: %w", err)
	}
	if c.Categories.FixedCost, err = normalizeNames(c.Categories.FixedCost); err != nil {
		return fmt.Errorf("catalog: fixed cost categories: %w", err)
	}
	return nil
}

func normalizeNames(in []string) ([]string, error) {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, name := range in {
		n, err := core.NormalizeCategoryName(name)
		if err != nil {
			return nil, err
		}
		key := strings.ToLower(n)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out, nil
}

// Currency returns the entry for code.
func (c Catalog) Currency(code core.Currency) (Currency, bool) {
	for _, cur := range c.Currencies {
		if cur.Code == code {
			return cur, true
		}
	}
	return Currency{}, false
}

// Timeline returns the entry for id.
func (c Catalog) Timeline(id core.BudgetPeriod) (Timeline, bool) {
	for _, tl := range c.Timelines {
		if tl.ID == id {
			return tl, true
		}
	}
	return Timeline{}, false
}
