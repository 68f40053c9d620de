package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetly/internal/core"
	"budgetly/internal/ports"
)

// Store keeps every user's data in process memory. It is safe for
// concurrent use and is the default backend for development and tests.
type Store struct {
	mu         sync.Mutex
	settings   map[string]map[string]string
	prefs      map[string]core.Preferences
	categories map[string][]core.Category
	fixedCosts map[string][]core.FixedCost
	seed       []string
	now        func() time.Time
}

var _ ports.UserScope = (*Store)(nil)

func New() *Store {
	return &Store{
		settings:   make(map[string]map[string]string),
		prefs:      make(map[string]core.Preferences),
		categories: make(map[string][]core.Category),
		fixedCosts: make(map[string][]core.FixedCost),
		now:        time.Now,
	}
}

// NewWithCategories seeds every new user with the given category names.
func NewWithCategories(names []string) *Store {
	s := New()
	s.seed = dedupe(names)
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Settings(userID string) ports.KeyValueStore { return settings{s: s, user: userID} }
func (s *Store) Preferences(userID string) ports.PreferencesStore { return preferences{s: s, user: userID} }
func (s *Store) Categories(userID string) ports.CategoryStore { return categories{s: s, user: userID} }
func (s *Store) FixedCosts(userID string) ports.FixedCostStore { return fixedCosts{s: s, user: userID} }

type settings struct {
	s    *Store
	user string
}

func (kv settings) Get(_ context.Context, key string) (string, bool, error) {
	kv.s.mu.Lock()
	defer kv.s.mu.Unlock()
	v, ok := kv.s.settings[kv.user][key]
	return v, ok, nil
}

func (kv settings) Set(_ context.Context, key, value string) error {
	kv.s.mu.Lock()
	defer kv.s.mu.Unlock()
	m, ok := kv.s.settings[kv.user]
	if !ok {
		m = make(map[string]string)
		kv.s.settings[kv.user] = m
	}
	m[key] = value
	return nil
}

func (kv settings) Remove(_ context.Context, key string) error {
	kv.s.mu.Lock()
	defer kv.s.mu.Unlock()
	delete(kv.s.settings[kv.user], key)
	return nil
}

type preferences struct {
	s    *Store
	user string
}

func (p preferences) GetPreferences(_ context.Context) (core.Preferences, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.prefs[p.user], nil
}

func (p preferences) UpdatePreferences(_ context.Context, u core.PreferencesUpdate) error {
	if u.Currency != nil && !u.Currency.IsValid() {
		return core.ErrInvalidCurrency
	}
	if u.BudgetPeriod != nil && !u.BudgetPeriod.IsValid() {
		return core.ErrInvalidBudgetPeriod
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	next := u.Apply(p.s.prefs[p.user])
	next.UpdatedAt = p.s.now()
	p.s.prefs[p.user] = next
	return nil
}

type categories struct {
	s    *Store
	user string
}

func (c categories) CreateCategory(_ context.Context, name string) (string, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return "", err
	}
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.seedUser(c.user)
	for _, existing := range c.s.categories[c.user] {
		if strings.EqualFold(existing.Name, name) {
			return existing.ID, nil
		}
	}
	cat := core.Category{ID: uuid.NewString(), Name: name, CreatedAt: c.s.now()}
	c.s.categories[c.user] = append(c.s.categories[c.user], cat)
	return cat.ID, nil
}

func (c categories) ListCategories(_ context.Context) ([]core.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.seedUser(c.user)
	return append([]core.Category(nil), c.s.categories[c.user]...), nil
}

type fixedCosts struct {
	s    *Store
	user string
}

func (f fixedCosts) ReplaceFixedCosts(_ context.Context, costs []core.FixedCost) error {
	for _, c := range costs {
		if err := c.Amount.Validate(); err != nil {
			return err
		}
	}
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	f.s.fixedCosts[f.user] = append([]core.FixedCost(nil), costs...)
	return nil
}

func (f fixedCosts) ListFixedCosts(_ context.Context) ([]core.FixedCost, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return append([]core.FixedCost(nil), f.s.fixedCosts[f.user]...), nil
}

// seedUser must be called with mu held.
func (s *Store) seedUser(user string) {
	if _, ok := s.categories[user]; ok || len(s.seed) == 0 {
		return
	}
	cats := make([]core.Category, 0, len(s.seed))
	for _, name := range s.seed {
		cats = append(cats, core.Category{ID: uuid.NewString(), Name: name, CreatedAt: s.now()})
	}
	s.categories[user] = cats
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v, err := core.NormalizeCategoryName(v)
		if err != nil {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
