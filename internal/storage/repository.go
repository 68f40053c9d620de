package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"budgetly/internal/core"
	"budgetly/internal/log"
	"budgetly/internal/ports"

	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLiteRepository stores every user's onboarding data in one SQLite file.
// Each accessor returns a view bound to a single user.
type SQLiteRepository struct {
	db   *sql.DB
	seed []string
	now  func() time.Time
}

var _ ports.UserScope = (*SQLiteRepository)(nil)

// Option configures a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithCategorySeed gives users with no categories yet the given names.
func WithCategorySeed(names []string) Option {
	return func(r *SQLiteRepository) { r.seed = names }
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Settings(userID string) ports.KeyValueStore {
	return settingsRepo{r: r, user: userID}
}

func (r *SQLiteRepository) Preferences(userID string) ports.PreferencesStore {
	return preferencesRepo{r: r, user: userID}
}

func (r *SQLiteRepository) Categories(userID string) ports.CategoryStore {
	return categoriesRepo{r: r, user: userID}
}

func (r *SQLiteRepository) FixedCosts(userID string) ports.FixedCostStore {
	return fixedCostsRepo{r: r, user: userID}
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timeLayout)
}

type settingsRepo struct {
	r    *SQLiteRepository
	user string
}

func (s settingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.r.db.QueryRowContext(ctx,
		`SELECT value FROM user_settings WHERE user_id = ? AND key = ?`, s.user, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s settingsRepo) Set(ctx context.Context, key, value string) error {
	_, err := s.r.db.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.user, key, value, s.r.timestamp())
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s settingsRepo) Remove(ctx context.Context, key string) error {
	if _, err := s.r.db.ExecContext(ctx,
		`DELETE FROM user_settings WHERE user_id = ? AND key = ?`, s.user, key); err != nil {
		return fmt.Errorf("remove setting %s: %w", key, err)
	}
	return nil
}

type preferencesRepo struct {
	r    *SQLiteRepository
	user string
}

func (p preferencesRepo) GetPreferences(ctx context.Context) (core.Preferences, error) {
	var currency, period, updatedAt string
	err := p.r.db.QueryRowContext(ctx,
		`SELECT currency, budget_period, updated_at FROM user_preferences WHERE user_id = ?`, p.user).
		Scan(&currency, &period, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Preferences{}, nil
	}
	if err != nil {
		return core.Preferences{}, fmt.Errorf("get preferences: %w", err)
	}
	prefs := core.Preferences{
		Currency:     core.Currency(currency),
		BudgetPeriod: core.BudgetPeriod(period),
	}
	prefs.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return prefs, nil
}

func (p preferencesRepo) UpdatePreferences(ctx context.Context, u core.PreferencesUpdate) error {
	if u.Currency != nil && !u.Currency.IsValid() {
		return core.ErrInvalidCurrency
	}
	if u.BudgetPeriod != nil && !u.BudgetPeriod.IsValid() {
		return core.ErrInvalidBudgetPeriod
	}
	if u.IsEmpty() {
		return nil
	}

	var currency, period sql.NullString
	if u.Currency != nil {
		currency = sql.NullString{String: u.Currency.String(), Valid: true}
	}
	if u.BudgetPeriod != nil {
		period = sql.NullString{String: u.BudgetPeriod.String(), Valid: true}
	}

	_, err := p.r.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, currency, budget_period, updated_at)
		VALUES (?, COALESCE(?, ''), COALESCE(?, ''), ?)
		ON CONFLICT (user_id) DO UPDATE SET
			currency = COALESCE(?, user_preferences.currency),
			budget_period = COALESCE(?, user_preferences.budget_period),
			updated_at = excluded.updated_at`,
		p.user, currency, period, p.r.timestamp(), currency, period)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}

	slog.InfoContext(ctx, "Preferences updated",
		log.FieldComponent, log.ComponentStorage,
		log.FieldUserID, p.user)
	return nil
}

type categoriesRepo struct {
	r    *SQLiteRepository
	user string
}

// CreateCategory returns the id of the user's category with the same name
// (ignoring case), creating it when missing.
func (c categoriesRepo) CreateCategory(ctx context.Context, name string) (string, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return "", err
	}

	tx, err := c.r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := c.seed(ctx, tx); err != nil {
		return "", err
	}

	var id string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM categories WHERE user_id = ? AND lower(name) = lower(?)`, c.user, name).Scan(&id)
	switch {
	case err == nil:
		return id, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("find category: %w", err)
	}

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)`,
		id, c.user, name, c.r.timestamp()); err != nil {
		return "", fmt.Errorf("insert category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit category: %w", err)
	}

	slog.InfoContext(ctx, "Category created",
		log.FieldComponent, log.ComponentStorage,
		log.FieldUserID, c.user,
		"category_id", id)
	return id, nil
}

func (c categoriesRepo) ListCategories(ctx context.Context) ([]core.Category, error) {
	if len(c.r.seed) > 0 {
		tx, err := c.r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}
		if err := c.seed(ctx, tx); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit seed: %w", err)
		}
	}

	rows, err := c.r.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM categories WHERE user_id = ? ORDER BY created_at, rowid`, c.user)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var cat core.Category
		var createdAt string
		if err := rows.Scan(&cat.ID, &cat.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cat.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, cat)
	}
	return out, rows.Err()
}

func (c categoriesRepo) seed(ctx context.Context, tx *sql.Tx) error {
	if len(c.r.seed) == 0 {
		return nil
	}
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE user_id = ?`, c.user).Scan(&n); err != nil {
		return fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return nil
	}
	now := c.r.timestamp()
	for _, name := range c.r.seed {
		name, err := core.NormalizeCategoryName(name)
		if err != nil {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, user_id, name, created_at) VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING`,
			uuid.NewString(), c.user, name, now); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}

type fixedCostsRepo struct {
	r    *SQLiteRepository
	user string
}

// ReplaceFixedCosts swaps the user's fixed costs for costs in one transaction.
func (f fixedCostsRepo) ReplaceFixedCosts(ctx context.Context, costs []core.FixedCost) error {
	for _, c := range costs {
		if err := c.Amount.Validate(); err != nil {
			return err
		}
	}

	tx, err := f.r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM fixed_costs WHERE user_id = ?`, f.user); err != nil {
		return fmt.Errorf("clear fixed costs: %w", err)
	}
	for i, c := range costs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fixed_costs (user_id, position, amount_cents, category_id) VALUES (?, ?, ?, ?)`,
			f.user, i, c.Amount.Cents, strings.TrimSpace(c.CategoryID)); err != nil {
			return fmt.Errorf("insert fixed cost %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fixed costs: %w", err)
	}
	return nil
}

func (f fixedCostsRepo) ListFixedCosts(ctx context.Context) ([]core.FixedCost, error) {
	rows, err := f.r.db.QueryContext(ctx,
		`SELECT amount_cents, category_id FROM fixed_costs WHERE user_id = ? ORDER BY position`, f.user)
	if err != nil {
		return nil, fmt.Errorf("list fixed costs: %w", err)
	}
	defer rows.Close()

	var out []core.FixedCost
	for rows.Next() {
		var c core.FixedCost
		if err := rows.Scan(&c.Amount.Cents, &c.CategoryID); err != nil {
			return nil, fmt.Errorf("scan fixed cost: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
