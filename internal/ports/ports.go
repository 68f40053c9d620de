package ports

import (
	"context"

	"budgetly/internal/core"
)

// Ports for outbound adapters. Every store is bound to a single user.
type (
	// KeyValueStore is the durable per-user key-value store holding
	// onboarding flags. Get reports ok=false for a missing key.
	KeyValueStore interface {
		Get(ctx context.Context, key string) (value string, ok bool, err error)
		Set(ctx context.Context, key, value string) error
		Remove(ctx context.Context, key string) error
	}

	// PreferencesStore is the host application's settings store.
	PreferencesStore interface {
		GetPreferences(ctx context.Context) (core.Preferences, error)
		// UpdatePreferences applies the non-nil fields of u.
		UpdatePreferences(ctx context.Context, u core.PreferencesUpdate) error
	}

	// CategoryStore creates categories from free text. CreateCategory returns
	// the id of an existing category when the name matches case-insensitively.
	CategoryStore interface {
		CreateCategory(ctx context.Context, name string) (id string, err error)
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	FixedCostStore interface {
		// ReplaceFixedCosts swaps the user's fixed costs for costs, keeping order.
		ReplaceFixedCosts(ctx context.Context, costs []core.FixedCost) error
		ListFixedCosts(ctx context.Context) ([]core.FixedCost, error)
	}

	// UserScope resolves the stores of a given user.
	UserScope interface {
		Settings(userID string) KeyValueStore
		Preferences(userID string) PreferencesStore
		Categories(userID string) CategoryStore
		FixedCosts(userID string) FixedCostStore
	}
)
