package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetly/internal/core"
	"budgetly/internal/ports/memory"
)

func TestGate_ShouldOpen(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	done := store.Settings("done")
	require.NoError(t, done.Set(ctx, FlagOnboarded, "true"))

	tests := []struct {
		name    string
		landing string
		user    string
		route   string
		want    bool
	}{
		{"fresh user on landing", "/", "new", "/", true},
		{"anonymous", "/", "", "/", false},
		{"whitespace user", "/", "  ", "/", false},
		{"other route", "/", "new", "/settings", false},
		{"completed user", "/", "done", "/", false},
		{"empty landing means root", "", "new", "/", true},
		{"custom landing", "/home", "new", "/home/", true},
		{"custom landing with query", "/home", "new", "/home?tab=1", true},
		{"root is not custom landing", "/home", "new", "/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(store.Settings(tt.user), tt.landing)
			got, err := g.ShouldOpen(ctx, Identity{UserID: tt.user}, tt.route)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGate_FlagMustBeTrue(t *testing.T) {
	ctx := context.Background()
	settings := memory.New().Settings("u")
	require.NoError(t, settings.Set(ctx, FlagOnboarded, "false"))

	got, err := NewGate(settings, "/").ShouldOpen(ctx, Identity{UserID: "u"}, "/")
	require.NoError(t, err)
	assert.True(t, got)
}

func TestGate_ReadErrorPropagates(t *testing.T) {
	kvErr := errors.New("unavailable")
	g := NewGate(brokenKV{err: kvErr}, "/")

	got, err := g.ShouldOpen(context.Background(), Identity{UserID: "u"}, "/")
	assert.False(t, got)
	assert.ErrorIs(t, err, kvErr)

	assert.ErrorIs(t, g.Reset(context.Background()), kvErr)
}

func TestOpenIfNeeded_DoesNotReopenAfterCompletion(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	settings := store.Settings("frank")
	g := NewGate(settings, "/")
	m := NewMachine(NewBridge(settings, store.Preferences("frank"), nil, nil), nil)
	id := Identity{UserID: "frank"}

	opened, err := OpenIfNeeded(ctx, g, m, id, "/")
	require.NoError(t, err)
	require.True(t, opened)

	opened, err = OpenIfNeeded(ctx, g, m, id, "/")
	require.NoError(t, err)
	assert.True(t, opened, "already open wizard stays open")

	m.SelectCurrency(core.GBP)
	for m.Skip() {
	}
	_, err = m.Finish(ctx)
	require.NoError(t, err)

	opened, err = OpenIfNeeded(ctx, g, m, id, "/")
	require.NoError(t, err)
	assert.False(t, opened)
	assert.False(t, m.IsOpen())
}

func TestGate_ResetMakesWizardEligibleAgain(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	settings := store.Settings("gina")
	require.NoError(t, settings.Set(ctx, FlagOnboarded, "true"))
	require.NoError(t, settings.Set(ctx, KeyPreferredCurrency, "EUR"))

	g := NewGate(settings, "/")
	m := NewMachine(nil, nil)
	id := Identity{UserID: "gina"}

	opened, err := OpenIfNeeded(ctx, g, m, id, "/")
	require.NoError(t, err)
	require.False(t, opened)

	require.NoError(t, g.Reset(ctx))
	assert.False(t, m.IsOpen(), "reset does not open the wizard")

	_, ok, _ := settings.Get(ctx, KeyPreferredCurrency)
	assert.False(t, ok)
	completed, err := g.Completed(ctx)
	require.NoError(t, err)
	assert.False(t, completed)

	opened, err = OpenIfNeeded(ctx, g, m, id, "/")
	require.NoError(t, err)
	assert.True(t, opened)
	assert.True(t, m.IsOpen())
}

func TestGate_ResetKeepsOpenRunAnswers(t *testing.T) {
	ctx := context.Background()
	settings := memory.New().Settings("hank")
	g := NewGate(settings, "/")
	m := NewMachine(nil, nil)
	m.Open()
	m.SelectCurrency(core.SAR)

	require.NoError(t, g.Reset(ctx))
	assert.True(t, m.IsOpen())
	assert.Equal(t, core.SAR, m.Answers().Currency)
}
