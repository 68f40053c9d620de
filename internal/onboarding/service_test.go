package onboarding

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetly/internal/core"
	"budgetly/internal/ports/memory"
	"budgetly/internal/wizard"
)

type recordingHandler struct {
	mu      sync.Mutex
	users   []string
	results []wizard.Result
}

func (h *recordingHandler) HandleCompletion(_ context.Context, userID string, r wizard.Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.users = append(h.users, userID)
	h.results = append(h.results, r)
}

func newTestService(t *testing.T) (*Service, *memory.Store, *recordingHandler) {
	t.Helper()
	store := memory.New()
	h := &recordingHandler{}
	return NewService(store, h, Config{LandingPath: "/"}, nil), store, h
}

func TestService_GatedLifecycle(t *testing.T) {
	ctx := context.Background()
	s, store, h := newTestService(t)
	alice := wizard.Identity{UserID: "alice"}

	v, opened, err := s.OpenIfNeeded(ctx, alice, "/settings")
	require.NoError(t, err)
	assert.False(t, opened)
	assert.False(t, v.IsOpen)

	v, opened, err = s.OpenIfNeeded(ctx, alice, "/")
	require.NoError(t, err)
	require.True(t, opened)
	assert.True(t, v.IsOpen)

	_, err = s.Do(alice, func(m *wizard.Machine) error {
		m.SelectCurrency(core.GBP)
		m.Next()
		m.SelectTimeline(core.Yearly)
		m.Next()
		m.Next()
		m.Next()
		return nil
	})
	require.NoError(t, err)

	v, done, err := s.Finish(ctx, alice)
	require.NoError(t, err)
	assert.True(t, done)
	assert.False(t, v.IsOpen)

	prefs, err := store.Preferences("alice").GetPreferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.GBP, prefs.Currency)
	assert.Equal(t, core.Yearly, prefs.BudgetPeriod)

	require.Len(t, h.users, 1)
	assert.Equal(t, "alice", h.users[0])

	_, opened, err = s.OpenIfNeeded(ctx, alice, "/")
	require.NoError(t, err)
	assert.False(t, opened, "completed user must not be gated open again")

	completed, err := s.Completed(ctx, alice)
	require.NoError(t, err)
	assert.True(t, completed)

	require.NoError(t, s.Reset(ctx, alice))
	_, opened, err = s.OpenIfNeeded(ctx, alice, "/")
	require.NoError(t, err)
	assert.True(t, opened)
}

func TestService_UsersAreIsolated(t *testing.T) {
	s, _, _ := newTestService(t)
	alice := wizard.Identity{UserID: "alice"}
	bob := wizard.Identity{UserID: "bob"}

	_, err := s.Do(alice, func(m *wizard.Machine) error {
		m.Open()
		m.SelectCurrency(core.EUR)
		return nil
	})
	require.NoError(t, err)

	v, err := s.View(bob)
	require.NoError(t, err)
	assert.False(t, v.IsOpen)
	assert.Empty(t, v.Data.Currency)

	v, err = s.View(alice)
	require.NoError(t, err)
	assert.Equal(t, core.EUR, v.Data.Currency)
}

func TestService_Unauthenticated(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestService(t)
	anon := wizard.Identity{}

	_, opened, err := s.OpenIfNeeded(ctx, anon, "/")
	require.NoError(t, err)
	assert.False(t, opened)

	_, err = s.View(anon)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.ErrorIs(t, s.Reset(ctx, anon), ErrUnauthenticated)
	_, err = s.Completed(ctx, anon)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestService_ManualOpenIgnoresFlag(t *testing.T) {
	ctx := context.Background()
	s, store, _ := newTestService(t)
	require.NoError(t, store.Settings("carol").Set(ctx, wizard.FlagOnboarded, "true"))

	v, err := s.Open(wizard.Identity{UserID: "carol"})
	require.NoError(t, err)
	assert.True(t, v.IsOpen)
}

func TestService_ConcurrentAccess(t *testing.T) {
	s, _, _ := newTestService(t)
	id := wizard.Identity{UserID: "dan"}
	_, err := s.Open(id)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Do(id, func(m *wizard.Machine) error {
				m.AddFixedCostItem()
				return nil
			})
		}()
	}
	wg.Wait()

	v, err := s.View(id)
	require.NoError(t, err)
	assert.Len(t, v.Data.FixedCosts, 50)
}

func TestService_RunEvictedWhileInUseKeepsAnswers(t *testing.T) {
	store := memory.New()
	s := NewService(store, nil, Config{LandingPath: "/", MaxRuns: 1}, nil)
	alice := wizard.Identity{UserID: "alice"}
	bob := wizard.Identity{UserID: "bob"}

	_, err := s.Do(alice, func(m *wizard.Machine) error {
		m.Open()
		require.True(t, m.SelectCurrency(core.GBP))
		// Capacity is one, so bob's run pushes alice's out of the cache.
		_, err := s.Open(bob)
		return err
	})
	require.NoError(t, err)

	v, err := s.View(alice)
	require.NoError(t, err)
	assert.True(t, v.IsOpen)
	assert.Equal(t, core.GBP, v.Data.Currency)
}
