package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetly/internal/core"
)

type recordingCompleter struct {
	calls []Answers
	err   error
}

func (r *recordingCompleter) Complete(_ context.Context, _ string, a Answers) error {
	r.calls = append(r.calls, a)
	return r.err
}

func openMachine(t *testing.T, c Completer) *Machine {
	t.Helper()
	m := NewMachine(c, nil)
	m.Open()
	require.True(t, m.IsOpen())
	return m
}

func TestMachine_StartsClosedOnFirstStep(t *testing.T) {
	m := NewMachine(nil, nil)

	assert.False(t, m.IsOpen())
	assert.Equal(t, 0, m.CurrentIndex())
	assert.Equal(t, StepCurrency, m.CurrentStep())
	assert.True(t, m.IsFirstStep())
	assert.NotEmpty(t, m.RunID())
}

func TestMachine_NextNeverSkipsOrOverflows(t *testing.T) {
	m := openMachine(t, nil)
	m.SelectCurrency(core.EUR)
	m.SelectTimeline(core.Monthly)

	prev := m.CurrentIndex()
	for i := 0; i < StepCount*2; i++ {
		m.Next()
		got := m.CurrentIndex()
		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got-prev, 1)
		assert.LessOrEqual(t, got, StepCount-1)
		prev = got
	}
	assert.True(t, m.IsTerminal())
	assert.False(t, m.Next())
}

func TestMachine_BackFloorsAtZero(t *testing.T) {
	m := openMachine(t, nil)

	assert.False(t, m.Back())
	assert.False(t, m.Back())
	assert.Equal(t, 0, m.CurrentIndex())
}

func TestMachine_NextBlockedWithoutCurrency(t *testing.T) {
	m := openMachine(t, nil)

	assert.False(t, m.CanContinue())
	assert.False(t, m.Next())
	assert.Equal(t, 0, m.CurrentIndex())
	assert.False(t, m.View().CanContinue)
}

func TestMachine_NextBlockedWithoutTimeline(t *testing.T) {
	m := openMachine(t, nil)
	require.True(t, m.SelectCurrency(core.USD))
	require.True(t, m.Next())

	assert.Equal(t, StepTimeline, m.CurrentStep())
	assert.False(t, m.Next())
	assert.Equal(t, StepTimeline, m.CurrentStep())
}

func TestMachine_SkipIgnoresPredicate(t *testing.T) {
	m := openMachine(t, nil)

	require.False(t, m.CanContinue())
	assert.True(t, m.Skip())
	assert.Equal(t, StepTimeline, m.CurrentStep())
	assert.True(t, m.Skip())
	assert.True(t, m.Skip())
	assert.True(t, m.Skip())
	assert.True(t, m.IsTerminal())
	assert.False(t, m.Skip())
	assert.Equal(t, TerminalIndex(), m.CurrentIndex())
}

func TestMachine_CurrencySurvivesBack(t *testing.T) {
	m := openMachine(t, nil)
	require.True(t, m.SelectCurrency(core.USD))
	require.True(t, m.Next())
	require.True(t, m.Back())

	assert.Equal(t, StepCurrency, m.CurrentStep())
	assert.Equal(t, core.USD, m.Answers().Currency)
	assert.True(t, m.CanContinue())
}

func TestMachine_CloseKeepsAnswers(t *testing.T) {
	m := openMachine(t, nil)
	m.SelectCurrency(core.AED)
	m.Next()
	runID := m.RunID()

	m.Close()
	assert.False(t, m.IsOpen())
	m.Open()

	assert.Equal(t, runID, m.RunID())
	assert.Equal(t, StepTimeline, m.CurrentStep())
	assert.Equal(t, core.AED, m.Answers().Currency)
}

func TestMachine_ClosedIgnoresInput(t *testing.T) {
	m := NewMachine(nil, nil)

	assert.False(t, m.SelectCurrency(core.GBP))
	assert.False(t, m.Skip())
	assert.Equal(t, -1, m.AddFixedCostItem())
	assert.False(t, m.ToggleSpendingCategory("Groceries"))
	assert.Equal(t, core.Currency(""), m.Answers().Currency)
	assert.Equal(t, 0, m.CurrentIndex())
}

func TestMachine_RejectsInvalidSelections(t *testing.T) {
	m := openMachine(t, nil)

	assert.False(t, m.SelectCurrency(core.Currency("JPY")))
	assert.False(t, m.SelectTimeline(core.BudgetPeriod("weekly")))
	assert.Empty(t, m.Answers().Currency)
	assert.Empty(t, m.Answers().Timeline)
}

func TestMachine_MutatorsKeepIndex(t *testing.T) {
	m := openMachine(t, nil)
	m.Skip()
	m.Skip()
	require.Equal(t, StepFixedCost, m.CurrentStep())

	m.SelectCurrency(core.KWD)
	m.SelectTimeline(core.Quarterly)
	i := m.AddFixedCostItem()
	m.UpdateFixedCostItem(i, FixedCostPatch{Amount: &core.Money{Cents: 1000}})
	m.ToggleSpendingCategory("Transport")
	m.RemoveFixedCostItem(i)

	assert.Equal(t, StepFixedCost, m.CurrentStep())
}

func TestMachine_RemoveFixedCostKeepsOrder(t *testing.T) {
	m := openMachine(t, nil)
	first := m.AddFixedCostItem()
	second := m.AddFixedCostItem()
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)

	cat := "cat-second"
	require.True(t, m.UpdateFixedCostItem(second, FixedCostPatch{CategoryID: &cat}))
	require.True(t, m.RemoveFixedCostItem(0))

	costs := m.Answers().FixedCosts
	require.Len(t, costs, 1)
	assert.Equal(t, "cat-second", costs[0].CategoryID)
}

func TestMachine_UpdateFixedCostItem(t *testing.T) {
	m := openMachine(t, nil)
	i := m.AddFixedCostItem()

	amount := core.Money{Cents: 95000}
	assert.True(t, m.UpdateFixedCostItem(i, FixedCostPatch{Amount: &amount}))
	cat := "  rent  "
	assert.True(t, m.UpdateFixedCostItem(i, FixedCostPatch{CategoryID: &cat}))

	got := m.Answers().FixedCosts[i]
	assert.Equal(t, int64(95000), got.Amount.Cents)
	assert.Equal(t, "rent", got.CategoryID)

	negative := core.Money{Cents: -1}
	assert.False(t, m.UpdateFixedCostItem(i, FixedCostPatch{Amount: &negative, CategoryID: &cat}))
	assert.False(t, m.UpdateFixedCostItem(5, FixedCostPatch{Amount: &amount}))
	assert.False(t, m.UpdateFixedCostItem(-1, FixedCostPatch{Amount: &amount}))
	assert.False(t, m.RemoveFixedCostItem(3))
	assert.Equal(t, int64(95000), m.Answers().FixedCosts[i].Amount.Cents)
}

func TestMachine_ToggleSpendingCategory(t *testing.T) {
	m := openMachine(t, nil)

	assert.True(t, m.ToggleSpendingCategory("Groceries"))
	assert.True(t, m.ToggleSpendingCategory("Dining out"))
	assert.Equal(t, []string{"Dining out", "Groceries"}, m.Answers().SpendingCategoryList())

	assert.True(t, m.ToggleSpendingCategory(" Groceries "))
	assert.Equal(t, []string{"Dining out"}, m.Answers().SpendingCategoryList())
	assert.False(t, m.ToggleSpendingCategory("   "))
}

func TestMachine_AnswersIsACopy(t *testing.T) {
	m := openMachine(t, nil)
	m.AddFixedCostItem()
	m.ToggleSpendingCategory("Health")

	a := m.Answers()
	a.FixedCosts[0].CategoryID = "mutated"
	delete(a.SpendingCategories, "Health")

	fresh := m.Answers()
	assert.Empty(t, fresh.FixedCosts[0].CategoryID)
	assert.True(t, fresh.HasSpendingCategory("Health"))
}

func TestMachine_FinishOnlyOnTerminal(t *testing.T) {
	rec := &recordingCompleter{}
	m := openMachine(t, rec)
	m.SelectCurrency(core.GBP)

	for !m.IsTerminal() {
		done, err := m.Finish(context.Background())
		require.NoError(t, err)
		assert.False(t, done)
		assert.True(t, m.IsOpen())
		m.Skip()
	}
	assert.Empty(t, rec.calls)

	done, err := m.Finish(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.False(t, m.IsOpen())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, core.GBP, rec.calls[0].Currency)
}

func TestMachine_FinishFailureClosesAndAllowsRetry(t *testing.T) {
	rec := &recordingCompleter{err: errors.New("store unavailable")}
	m := openMachine(t, rec)
	for m.Skip() {
	}
	runID := m.RunID()

	done, err := m.Finish(context.Background())
	assert.True(t, done)
	require.Error(t, err)
	assert.False(t, m.IsOpen())

	rec.err = nil
	m.Open()
	assert.Equal(t, runID, m.RunID())
	assert.True(t, m.IsTerminal())

	done, err = m.Finish(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Len(t, rec.calls, 2)
}

func TestMachine_OpenAfterFinishStartsFreshRun(t *testing.T) {
	m := openMachine(t, nil)
	m.SelectCurrency(core.SAR)
	for m.Skip() {
	}
	runID := m.RunID()
	_, err := m.Finish(context.Background())
	require.NoError(t, err)

	m.Open()
	assert.NotEqual(t, runID, m.RunID())
	assert.Equal(t, 0, m.CurrentIndex())
	assert.Empty(t, m.Answers().Currency)
}

func TestMachine_View(t *testing.T) {
	m := openMachine(t, nil)
	m.SelectCurrency(core.EUR)
	m.Next()

	v := m.View()
	assert.True(t, v.IsOpen)
	assert.Equal(t, m.RunID(), v.RunID)
	assert.Equal(t, 1, v.CurrentIndex)
	assert.Equal(t, StepTimeline, v.CurrentStep)
	assert.Equal(t, StepTimeline, v.Current.ID)
	assert.False(t, v.IsFirstStep)
	assert.False(t, v.CanContinue)
	assert.Equal(t, core.EUR, v.Data.Currency)
	require.Len(t, v.Steps, StepCount)
	assert.True(t, v.Steps[0].Done)
	assert.True(t, v.Steps[1].Current)
	assert.False(t, v.Steps[2].Done)
}
