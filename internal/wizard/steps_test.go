package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOrder(t *testing.T) {
	want := []StepID{StepCurrency, StepTimeline, StepFixedCost, StepSpendCategories, StepComplete}
	steps := Steps()
	require.Len(t, want, StepCount)
	require.Len(t, steps, StepCount)

	for i, id := range want {
		assert.Equal(t, id, steps[i].ID, "step %d", i)
		assert.Equal(t, i, steps[i].Order, "step %d order", i)
		assert.Equal(t, id, StepIDAt(i))
		assert.Equal(t, i, IndexOf(id))
	}
}

func TestRegistryBounds(t *testing.T) {
	assert.Equal(t, StepID(""), StepIDAt(-1))
	assert.Equal(t, StepID(""), StepIDAt(StepCount))
	assert.Equal(t, -1, IndexOf("review"))
}

func TestOnlyLastStepIsTerminal(t *testing.T) {
	for i, s := range Steps() {
		assert.Equal(t, i == TerminalIndex(), s.Terminal(), "step %s", s.ID)
	}
}

func TestStepsReturnsCopy(t *testing.T) {
	s := Steps()
	s[0].Title = "changed"
	assert.NotEqual(t, "changed", Steps()[0].Title, "registry was mutated through Steps()")
}
