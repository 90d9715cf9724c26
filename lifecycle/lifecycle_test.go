package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/clock"
)

func TestFullHappyPath(t *testing.T) {
	clk := clock.NewFake(0)
	m := New(clk)
	assert.Equal(t, Initializing, m.State())

	require.NoError(t, m.Initialize())
	assert.Equal(t, WarmingUp, m.State())

	require.NoError(t, m.UpdateWarmup(150)) // clamps to 100
	assert.Equal(t, 100, m.WarmupPct())

	require.NoError(t, m.WarmupComplete())
	assert.Equal(t, Active, m.State())
	assert.True(t, m.CanOpen())
	assert.True(t, m.CanClose())

	require.NoError(t, m.Pause("operator request"))
	assert.Equal(t, Paused, m.State())
	assert.False(t, m.CanOpen())
	assert.True(t, m.CanClose())

	require.NoError(t, m.Resume())
	assert.Equal(t, Active, m.State())

	require.NoError(t, m.EnterClosingOnly())
	assert.Equal(t, ClosingOnly, m.State())
	assert.False(t, m.CanOpen())
	assert.True(t, m.CanClose())

	require.NoError(t, m.Halt("emergency"))
	assert.Equal(t, Halted, m.State())
	assert.False(t, m.CanClose())

	require.NoError(t, m.Shutdown())
	assert.Equal(t, Shutdown, m.State())
}

func TestResumeFromHaltedFails(t *testing.T) {
	clk := clock.NewFake(0)
	m := New(clk)
	require.NoError(t, m.Initialize())
	require.NoError(t, m.WarmupComplete())
	require.NoError(t, m.Halt("x"))

	err := m.Resume()
	assert.ErrorIs(t, err, ErrCannotResumeFromHalt)
}

func TestNothingTransitionsOutOfShutdown(t *testing.T) {
	clk := clock.NewFake(0)
	m := New(clk)
	require.NoError(t, m.Shutdown())

	assert.ErrorIs(t, m.Shutdown(), ErrAlreadyTerminal)
	assert.ErrorIs(t, m.Halt("x"), ErrAlreadyTerminal)
	assert.Error(t, m.Resume())
	assert.Error(t, m.WarmupComplete())
}

func TestHistoryBoundedTo100(t *testing.T) {
	clk := clock.NewFake(0)
	m := New(clk)
	require.NoError(t, m.Initialize())
	require.NoError(t, m.WarmupComplete())

	for i := 0; i < 150; i++ {
		require.NoError(t, m.Pause("x"))
		require.NoError(t, m.Resume())
	}
	assert.LessOrEqual(t, len(m.History()), 100)
}

func TestTimeInState(t *testing.T) {
	clk := clock.NewFake(1000)
	m := New(clk)
	clk.Advance(500_000_000) // 500ms, as a time.Duration in nanoseconds
	assert.GreaterOrEqual(t, m.TimeInState(), int64(0))
}
