package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/xerrors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"POLYBOT_NAME", "POLYBOT_TICK_INTERVAL_MS", "POLYBOT_MAX_POSITIONS",
		"POLYBOT_MAX_ORDER_SIZE_USDC", "POLYBOT_MAX_DAILY_LOSS_USDC",
		"POLYBOT_PAPER_MODE", "POLYBOT_MAX_SLIPPAGE_BPS",
	}
	for _, k := range keys {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	result := Load()
	require.True(t, result.IsOk())
	cfg := result.Unwrap()
	assert.Equal(t, defaultName, cfg.Name)
	assert.Equal(t, defaultTickIntervalMs, cfg.TickIntervalMs)
	assert.Equal(t, defaultMaxPositions, cfg.MaxPositions)
	assert.True(t, cfg.PaperMode)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLYBOT_NAME", "test-engine")
	t.Setenv("POLYBOT_TICK_INTERVAL_MS", "250")
	t.Setenv("POLYBOT_MAX_POSITIONS", "3")
	t.Setenv("POLYBOT_PAPER_MODE", "false")
	t.Setenv("POLYBOT_MAX_SLIPPAGE_BPS", "0")

	result := Load()
	require.True(t, result.IsOk())
	cfg := result.Unwrap()
	assert.Equal(t, "test-engine", cfg.Name)
	assert.Equal(t, 250, cfg.TickIntervalMs)
	assert.Equal(t, 3, cfg.MaxPositions)
	assert.False(t, cfg.PaperMode)
	assert.Equal(t, 0, cfg.MaxSlippageBps)
}

func TestLoadRejectsNonNumericTickInterval(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLYBOT_TICK_INTERVAL_MS", "not-a-number")

	result := Load()
	require.True(t, result.IsErr())
	te, ok := xerrors.As(result.UnwrapErr())
	require.True(t, ok)
	assert.Equal(t, xerrors.KindConfig, te.Kind())
}

func TestLoadRejectsNonPositiveMaxPositions(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLYBOT_MAX_POSITIONS", "0")

	result := Load()
	require.True(t, result.IsErr())
}

func TestLoadRejectsNegativeSlippageBps(t *testing.T) {
	clearEnv(t)
	t.Setenv("POLYBOT_MAX_SLIPPAGE_BPS", "-1")

	result := Load()
	require.True(t, result.IsErr())
}
