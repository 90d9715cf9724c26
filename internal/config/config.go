// Package config parses the engine's POLYBOT_* environment surface of
// spec.md 6, grounded on the teacher's internal/config/config.go
// getEnv/getEnvBool/getEnvInt helper style, generalized so the variables
// spec.md marks as validated return a Config-kind xerrors.TradingError on
// invalid numerics instead of silently falling back to a default.
package config

import (
	"os"
	"strconv"

	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

// Config is the engine's typed environment surface.
type Config struct {
	Name              string
	TickIntervalMs    int
	MaxPositions      int
	MaxOrderSizeUsdc  int
	MaxDailyLossUsdc  int
	PaperMode         bool
	MaxSlippageBps    int
}

const (
	defaultName             = "predengine"
	defaultTickIntervalMs   = 1000
	defaultMaxPositions     = 5
	defaultMaxOrderSizeUsdc = 100
	defaultMaxDailyLossUsdc = 500
	defaultPaperMode        = true
	defaultMaxSlippageBps   = 50
)

// Load reads the POLYBOT_* environment variables into a Config. Invalid
// numerics for any validated variable fail the whole load with a
// KindConfig error rather than defaulting past a typo, per spec.md 6.
func Load() xresult.Result[Config] {
	cfg := Config{
		Name:      getEnv("POLYBOT_NAME", defaultName),
		PaperMode: getEnvBool("POLYBOT_PAPER_MODE", defaultPaperMode),
	}

	tickIntervalMs, err := getEnvPositiveInt("POLYBOT_TICK_INTERVAL_MS", defaultTickIntervalMs)
	if err != nil {
		return xresult.Err[Config](err)
	}
	cfg.TickIntervalMs = tickIntervalMs

	maxPositions, err := getEnvPositiveInt("POLYBOT_MAX_POSITIONS", defaultMaxPositions)
	if err != nil {
		return xresult.Err[Config](err)
	}
	cfg.MaxPositions = maxPositions

	maxOrderSizeUsdc, err := getEnvPositiveInt("POLYBOT_MAX_ORDER_SIZE_USDC", defaultMaxOrderSizeUsdc)
	if err != nil {
		return xresult.Err[Config](err)
	}
	cfg.MaxOrderSizeUsdc = maxOrderSizeUsdc

	maxDailyLossUsdc, err := getEnvPositiveInt("POLYBOT_MAX_DAILY_LOSS_USDC", defaultMaxDailyLossUsdc)
	if err != nil {
		return xresult.Err[Config](err)
	}
	cfg.MaxDailyLossUsdc = maxDailyLossUsdc

	maxSlippageBps, err := getEnvNonNegativeInt("POLYBOT_MAX_SLIPPAGE_BPS", defaultMaxSlippageBps)
	if err != nil {
		return xresult.Err[Config](err)
	}
	cfg.MaxSlippageBps = maxSlippageBps

	return xresult.Ok(cfg)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvPositiveInt(key string, defaultValue int) (int, *xerrors.TradingError) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.KindConfig, err, "config: %s=%q is not an integer", key, value)
	}
	if n <= 0 {
		return 0, xerrors.New(xerrors.KindConfig, "config: %s=%d must be positive", key, n)
	}
	return n, nil
}

func getEnvNonNegativeInt(key string, defaultValue int) (int, *xerrors.TradingError) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.KindConfig, err, "config: %s=%q is not an integer", key, value)
	}
	if n < 0 {
		return 0, xerrors.New(xerrors.KindConfig, "config: %s=%d must be non-negative", key, n)
	}
	return n, nil
}
