package guards

import (
	"strings"

	"github.com/flowstate-labs/predengine/decimal"
)

// MaxSpread blocks when the quoted spread exceeds MaxSpreadPct, grounded on
// the closing-phase size reduction logic in risk/gate.go generalized into a
// dedicated hard block.
type MaxSpread struct {
	MaxSpreadPct decimal.Decimal
}

func (g MaxSpread) Name() string { return "MaxSpread" }

func (g MaxSpread) Check(ctx Context) Decision {
	if ctx.SpreadPct.Gt(g.MaxSpreadPct) {
		return Block(g.Name(), "spread exceeds maximum", true).WithValues(ctx.SpreadPct, g.MaxSpreadPct)
	}
	return Allow()
}

// MaxPositions blocks once openCount reaches Max, generalizing
// RiskGate.maxPositionsPerAsset from a hardcoded 1 into a configurable cap.
type MaxPositions struct {
	Max int
}

func (g MaxPositions) Name() string { return "MaxPositions" }

func (g MaxPositions) Check(ctx Context) Decision {
	if ctx.OpenCount >= g.Max {
		return Block(g.Name(), "max open positions reached", true)
	}
	return Allow()
}

// Balance blocks when available balance is below MinBalance.
type Balance struct {
	MinBalance decimal.Decimal
}

func (g Balance) Name() string { return "Balance" }

func (g Balance) Check(ctx Context) Decision {
	if ctx.Balance.Lt(g.MinBalance) {
		return Block(g.Name(), "available balance below minimum", false).WithValues(ctx.Balance, g.MinBalance)
	}
	return Allow()
}

// Exposure blocks when totalExposure/balance exceeds MaxPct. A zero balance
// allows, matching spec.md 4.8's explicit escape hatch (rather than
// treating a divide-by-zero as a block).
type Exposure struct {
	MaxPct decimal.Decimal
}

func (g Exposure) Name() string { return "Exposure" }

func (g Exposure) Check(ctx Context) Decision {
	if ctx.Balance.IsZero() {
		return Allow()
	}
	ratio := ctx.TotalExposure.DivOr(ctx.Balance, decimal.Zero)
	if ratio.Gt(g.MaxPct) {
		return Block(g.Name(), "total exposure exceeds maximum", true).WithValues(ratio, g.MaxPct)
	}
	return Allow()
}

// Cooldown blocks while now-lastTradeTime(cid) < CooldownMs, grounded on
// RiskGate's per-asset positionCooldown.
type Cooldown struct {
	CooldownMs int64
}

func (g Cooldown) Name() string { return "Cooldown" }

func (g Cooldown) Check(ctx Context) Decision {
	if ctx.LastTradeTimeMs == nil {
		return Allow()
	}
	elapsed := ctx.NowMs - *ctx.LastTradeTimeMs
	if elapsed < g.CooldownMs {
		return Block(g.Name(), "cooldown active", true)
	}
	return Allow()
}

// DuplicateOrder blocks when a pending order already exists for the
// requested condition/side, backed by orders.Registry.HasPendingFor.
type DuplicateOrder struct{}

func (g DuplicateOrder) Name() string { return "DuplicateOrder" }

func (g DuplicateOrder) Check(ctx Context) Decision {
	if ctx.HasPendingOrder {
		return Block(g.Name(), "duplicate pending order", true)
	}
	return Allow()
}

// BookStaleness blocks when the order book age exceeds MaxMs. A nil age
// (no book observed yet) allows.
type BookStaleness struct {
	MaxMs int64
}

func (g BookStaleness) Name() string { return "BookStaleness" }

func (g BookStaleness) Check(ctx Context) Decision {
	if ctx.BookAgeMs == nil {
		return Allow()
	}
	if *ctx.BookAgeMs > g.MaxMs {
		return Block(g.Name(), "order book is stale", true)
	}
	return Allow()
}

// MinEdge blocks when the oracle/ask divergence is too small to justify the
// trade.
type MinEdge struct {
	MinEdge decimal.Decimal
}

func (g MinEdge) Name() string { return "MinEdge" }

func (g MinEdge) Check(ctx Context) Decision {
	if ctx.BestAsk.IsZero() {
		return Block(g.Name(), "no ask to measure edge against", true)
	}
	edge := ctx.OraclePrice.Sub(ctx.BestAsk).Abs().DivOr(ctx.BestAsk, decimal.Zero)
	if edge.Lt(g.MinEdge) {
		return Block(g.Name(), "edge below minimum", true).WithValues(edge, g.MinEdge)
	}
	return Allow()
}

// PortfolioRisk blocks when -dailyPnl/balance reaches MaxDrawdown.
type PortfolioRisk struct {
	MaxDrawdown decimal.Decimal
}

func (g PortfolioRisk) Name() string { return "PortfolioRisk" }

func (g PortfolioRisk) Check(ctx Context) Decision {
	if ctx.Balance.IsZero() {
		return Allow()
	}
	drawdown := ctx.DailyPnl.Neg().DivOr(ctx.Balance, decimal.Zero)
	if drawdown.Gte(g.MaxDrawdown) {
		return Block(g.Name(), "portfolio drawdown at maximum", false).WithValues(drawdown, g.MaxDrawdown)
	}
	return Allow()
}

// Toxicity blocks condition ids present on a static block-list, grounded on
// RiskGate.assetDisabled generalized from a derived-at-runtime set into an
// operator-supplied one.
type Toxicity struct {
	BlockList map[string]bool
}

func (g Toxicity) Name() string { return "Toxicity" }

func (g Toxicity) Check(ctx Context) Decision {
	if g.BlockList[ctx.ConditionId.String()] {
		return Block(g.Name(), "condition is on the toxicity block-list", false)
	}
	return Allow()
}

// UsdcRejection blocks any condition id containing "usdc.e" (case
// insensitive), guarding against the wrapped-USDC markets the engine
// never intends to trade.
type UsdcRejection struct{}

func (g UsdcRejection) Name() string { return "UsdcRejection" }

func (g UsdcRejection) Check(ctx Context) Decision {
	if strings.Contains(strings.ToLower(ctx.ConditionId.String()), "usdc.e") {
		return Block(g.Name(), "usdc.e markets are rejected", false)
	}
	return Allow()
}
