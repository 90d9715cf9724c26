// Package positions implements the immutable PositionManager of spec.md 3/4.7:
// a map of open Positions plus a bounded, FIFO-evicted history of
// ClosedPosition snapshots. Every mutating operation returns a fresh
// Manager value rather than mutating in place, generalizing the mutable
// map-of-pointers style in the teacher's execution/executor.go
// (e.Executor.positions) into the value-semantics the redesign notes call
// for ("builders return new immutable values by copy").
package positions

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
)

// Position is an open position owned exclusively by the Manager.
type Position struct {
	ConditionId   ids.ConditionId
	TokenId       ids.MarketTokenId
	Side          market.Side
	EntryPrice    decimal.Decimal
	Size          decimal.Decimal
	CostBasis     decimal.Decimal
	RealizedPnl   decimal.Decimal
	HighWaterMark decimal.Decimal
	EntryTimeMs   int64
}

// Drawdown returns max(0, (highWaterMark-mark)/highWaterMark).
func (p Position) Drawdown(mark decimal.Decimal) decimal.Decimal {
	if p.HighWaterMark.IsZero() {
		return decimal.Zero
	}
	diff := p.HighWaterMark.Sub(mark)
	if diff.IsNegative() {
		return decimal.Zero
	}
	return diff.DivOr(p.HighWaterMark, decimal.Zero)
}

// WithMark returns a copy of p with HighWaterMark raised to mark if mark
// exceeds the current high-water mark, and never lowered.
func (p Position) WithMark(mark decimal.Decimal) Position {
	if mark.Gt(p.HighWaterMark) {
		p.HighWaterMark = mark
	}
	return p
}

// ClosedPosition is the immutable snapshot produced when a Position is
// closed or fully reduced.
type ClosedPosition struct {
	ConditionId ids.ConditionId
	TokenId     ids.MarketTokenId
	Side        market.Side
	EntryPrice  decimal.Decimal
	ExitPrice   decimal.Decimal
	Size        decimal.Decimal
	RealizedPnl decimal.Decimal
	EntryTimeMs int64
	ClosedAtMs  int64
}
