// Package exits implements the ExitPipeline of spec.md 4.9: an ordered
// list of ExitPolicy values, each evaluated against a position snapshot and
// a narrow market context, producing the first reason to fire. Grounded on
// the teacher's risk/tp_sl.go TPSLManager, split from one monolithic
// CheckExit into composable policies and generalized off position-stored
// TakeProfit/StopLoss fields onto percentage parameters applied to
// entryPrice, since positions.Position carries no per-position target
// fields.
package exits

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/positions"
)

// Reason is the tag an ExitPolicy produces.
type Reason string

const (
	TakeProfit   Reason = "take_profit"
	StopLoss     Reason = "stop_loss"
	TrailingStop Reason = "trailing_stop"
	TimeExit     Reason = "time_exit"
	EdgeReversal Reason = "edge_reversal"
	NearExpiry   Reason = "near_expiry"
	Emergency    Reason = "emergency"
)

// Context is the narrow market view an ExitPolicy evaluates against.
type Context struct {
	NowMs           int64
	BestBid         decimal.Decimal // quoted for the position's side
	OraclePrice     decimal.Decimal
	TimeRemainingMs int64
	SpreadPct       decimal.Decimal
}

// Policy produces an exit reason for a position, or reports none.
type Policy interface {
	Name() string
	Evaluate(pos positions.Position, ctx Context) (Reason, bool)
}

// Pipeline is an ordered, first-reason-wins list of exit policies.
type Pipeline struct {
	policies []Policy
}

func New() *Pipeline { return &Pipeline{} }

// With returns a new pipeline with policy appended.
func (p *Pipeline) With(policy Policy) *Pipeline {
	next := make([]Policy, len(p.policies), len(p.policies)+1)
	copy(next, p.policies)
	next = append(next, policy)
	return &Pipeline{policies: next}
}

func (p *Pipeline) Len() int { return len(p.policies) }

// Evaluate returns the first reason any policy produces, in pipeline
// order, or (reason, false) if none fire.
func (p *Pipeline) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	for _, policy := range p.policies {
		if reason, ok := policy.Evaluate(pos, ctx); ok {
			return reason, true
		}
	}
	return "", false
}

// TakeProfitPolicy fires once bestBid reaches entryPrice*(1+TargetPct).
type TakeProfitPolicy struct {
	TargetPct decimal.Decimal
}

func (p TakeProfitPolicy) Name() string { return "TakeProfit" }

func (p TakeProfitPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	target := pos.EntryPrice.Mul(decimal.One.Add(p.TargetPct))
	if ctx.BestBid.Gte(target) {
		return TakeProfit, true
	}
	return "", false
}

// StopLossPolicy fires once bestBid falls to entryPrice*(1-StopPct).
type StopLossPolicy struct {
	StopPct decimal.Decimal
}

func (p StopLossPolicy) Name() string { return "StopLoss" }

func (p StopLossPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	floor := pos.EntryPrice.Mul(decimal.One.Sub(p.StopPct))
	if ctx.BestBid.Lte(floor) {
		return StopLoss, true
	}
	return "", false
}

// TrailingStopPolicy only starts trailing once unrealized profit reaches
// ActivationPct, then fires once bestBid retreats TrailPct off the
// position's high-water mark — mirroring TPSLManager.calculateTrailingStop,
// but reading the high-water mark already maintained by positions.Manager
// rather than mutating the position in place.
type TrailingStopPolicy struct {
	ActivationPct decimal.Decimal
	TrailPct      decimal.Decimal
}

func (p TrailingStopPolicy) Name() string { return "TrailingStop" }

func (p TrailingStopPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	profitPct := ctx.BestBid.Sub(pos.EntryPrice).DivOr(pos.EntryPrice, decimal.Zero)
	if profitPct.Lt(p.ActivationPct) {
		return "", false
	}
	trailFloor := pos.HighWaterMark.Mul(decimal.One.Sub(p.TrailPct))
	if ctx.BestBid.Lte(trailFloor) {
		return TrailingStop, true
	}
	return "", false
}

// TimeExitPolicy fires once a position has been held longer than MaxHoldMs.
type TimeExitPolicy struct {
	MaxHoldMs int64
}

func (p TimeExitPolicy) Name() string { return "TimeExit" }

func (p TimeExitPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	if ctx.NowMs-pos.EntryTimeMs > p.MaxHoldMs {
		return TimeExit, true
	}
	return "", false
}

// EdgeReversalPolicy fires once the oracle has moved against the entry
// thesis by at least MinEdge.
type EdgeReversalPolicy struct {
	MinEdge decimal.Decimal
}

func (p EdgeReversalPolicy) Name() string { return "EdgeReversal" }

func (p EdgeReversalPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	reversal := pos.EntryPrice.Sub(ctx.OraclePrice)
	if reversal.Gte(p.MinEdge) {
		return EdgeReversal, true
	}
	return "", false
}

// NearExpiryPolicy fires once remaining time drops to or below ThresholdMs.
type NearExpiryPolicy struct {
	ThresholdMs int64
}

func (p NearExpiryPolicy) Name() string { return "NearExpiry" }

func (p NearExpiryPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	if ctx.TimeRemainingMs >= 0 && ctx.TimeRemainingMs <= p.ThresholdMs {
		return NearExpiry, true
	}
	return "", false
}

// EmergencyPolicy fires when the spread blows out past MaxSpreadPct,
// signaling the book has effectively dried up.
type EmergencyPolicy struct {
	MaxSpreadPct decimal.Decimal
}

func (p EmergencyPolicy) Name() string { return "Emergency" }

func (p EmergencyPolicy) Evaluate(pos positions.Position, ctx Context) (Reason, bool) {
	if ctx.SpreadPct.Gt(p.MaxSpreadPct) {
		return Emergency, true
	}
	return "", false
}
