// Package signal implements the SignalDetector contract of spec.md 4.10:
// a narrow, read-only TickView the detector evaluates against, and the
// Signal/OrderIntent value types it produces. Grounded on the teacher's
// strategy.Signal and SignalBuilder (strategy/interface.go), generalized
// from strategy-authored string fields ("YES"/"LONG") into the engine's
// typed market.Side/Direction and restricted so a detector can never see
// positions, the registry, or guards — those stay the orchestrator's job.
package signal

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

// Direction is the order side a Signal intends to act on.
type Direction int

const (
	Buy Direction = iota
	Sell
)

func (d Direction) String() string {
	if d == Sell {
		return "SELL"
	}
	return "BUY"
}

// TickView is the narrow market snapshot a Detector may read. It never
// exposes positions, the order registry, or guard state.
type TickView interface {
	ConditionId() ids.ConditionId
	Now() int64
	OraclePrice() decimal.Decimal
	Spot() decimal.Decimal
	BestBid(side market.Side) decimal.Decimal
	BestAsk(side market.Side) decimal.Decimal
	Spread(side market.Side) decimal.Decimal
	SpreadPct(side market.Side) decimal.Decimal
	TimeRemainingMs() int64
}

// Signal is a detector's entry candidate, generalizing the teacher's
// Signal/SignalBuilder fluent struct into the engine's typed fields.
type Signal struct {
	ConditionId ids.ConditionId
	Side        market.Side
	Direction   Direction
	Confidence  decimal.Decimal
	Reason      string
}

// Builder constructs a Signal fluently, mirroring strategy.SignalBuilder's
// chained-setter style.
type Builder struct {
	s Signal
}

func NewBuilder() *Builder {
	return &Builder{s: Signal{Direction: Buy, Confidence: decimal.MustFrom("0.5")}}
}

func (b *Builder) ConditionId(cid ids.ConditionId) *Builder { b.s.ConditionId = cid; return b }
func (b *Builder) Side(side market.Side) *Builder            { b.s.Side = side; return b }
func (b *Builder) Direction(dir Direction) *Builder          { b.s.Direction = dir; return b }
func (b *Builder) Confidence(c decimal.Decimal) *Builder     { b.s.Confidence = c; return b }
func (b *Builder) Reason(reason string) *Builder             { b.s.Reason = reason; return b }

func (b *Builder) Build() Signal { return b.s }

// OrderIntent is the fully-specified order a Detector's ToOrder produces.
type OrderIntent struct {
	ConditionId ids.ConditionId
	TokenId     ids.MarketTokenId
	Side        market.Side
	Direction   Direction
	Price       decimal.Decimal
	Size        decimal.Decimal
}

// NewOrderIntent validates 0<=price<=1 and size>0, matching spec.md 4.10's
// intent-factory invariant.
func NewOrderIntent(cid ids.ConditionId, tokenId ids.MarketTokenId, side market.Side, direction Direction, price, size decimal.Decimal) xresult.Result[OrderIntent] {
	if price.Lt(decimal.Zero) || price.Gt(decimal.One) {
		return xresult.Err[OrderIntent](xerrors.New(xerrors.KindInvalidState, "signal: price %s out of [0,1]", price))
	}
	if !size.IsPositive() {
		return xresult.Err[OrderIntent](xerrors.New(xerrors.KindInvalidState, "signal: size %s must be positive", size))
	}
	return xresult.Ok(OrderIntent{
		ConditionId: cid,
		TokenId:     tokenId,
		Side:        side,
		Direction:   direction,
		Price:       price,
		Size:        size,
	})
}

// Detector is the pluggable entry-detection strategy. Implementations must
// be pure functions of TickView — no positions, registry, or guard access.
type Detector interface {
	DetectEntry(ctx TickView) *Signal
	ToOrder(s Signal, ctx TickView) xresult.Result[OrderIntent]
}
