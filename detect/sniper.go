// Package detect implements the SignalDetector presets of spec.md 4.10:
// pluggable, pure functions of signal.TickView that produce at most one
// entry Signal per tick. Grounded on the teacher's strategy.Sniper
// (strategy/sniper.go) and feeds.BreakoutDetector (feeds/signals.go),
// generalized off strategy-owned price feeds and window scanners onto the
// narrow TickView the rest of this engine already exposes.
package detect

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/xresult"
)

// Sniper detects a near-expiry favorite: odds already in [MinOdds, MaxOdds]
// with TimeRemainingMs inside [MinTimeMs, MaxTimeMs], mirroring Sniper's
// entry_zone/time_window gates without the window-scanner's price-to-beat
// momentum check (TickView carries no historical price series).
type Sniper struct {
	TokenId     ids.MarketTokenId
	MinTimeMs   int64
	MaxTimeMs   int64
	MinOdds     decimal.Decimal
	MaxOdds     decimal.Decimal
	EntrySize   decimal.Decimal
}

func (d Sniper) DetectEntry(ctx signal.TickView) *signal.Signal {
	remaining := ctx.TimeRemainingMs()
	if remaining < d.MinTimeMs || remaining > d.MaxTimeMs {
		return nil
	}
	ask := ctx.BestAsk(market.Yes)
	if ask.Lt(d.MinOdds) || ask.Gt(d.MaxOdds) {
		return nil
	}
	sig := signal.NewBuilder().
		ConditionId(ctx.ConditionId()).
		Side(market.Yes).
		Direction(signal.Buy).
		Confidence(ask).
		Reason("sniper: favorite confirmed near expiry").
		Build()
	return &sig
}

func (d Sniper) ToOrder(s signal.Signal, ctx signal.TickView) xresult.Result[signal.OrderIntent] {
	price := ctx.BestAsk(s.Side)
	return signal.NewOrderIntent(s.ConditionId, d.TokenId, s.Side, s.Direction, price, d.EntrySize)
}
