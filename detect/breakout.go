package detect

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/xresult"
)

// priceWindow is a fixed-size ring of recent oracle prices, grounded on
// feeds.PriceWindow but kept private to this package since nothing else
// needs a general rolling window.
type priceWindow struct {
	prices []decimal.Decimal
	size   int
}

func newPriceWindow(size int) *priceWindow {
	return &priceWindow{size: size}
}

func (w *priceWindow) add(p decimal.Decimal) {
	w.prices = append(w.prices, p)
	if len(w.prices) > w.size {
		w.prices = w.prices[len(w.prices)-w.size:]
	}
}

func (w *priceWindow) isFull() bool { return len(w.prices) >= w.size }

func (w *priceWindow) low() decimal.Decimal {
	low := w.prices[0]
	for _, p := range w.prices[1:] {
		if p.Lt(low) {
			low = p
		}
	}
	return low
}

func (w *priceWindow) high() decimal.Decimal {
	high := w.prices[0]
	for _, p := range w.prices[1:] {
		if p.Gt(high) {
			high = p
		}
	}
	return high
}

func (w *priceWindow) rng() decimal.Decimal { return w.high().Sub(w.low()) }

func (w *priceWindow) close() decimal.Decimal { return w.prices[len(w.prices)-1] }

// Breakout fires once the oracle price closes outside Threshold of the
// rolling window's range, adapted from feeds.BreakoutDetector into a
// signal.Detector: Update must be called once per tick with the current
// oracle price before DetectEntry is evaluated, since TickView itself
// carries no price history.
type Breakout struct {
	window    *priceWindow
	Threshold decimal.Decimal
	MinRange  decimal.Decimal
	TokenId   ids.MarketTokenId
	EntrySize decimal.Decimal
}

func NewBreakout(windowSize int, threshold, minRange decimal.Decimal, tokenId ids.MarketTokenId, entrySize decimal.Decimal) *Breakout {
	return &Breakout{
		window:    newPriceWindow(windowSize),
		Threshold: threshold,
		MinRange:  minRange,
		TokenId:   tokenId,
		EntrySize: entrySize,
	}
}

// Update folds ctx's current oracle price into the rolling window. Call
// once per tick, before DetectEntry.
func (d *Breakout) Update(ctx signal.TickView) {
	d.window.add(ctx.OraclePrice())
}

func (d *Breakout) DetectEntry(ctx signal.TickView) *signal.Signal {
	if !d.window.isFull() || d.window.rng().Lt(d.MinRange) {
		return nil
	}
	rangeTop := d.window.low().Add(d.window.rng().Mul(d.Threshold))
	if d.window.close().Gte(rangeTop) {
		sig := signal.NewBuilder().
			ConditionId(ctx.ConditionId()).
			Side(market.Yes).
			Direction(signal.Buy).
			Confidence(d.Threshold).
			Reason("breakout: price closed above range threshold").
			Build()
		return &sig
	}

	rangeBottom := d.window.high().Sub(d.window.rng().Mul(d.Threshold))
	if d.window.close().Lte(rangeBottom) {
		sig := signal.NewBuilder().
			ConditionId(ctx.ConditionId()).
			Side(market.No).
			Direction(signal.Buy).
			Confidence(d.Threshold).
			Reason("breakout: price closed below range threshold").
			Build()
		return &sig
	}
	return nil
}

func (d *Breakout) ToOrder(s signal.Signal, ctx signal.TickView) xresult.Result[signal.OrderIntent] {
	price := ctx.BestAsk(s.Side)
	return signal.NewOrderIntent(s.ConditionId, d.TokenId, s.Side, s.Direction, price, d.EntrySize)
}
