package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/xresult"
)

type fakeTickView struct {
	cid        ids.ConditionId
	now        int64
	oracle     decimal.Decimal
	spot       decimal.Decimal
	bid, ask   decimal.Decimal
	remainMs   int64
}

func (f fakeTickView) ConditionId() ids.ConditionId        { return f.cid }
func (f fakeTickView) Now() int64                          { return f.now }
func (f fakeTickView) OraclePrice() decimal.Decimal         { return f.oracle }
func (f fakeTickView) Spot() decimal.Decimal                { return f.spot }
func (f fakeTickView) BestBid(market.Side) decimal.Decimal  { return f.bid }
func (f fakeTickView) BestAsk(market.Side) decimal.Decimal  { return f.ask }
func (f fakeTickView) Spread(market.Side) decimal.Decimal   { return f.ask.Sub(f.bid) }
func (f fakeTickView) SpreadPct(market.Side) decimal.Decimal {
	return f.ask.Sub(f.bid).DivOr(f.ask, decimal.Zero)
}
func (f fakeTickView) TimeRemainingMs() int64 { return f.remainMs }

func TestBuilderBuildsSignal(t *testing.T) {
	s := NewBuilder().
		ConditionId(ids.ConditionId("cond-1")).
		Side(market.Yes).
		Direction(Buy).
		Confidence(decimal.MustFrom("0.8")).
		Reason("oracle edge").
		Build()

	assert.Equal(t, ids.ConditionId("cond-1"), s.ConditionId)
	assert.Equal(t, market.Yes, s.Side)
	assert.Equal(t, Buy, s.Direction)
	assert.True(t, decimal.MustFrom("0.8").Eq(s.Confidence))
}

func TestNewOrderIntentValidatesPriceRange(t *testing.T) {
	r := NewOrderIntent(ids.ConditionId("c"), ids.MarketTokenId("t"), market.Yes, Buy, decimal.MustFrom("1.5"), decimal.MustFrom("10"))
	assert.True(t, r.IsErr())

	r2 := NewOrderIntent(ids.ConditionId("c"), ids.MarketTokenId("t"), market.Yes, Buy, decimal.MustFrom("-0.1"), decimal.MustFrom("10"))
	assert.True(t, r2.IsErr())

	r3 := NewOrderIntent(ids.ConditionId("c"), ids.MarketTokenId("t"), market.Yes, Buy, decimal.MustFrom("0.5"), decimal.MustFrom("10"))
	assert.True(t, r3.IsOk())
}

func TestNewOrderIntentValidatesPositiveSize(t *testing.T) {
	r := NewOrderIntent(ids.ConditionId("c"), ids.MarketTokenId("t"), market.Yes, Buy, decimal.MustFrom("0.5"), decimal.Zero)
	assert.True(t, r.IsErr())
}

type edgeDetector struct {
	minEdge decimal.Decimal
}

func (d edgeDetector) DetectEntry(ctx TickView) *Signal {
	edge := ctx.OraclePrice().Sub(ctx.BestAsk(market.Yes)).Abs()
	if edge.Lt(d.minEdge) {
		return nil
	}
	s := NewBuilder().ConditionId(ctx.ConditionId()).Side(market.Yes).Direction(Buy).Reason("edge").Build()
	return &s
}

func (d edgeDetector) ToOrder(s Signal, ctx TickView) xresult.Result[OrderIntent] {
	return NewOrderIntent(s.ConditionId, ids.MarketTokenId("tok"), s.Side, s.Direction, ctx.BestAsk(s.Side), decimal.MustFrom("10"))
}

var _ Detector = edgeDetector{}

func TestDetectorDoesNotFireBelowMinEdge(t *testing.T) {
	det := edgeDetector{minEdge: decimal.MustFrom("0.05")}
	ctx := fakeTickView{oracle: decimal.MustFrom("0.52"), ask: decimal.MustFrom("0.50")}
	assert.Nil(t, det.DetectEntry(ctx))
}

func TestDetectorFiresAboveMinEdge(t *testing.T) {
	det := edgeDetector{minEdge: decimal.MustFrom("0.05")}
	ctx := fakeTickView{cid: ids.ConditionId("c"), oracle: decimal.MustFrom("0.60"), ask: decimal.MustFrom("0.50")}
	s := det.DetectEntry(ctx)
	assert.NotNil(t, s)
	assert.Equal(t, ids.ConditionId("c"), s.ConditionId)
}
