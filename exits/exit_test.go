package exits

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/positions"
)

func samplePosition() positions.Position {
	return positions.Position{
		ConditionId:   ids.ConditionId("cond"),
		TokenId:       ids.MarketTokenId("tok"),
		Side:          market.Yes,
		EntryPrice:    decimal.MustFrom("0.40"),
		Size:          decimal.MustFrom("100"),
		CostBasis:     decimal.MustFrom("40"),
		HighWaterMark: decimal.MustFrom("0.40"),
		EntryTimeMs:   0,
	}
}

func TestPipelineFirstReasonWins(t *testing.T) {
	pos := samplePosition()
	p := New().
		With(TakeProfitPolicy{TargetPct: decimal.MustFrom("0.10")}).
		With(StopLossPolicy{StopPct: decimal.MustFrom("0.50")})

	ctx := Context{BestBid: decimal.MustFrom("0.46")} // hits TP (>=0.44) but not SL
	reason, ok := p.Evaluate(pos, ctx)
	assert.True(t, ok)
	assert.Equal(t, TakeProfit, reason)
}

func TestStopLossFires(t *testing.T) {
	pos := samplePosition()
	p := StopLossPolicy{StopPct: decimal.MustFrom("0.25")}
	reason, ok := p.Evaluate(pos, Context{BestBid: decimal.MustFrom("0.29")})
	assert.True(t, ok)
	assert.Equal(t, StopLoss, reason)

	reason2, ok2 := p.Evaluate(pos, Context{BestBid: decimal.MustFrom("0.35")})
	assert.False(t, ok2)
	assert.Empty(t, reason2)
}

func TestTrailingStopRequiresActivation(t *testing.T) {
	pos := samplePosition()
	pos.HighWaterMark = decimal.MustFrom("0.50")
	p := TrailingStopPolicy{ActivationPct: decimal.MustFrom("0.10"), TrailPct: decimal.MustFrom("0.05")}

	// profit only 2.5% (0.41 vs 0.40 entry) -> not activated yet, no fire
	_, ok := p.Evaluate(pos, Context{BestBid: decimal.MustFrom("0.41")})
	assert.False(t, ok)
}

func TestTrailingStopFiresAfterActivation(t *testing.T) {
	pos := samplePosition()
	pos.HighWaterMark = decimal.MustFrom("0.60")
	p := TrailingStopPolicy{ActivationPct: decimal.MustFrom("0.10"), TrailPct: decimal.MustFrom("0.05")}

	// bestBid retreats below high*(1-0.05) = 0.57, and profit pct off
	// entry (0.56 vs 0.40) clears the 10% activation bar.
	reason, ok := p.Evaluate(pos, Context{BestBid: decimal.MustFrom("0.56")})
	assert.True(t, ok)
	assert.Equal(t, TrailingStop, reason)
}

func TestTimeExitFiresPastMaxHold(t *testing.T) {
	pos := samplePosition()
	p := TimeExitPolicy{MaxHoldMs: 1000}
	_, ok := p.Evaluate(pos, Context{NowMs: 500})
	assert.False(t, ok)

	reason, ok2 := p.Evaluate(pos, Context{NowMs: 1001})
	assert.True(t, ok2)
	assert.Equal(t, TimeExit, reason)
}

func TestNearExpiryFiresAtOrBelowThreshold(t *testing.T) {
	pos := samplePosition()
	p := NearExpiryPolicy{ThresholdMs: 60000}
	reason, ok := p.Evaluate(pos, Context{TimeRemainingMs: 30000})
	assert.True(t, ok)
	assert.Equal(t, NearExpiry, reason)

	_, ok2 := p.Evaluate(pos, Context{TimeRemainingMs: 120000})
	assert.False(t, ok2)
}

func TestProfitLockerOnlyActivatesOncePositive(t *testing.T) {
	pl := NewProfitLocker(decimal.MustFrom("0.5"))

	assert.False(t, pl.Update(decimal.MustFrom("-10")))
	assert.False(t, pl.Armed())

	assert.False(t, pl.Update(decimal.MustFrom("20")))
	assert.True(t, pl.Armed())
	assert.True(t, decimal.MustFrom("20").Eq(pl.Peak()))

	// drawdown from peak 20 to 9 is 55% >= 50% threshold
	assert.True(t, pl.Update(decimal.MustFrom("9")))
}
