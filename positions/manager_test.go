package positions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
)

func TestManagerOpenRejectsDuplicate(t *testing.T) {
	m := NewManager(0)
	cid := ids.ConditionId("cond-1")

	r1 := m.Open(cid, ids.MarketTokenId("tok-yes"), market.Yes, decimal.MustFrom("0.55"), decimal.MustFrom("100"), 1000)
	require.Nil(t, r1.Err)
	require.NotNil(t, r1.Manager)

	r2 := r1.Manager.Open(cid, ids.MarketTokenId("tok-yes"), market.Yes, decimal.MustFrom("0.60"), decimal.MustFrom("50"), 2000)
	assert.NotNil(t, r2.Err)
	assert.Nil(t, r2.Manager)

	assert.False(t, m.HasPosition(cid), "original manager must be unmodified")
	assert.True(t, r1.Manager.HasPosition(cid))
}

func TestManagerOpenIsImmutable(t *testing.T) {
	m0 := NewManager(0)
	cid := ids.ConditionId("cond-1")

	r := m0.Open(cid, ids.MarketTokenId("tok-yes"), market.Yes, decimal.MustFrom("0.5"), decimal.MustFrom("10"), 0)
	require.Nil(t, r.Err)

	assert.Equal(t, 0, m0.OpenCount())
	assert.Equal(t, 1, r.Manager.OpenCount())
}

func TestManagerCloseComputesPnlAndHistory(t *testing.T) {
	m := NewManager(0)
	cid := ids.ConditionId("cond-1")

	opened := m.Open(cid, ids.MarketTokenId("tok-yes"), market.Yes, decimal.MustFrom("0.40"), decimal.MustFrom("100"), 0).Manager

	closed := opened.Close(cid, decimal.MustFrom("0.55"), 5000)
	require.NotNil(t, closed)

	wantPnl := decimal.MustFrom("15") // (0.55-0.40)*100
	assert.True(t, wantPnl.Eq(closed.RealizedPnl), "got %s want %s", closed.RealizedPnl, wantPnl)

	assert.False(t, closed.Manager.HasPosition(cid))
	assert.Equal(t, 1, closed.Manager.ClosedCount())
	assert.True(t, wantPnl.Eq(closed.Manager.TotalRealizedPnl()))

	recent := closed.Manager.RecentClosed(1)
	require.Len(t, recent, 1)
	assert.Equal(t, int64(5000), recent[0].ClosedAtMs)
}

func TestManagerCloseNothingReturnsNil(t *testing.T) {
	m := NewManager(0)
	assert.Nil(t, m.Close(ids.ConditionId("missing"), decimal.MustFrom("0.5"), 0))
}

func TestManagerCloseEvictsOldestBeyondMaxClosed(t *testing.T) {
	m := NewManager(2)
	for i := 0; i < 3; i++ {
		cid := ids.ConditionId("cond")
		opened := m.Open(cid, ids.MarketTokenId("tok"), market.Yes, decimal.MustFrom("0.5"), decimal.MustFrom("1"), int64(i))
		require.Nil(t, opened.Err)
		closed := opened.Manager.Close(cid, decimal.MustFrom("0.6"), int64(i)+1)
		require.NotNil(t, closed)
		m = closed.Manager
	}
	assert.Equal(t, 2, m.ClosedCount())
	recent := m.RecentClosed(2)
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].ClosedAtMs)
	assert.Equal(t, int64(2), recent[1].ClosedAtMs)
}

func TestManagerReducePartial(t *testing.T) {
	m := NewManager(0)
	cid := ids.ConditionId("cond-1")
	opened := m.Open(cid, ids.MarketTokenId("tok"), market.Yes, decimal.MustFrom("0.40"), decimal.MustFrom("100"), 0).Manager

	reduced := opened.Reduce(cid, decimal.MustFrom("40"), decimal.MustFrom("0.50"), 10)
	require.NotNil(t, reduced)

	wantPnl := decimal.MustFrom("4") // (0.50-0.40)*40
	assert.True(t, wantPnl.Eq(reduced.RealizedPnl))

	pos, ok := reduced.Manager.Get(cid)
	require.True(t, ok)
	assert.True(t, decimal.MustFrom("60").Eq(pos.Size))
	assert.True(t, wantPnl.Eq(pos.RealizedPnl))
	assert.Equal(t, 0, reduced.Manager.ClosedCount())
}

func TestManagerReduceFullSizeDegeneratesToClose(t *testing.T) {
	m := NewManager(0)
	cid := ids.ConditionId("cond-1")
	opened := m.Open(cid, ids.MarketTokenId("tok"), market.Yes, decimal.MustFrom("0.40"), decimal.MustFrom("100"), 0).Manager

	reduced := opened.Reduce(cid, decimal.MustFrom("100"), decimal.MustFrom("0.50"), 10)
	require.NotNil(t, reduced)
	assert.False(t, reduced.Manager.HasPosition(cid))
	assert.Equal(t, 1, reduced.Manager.ClosedCount())
}

func TestManagerReduceRejectsOutOfRange(t *testing.T) {
	m := NewManager(0)
	cid := ids.ConditionId("cond-1")
	opened := m.Open(cid, ids.MarketTokenId("tok"), market.Yes, decimal.MustFrom("0.40"), decimal.MustFrom("100"), 0).Manager

	assert.Nil(t, opened.Reduce(cid, decimal.MustFrom("0"), decimal.MustFrom("0.5"), 0))
	assert.Nil(t, opened.Reduce(cid, decimal.MustFrom("101"), decimal.MustFrom("0.5"), 0))
	assert.Nil(t, opened.Reduce(cid, decimal.MustFrom("-5"), decimal.MustFrom("0.5"), 0))
}

func TestManagerMarkRaisesHighWaterMarkOnly(t *testing.T) {
	m := NewManager(0)
	cid := ids.ConditionId("cond-1")
	opened := m.Open(cid, ids.MarketTokenId("tok"), market.Yes, decimal.MustFrom("0.40"), decimal.MustFrom("10"), 0).Manager

	raised := opened.Mark(cid, decimal.MustFrom("0.70"))
	pos, _ := raised.Get(cid)
	assert.True(t, decimal.MustFrom("0.70").Eq(pos.HighWaterMark))

	lowered := raised.Mark(cid, decimal.MustFrom("0.50"))
	pos2, _ := lowered.Get(cid)
	assert.True(t, decimal.MustFrom("0.70").Eq(pos2.HighWaterMark), "high water mark must never drop")
}

func TestManagerTotalNotional(t *testing.T) {
	m := NewManager(0)
	m = m.Open(ids.ConditionId("a"), ids.MarketTokenId("ta"), market.Yes, decimal.MustFrom("0.5"), decimal.MustFrom("10"), 0).Manager
	m = m.Open(ids.ConditionId("b"), ids.MarketTokenId("tb"), market.No, decimal.MustFrom("0.25"), decimal.MustFrom("20"), 0).Manager

	want := decimal.MustFrom("10") // 0.5*10 + 0.25*20 = 5 + 5
	assert.True(t, want.Eq(m.TotalNotional()))
}
