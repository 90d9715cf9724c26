package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstate-labs/predengine/clock"
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/wsmanager"
)

func TestIngestAndViewYesSide(t *testing.T) {
	clk := clock.NewFake(1000)
	tr := New(clk)
	tr.Ingest(wsmanager.BookUpdate{
		ConditionId: "cond-1",
		Bids:        []wsmanager.PriceLevel{{Price: "0.48", Size: "100"}, {Price: "0.45", Size: "50"}},
		Asks:        []wsmanager.PriceLevel{{Price: "0.52", Size: "80"}},
		TimestampMs: 1000,
	})

	view, ok := tr.View(ids.ConditionId("cond-1"))
	require.True(t, ok)
	assert.True(t, view.BestBid(market.Yes).Eq(decimal.MustFrom("0.48")))
	assert.True(t, view.BestAsk(market.Yes).Eq(decimal.MustFrom("0.52")))
	assert.True(t, view.Spread(market.Yes).IsPositive())
}

func TestNoSideDerivedFromComplement(t *testing.T) {
	clk := clock.NewFake(1000)
	tr := New(clk)
	tr.Ingest(wsmanager.BookUpdate{
		ConditionId: "cond-1",
		Bids:        []wsmanager.PriceLevel{{Price: "0.40", Size: "10"}},
		Asks:        []wsmanager.PriceLevel{{Price: "0.60", Size: "10"}},
		TimestampMs: 1000,
	})

	view, ok := tr.View(ids.ConditionId("cond-1"))
	require.True(t, ok)
	assert.True(t, view.BestBid(market.No).Eq(decimal.MustFrom("0.4")))
	assert.True(t, view.BestAsk(market.No).Eq(decimal.MustFrom("0.6")))
}

func TestViewUnknownConditionReturnsFalse(t *testing.T) {
	tr := New(clock.NewFake(1000))
	_, ok := tr.View(ids.ConditionId("missing"))
	assert.False(t, ok)
}

func TestBookAgeMsTracksIngestTime(t *testing.T) {
	clk := clock.NewFake(1000)
	tr := New(clk)
	tr.Ingest(wsmanager.BookUpdate{ConditionId: "cond-1", TimestampMs: 1000})

	clk.Advance(500 * time.Millisecond)
	age := tr.BookAgeMs(ids.ConditionId("cond-1"))
	require.NotNil(t, age)
	assert.Equal(t, int64(500), *age)
}
