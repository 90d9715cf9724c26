// Package marketdata implements the in-memory order book the tick loop
// reads signal.TickView from, grounded on the teacher's feeds/orderbook.go
// Orderbook (bids/asks as sorted Level slices, BestBid/BestAsk/Mid/Spread)
// generalized from a single-market, []interface{}-keyed WS payload onto
// wsmanager.BookUpdate's typed PriceLevel frames and a per-ConditionId
// table, with the No side's levels derived from the Yes side via
// market.ComplementPrice since the feed only streams one side of a binary
// market's book.
package marketdata

import (
	"sort"
	"sync"

	"github.com/flowstate-labs/predengine/clock"
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/signal"
	"github.com/flowstate-labs/predengine/wsmanager"
)

// Level is one price/size point, parsed from wsmanager.PriceLevel.
type Level struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

type book struct {
	bids        []Level // highest first
	asks        []Level // lowest first
	lastTouchMs int64
	expiresAtMs int64
}

// Tracker is the keyed table of per-condition books. The zero value is
// not usable; construct with New.
type Tracker struct {
	mu    sync.RWMutex
	clk   clock.Clock
	books map[ids.ConditionId]*book
}

func New(clk clock.Clock) *Tracker {
	return &Tracker{clk: clk, books: make(map[ids.ConditionId]*book)}
}

// Ingest applies a book_update frame, replacing that condition's levels
// wholesale — the feed always sends a full snapshot per spec.md 6, never
// a delta.
func (t *Tracker) Ingest(update wsmanager.BookUpdate) {
	cid := ids.ConditionId(update.ConditionId)
	bids := parseLevels(update.Bids)
	asks := parseLevels(update.Asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price.Gt(bids[j].Price) })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price.Lt(asks[j].Price) })

	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.books[cid]
	if !ok {
		b = &book{}
		t.books[cid] = b
	}
	b.bids = bids
	b.asks = asks
	b.lastTouchMs = update.TimestampMs
}

// SetExpiry records the market's close time, used for TimeRemainingMs.
func (t *Tracker) SetExpiry(cid ids.ConditionId, expiresAtMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.books[cid]
	if !ok {
		b = &book{}
		t.books[cid] = b
	}
	b.expiresAtMs = expiresAtMs
}

func parseLevels(raw []wsmanager.PriceLevel) []Level {
	out := make([]Level, 0, len(raw))
	for _, lvl := range raw {
		priceResult := decimal.From(lvl.Price)
		sizeResult := decimal.From(lvl.Size)
		if priceResult.IsErr() || sizeResult.IsErr() {
			continue
		}
		out = append(out, Level{Price: priceResult.Unwrap(), Size: sizeResult.Unwrap()})
	}
	return out
}

// View returns a point-in-time signal.TickView for cid, or false if no
// book has ever been ingested for it.
func (t *Tracker) View(cid ids.ConditionId) (signal.TickView, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.books[cid]
	if !ok {
		return nil, false
	}
	return view{cid: cid, b: *b, nowMs: t.clk.NowMs()}, true
}

// BookAgeMs returns milliseconds since the last ingest for cid, or nil if
// unknown — the shape tickengine.TickContext.BookAgeMs expects.
func (t *Tracker) BookAgeMs(cid ids.ConditionId) *int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.books[cid]
	if !ok {
		return nil
	}
	age := t.clk.NowMs() - b.lastTouchMs
	return &age
}

type view struct {
	cid   ids.ConditionId
	b     book
	nowMs int64
}

var _ signal.TickView = view{}

func (v view) ConditionId() ids.ConditionId { return v.cid }
func (v view) Now() int64                   { return v.nowMs }

func (v view) OraclePrice() decimal.Decimal { return v.mid() }
func (v view) Spot() decimal.Decimal        { return v.mid() }

func (v view) mid() decimal.Decimal {
	bid := v.yesBestBid()
	ask := v.yesBestAsk()
	if bid.IsZero() || ask.IsZero() {
		return decimal.Zero
	}
	return bid.Add(ask).DivOr(decimal.FromInt(2), decimal.Zero)
}

func (v view) yesBestBid() decimal.Decimal {
	if len(v.b.bids) == 0 {
		return decimal.Zero
	}
	return v.b.bids[0].Price
}

func (v view) yesBestAsk() decimal.Decimal {
	if len(v.b.asks) == 0 {
		return decimal.Zero
	}
	return v.b.asks[0].Price
}

func (v view) BestBid(side market.Side) decimal.Decimal {
	if side == market.Yes {
		return v.yesBestBid()
	}
	ask := v.yesBestAsk()
	if ask.IsZero() {
		return decimal.Zero
	}
	return market.ComplementPrice(ask)
}

func (v view) BestAsk(side market.Side) decimal.Decimal {
	if side == market.Yes {
		return v.yesBestAsk()
	}
	bid := v.yesBestBid()
	if bid.IsZero() {
		return decimal.Zero
	}
	return market.ComplementPrice(bid)
}

func (v view) Spread(side market.Side) decimal.Decimal {
	return v.BestAsk(side).Sub(v.BestBid(side))
}

func (v view) SpreadPct(side market.Side) decimal.Decimal {
	ask := v.BestAsk(side)
	return v.Spread(side).DivOr(ask, decimal.Zero)
}

func (v view) TimeRemainingMs() int64 {
	if v.b.expiresAtMs == 0 {
		return 0
	}
	remaining := v.b.expiresAtMs - v.nowMs
	if remaining < 0 {
		return 0
	}
	return remaining
}
