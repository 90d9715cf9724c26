// Package market holds the small shared value types — MarketSide and
// Candle — that many packages need and that must not import each other, the
// same "avoid import cycles" role the teacher's types package played.
package market

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/xerrors"
	"github.com/flowstate-labs/predengine/xresult"
)

// Side is a binary outcome side. Yes and No are complements of each other.
type Side int

const (
	Yes Side = iota
	No
)

func (s Side) String() string {
	if s == Yes {
		return "YES"
	}
	return "NO"
}

// Complement returns the other side.
func (s Side) Complement() Side {
	if s == Yes {
		return No
	}
	return Yes
}

// ComplementPrice returns 1-p clamped to [0,1], the price a complementary
// token trades at when p is this side's price.
func ComplementPrice(p decimal.Decimal) decimal.Decimal {
	return decimal.Clamp(decimal.One.Sub(p), decimal.Zero, decimal.One)
}

// Candle is an OHLCV bar. Construction validates low <= open,close <= high,
// volume >= 0, timestampMs >= 0 per spec.md 3, failing with KindInvalidCandle
// otherwise.
type Candle struct {
	Open        decimal.Decimal
	High        decimal.Decimal
	Low         decimal.Decimal
	Close       decimal.Decimal
	Volume      decimal.Decimal
	TimestampMs int64
}

// NewCandle validates and constructs a Candle.
func NewCandle(open, high, low, close, volume decimal.Decimal, timestampMs int64) xresult.Result[Candle] {
	if timestampMs < 0 {
		return xresult.Err[Candle](xerrors.New(xerrors.KindInvalidCandle, "candle: negative timestamp %d", timestampMs))
	}
	if volume.IsNegative() {
		return xresult.Err[Candle](xerrors.New(xerrors.KindInvalidCandle, "candle: negative volume %s", volume))
	}
	if low.Gt(open) || low.Gt(close) || low.Gt(high) {
		return xresult.Err[Candle](xerrors.New(xerrors.KindInvalidCandle, "candle: low must be <= open, close, high"))
	}
	if open.Gt(high) || close.Gt(high) {
		return xresult.Err[Candle](xerrors.New(xerrors.KindInvalidCandle, "candle: open/close must be <= high"))
	}
	return xresult.Ok(Candle{
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
		Volume:      volume,
		TimestampMs: timestampMs,
	})
}
