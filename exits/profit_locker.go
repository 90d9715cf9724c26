package exits

import (
	"sync"

	"github.com/flowstate-labs/predengine/decimal"
)

// ProfitLocker maintains a high-water mark of cumulative realized P&L
// across the whole book and reports a trigger once drawdown off that peak
// reaches DrawdownFraction. It only ever activates
// after the peak has gone positive — a book that has never been profitable
// has no high-water mark to protect, per spec.md 4.9.
type ProfitLocker struct {
	mu               sync.Mutex
	DrawdownFraction decimal.Decimal

	peak    decimal.Decimal
	armed   bool
}

func NewProfitLocker(drawdownFraction decimal.Decimal) *ProfitLocker {
	return &ProfitLocker{DrawdownFraction: drawdownFraction}
}

// Update feeds the latest cumulative realized P&L and reports whether the
// locker has triggered.
func (pl *ProfitLocker) Update(cumulativePnl decimal.Decimal) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if cumulativePnl.Gt(pl.peak) {
		pl.peak = cumulativePnl
	}
	if !pl.peak.IsPositive() {
		pl.armed = false
		return false
	}
	pl.armed = true

	drawdown := pl.peak.Sub(cumulativePnl).DivOr(pl.peak, decimal.Zero)
	return drawdown.Gte(pl.DrawdownFraction)
}

// Peak returns the current high-water mark.
func (pl *ProfitLocker) Peak() decimal.Decimal {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.peak
}

// Armed reports whether the peak has ever gone positive.
func (pl *ProfitLocker) Armed() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.armed
}
