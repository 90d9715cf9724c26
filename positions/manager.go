package positions

import (
	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
	"github.com/flowstate-labs/predengine/xerrors"
)

// DefaultMaxClosed is spec.md 3's default closed-history cap.
const DefaultMaxClosed = 1000

// Manager is the immutable positions-by-condition map plus bounded closed
// history. The zero value is not usable; construct with NewManager.
type Manager struct {
	open             map[ids.ConditionId]Position
	closed           []ClosedPosition // oldest first
	maxClosed        int
	totalRealizedPnl decimal.Decimal
}

// NewManager builds an empty Manager. maxClosed <= 0 defaults to
// DefaultMaxClosed.
func NewManager(maxClosed int) *Manager {
	if maxClosed <= 0 {
		maxClosed = DefaultMaxClosed
	}
	return &Manager{
		open:      make(map[ids.ConditionId]Position),
		maxClosed: maxClosed,
	}
}

func (m *Manager) clone() *Manager {
	open := make(map[ids.ConditionId]Position, len(m.open))
	for k, v := range m.open {
		open[k] = v
	}
	closed := make([]ClosedPosition, len(m.closed))
	copy(closed, m.closed)
	return &Manager{
		open:             open,
		closed:           closed,
		maxClosed:        m.maxClosed,
		totalRealizedPnl: m.totalRealizedPnl,
	}
}

// OpenResult is the outcome of Open: either a fresh Manager, or Err set to
// the "already open" rejection.
type OpenResult struct {
	Manager *Manager
	Err     *xerrors.TradingError
}

// Open opens a new position for cid. Fails with KindInvalidState if one is
// already open for cid.
func (m *Manager) Open(cid ids.ConditionId, tokenId ids.MarketTokenId, side market.Side, entryPrice, size decimal.Decimal, entryTimeMs int64) OpenResult {
	if _, exists := m.open[cid]; exists {
		return OpenResult{Err: xerrors.New(xerrors.KindInvalidState, "positions: %s already open", cid)}
	}
	next := m.clone()
	next.open[cid] = Position{
		ConditionId:   cid,
		TokenId:       tokenId,
		Side:          side,
		EntryPrice:    entryPrice,
		Size:          size,
		CostBasis:     entryPrice.Mul(size),
		RealizedPnl:   decimal.Zero,
		HighWaterMark: entryPrice,
		EntryTimeMs:   entryTimeMs,
	}
	return OpenResult{Manager: next}
}

// CloseResult is the outcome of Close/Reduce: nil Manager means there was
// nothing to close.
type CloseResult struct {
	Manager     *Manager
	RealizedPnl decimal.Decimal
}

// Close closes the entire open position for cid at exitPrice, appending a
// ClosedPosition snapshot and evicting the oldest closed entry if the
// history exceeds maxClosed.
func (m *Manager) Close(cid ids.ConditionId, exitPrice decimal.Decimal, closedAtMs int64) *CloseResult {
	pos, ok := m.open[cid]
	if !ok {
		return nil
	}
	pnl := exitPrice.Sub(pos.EntryPrice).Mul(pos.Size)

	next := m.clone()
	delete(next.open, cid)
	next.closed = append(next.closed, ClosedPosition{
		ConditionId: pos.ConditionId,
		TokenId:     pos.TokenId,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Size:        pos.Size,
		RealizedPnl: pnl,
		EntryTimeMs: pos.EntryTimeMs,
		ClosedAtMs:  closedAtMs,
	})
	if len(next.closed) > next.maxClosed {
		next.closed = next.closed[len(next.closed)-next.maxClosed:]
	}
	next.totalRealizedPnl = next.totalRealizedPnl.Add(pnl)

	return &CloseResult{Manager: next, RealizedPnl: pnl}
}

// Reduce partially closes reduceSize of the open position for cid.
// Requires 0 < reduceSize <= size; if the resulting size is exactly zero
// this degenerates to a full Close. Returns nil if there is nothing to
// reduce or reduceSize is out of range.
func (m *Manager) Reduce(cid ids.ConditionId, reduceSize, exitPrice decimal.Decimal, closedAtMs int64) *CloseResult {
	pos, ok := m.open[cid]
	if !ok {
		return nil
	}
	if !reduceSize.IsPositive() || reduceSize.Gt(pos.Size) {
		return nil
	}
	if reduceSize.Eq(pos.Size) {
		return m.Close(cid, exitPrice, closedAtMs)
	}

	pnl := exitPrice.Sub(pos.EntryPrice).Mul(reduceSize)

	next := m.clone()
	remaining := pos
	remaining.Size = pos.Size.Sub(reduceSize)
	remaining.CostBasis = remaining.EntryPrice.Mul(remaining.Size)
	remaining.RealizedPnl = pos.RealizedPnl.Add(pnl)
	next.open[cid] = remaining
	next.totalRealizedPnl = next.totalRealizedPnl.Add(pnl)

	return &CloseResult{Manager: next, RealizedPnl: pnl}
}

// Mark returns a Manager with cid's high-water mark raised to mark, if
// mark is a new high. No-op (returns m unchanged) if cid has no open
// position or mark does not exceed the current high.
func (m *Manager) Mark(cid ids.ConditionId, mark decimal.Decimal) *Manager {
	pos, ok := m.open[cid]
	if !ok || !mark.Gt(pos.HighWaterMark) {
		return m
	}
	next := m.clone()
	next.open[cid] = pos.WithMark(mark)
	return next
}

// HasPosition reports whether cid has an open position.
func (m *Manager) HasPosition(cid ids.ConditionId) bool {
	_, ok := m.open[cid]
	return ok
}

// Get returns the open position for cid, if any.
func (m *Manager) Get(cid ids.ConditionId) (Position, bool) {
	p, ok := m.open[cid]
	return p, ok
}

// AllOpen returns every open position, order unspecified.
func (m *Manager) AllOpen() []Position {
	out := make([]Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, p)
	}
	return out
}

func (m *Manager) OpenCount() int   { return len(m.open) }
func (m *Manager) ClosedCount() int { return len(m.closed) }

// RecentClosed returns up to n most-recently-closed positions, newest
// first.
func (m *Manager) RecentClosed(n int) []ClosedPosition {
	if n <= 0 || len(m.closed) == 0 {
		return nil
	}
	if n > len(m.closed) {
		n = len(m.closed)
	}
	out := make([]ClosedPosition, n)
	for i := 0; i < n; i++ {
		out[i] = m.closed[len(m.closed)-1-i]
	}
	return out
}

// TotalNotional sums entryPrice*size across every open position.
func (m *Manager) TotalNotional() decimal.Decimal {
	total := decimal.Zero
	for _, p := range m.open {
		total = total.Add(p.CostBasis)
	}
	return total
}

// TotalRealizedPnl is the running sum of every realized P&L across every
// close/reduce ever performed.
func (m *Manager) TotalRealizedPnl() decimal.Decimal {
	return m.totalRealizedPnl
}
