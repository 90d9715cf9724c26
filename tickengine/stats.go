package tickengine

import (
	"sync"

	"github.com/flowstate-labs/predengine/decimal"
)

// Snapshot is a point-in-time read of the cumulative statistics.
type Snapshot struct {
	Trades      int
	Wins        int
	TotalPnl    decimal.Decimal
	TotalFees   decimal.Decimal
	Best        decimal.Decimal
	Worst       decimal.Decimal
	MaxDrawdown decimal.Decimal
}

// WinRate returns wins/trades, or 0 with no trades recorded.
func (s Snapshot) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}

// NetEquity returns totalPnl - totalFees, the basis max drawdown is
// computed against.
func (s Snapshot) NetEquity() decimal.Decimal { return s.TotalPnl.Sub(s.TotalFees) }

// Stats is the cumulative-statistics accumulator of spec.md 4.14: trade
// count, win rate, best/worst trade, max drawdown on net equity (totalPnl -
// totalFees), and total fees, maintained by subscribing to position_closed.
// A position_closed event with a negative fee is ignored by the accumulator
// (but still journaled upstream by the orchestrator, per spec.md 4.14); the
// "non-finite pnl/fee" half of that rule does not apply here since
// decimal.Decimal cannot represent NaN/Inf the way a float can.
type Stats struct {
	mu sync.Mutex

	trades    int
	wins      int
	hasTrade  bool
	totalPnl  decimal.Decimal
	totalFees decimal.Decimal
	best      decimal.Decimal
	worst     decimal.Decimal

	equityPeak  decimal.Decimal
	maxDrawdown decimal.Decimal
}

func NewStats() *Stats { return &Stats{} }

// Record folds one position_closed event into the running statistics.
func (s *Stats) Record(payload PositionClosedPayload) {
	if payload.Fee.IsNegative() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades++
	if payload.RealizedPnl.IsPositive() {
		s.wins++
	}
	if !s.hasTrade || payload.RealizedPnl.Gt(s.best) {
		s.best = payload.RealizedPnl
	}
	if !s.hasTrade || payload.RealizedPnl.Lt(s.worst) {
		s.worst = payload.RealizedPnl
	}
	s.hasTrade = true

	s.totalPnl = s.totalPnl.Add(payload.RealizedPnl)
	s.totalFees = s.totalFees.Add(payload.Fee)

	netEquity := s.totalPnl.Sub(s.totalFees)
	if netEquity.Gt(s.equityPeak) {
		s.equityPeak = netEquity
	}
	drawdown := s.equityPeak.Sub(netEquity)
	if drawdown.Gt(s.maxDrawdown) {
		s.maxDrawdown = drawdown
	}
}

// Snapshot returns a copy of the current statistics.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Trades:      s.trades,
		Wins:        s.wins,
		TotalPnl:    s.totalPnl,
		TotalFees:   s.totalFees,
		Best:        s.best,
		Worst:       s.worst,
		MaxDrawdown: s.maxDrawdown,
	}
}
