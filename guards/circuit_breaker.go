package guards

import (
	"sync"

	"github.com/flowstate-labs/predengine/decimal"
)

// CircuitBreaker trips on either consecutive losses or a daily-loss ratio
// breach and auto-resets after CooldownMs, grounded on
// risk/circuit_breaker.go's CircuitBreaker generalized to take its inputs
// from Context/RecordLoss rather than reading time.Now and a hardcoded
// decimal package directly.
type CircuitBreaker struct {
	mu sync.Mutex

	MaxConsecutiveLosses int
	MaxDailyLossPct      decimal.Decimal
	CooldownMs           int64

	consecutiveLosses int
	tripped           bool
	trippedAtMs       int64
	reason            string
}

func NewCircuitBreaker(maxConsecutiveLosses int, maxDailyLossPct decimal.Decimal, cooldownMs int64) *CircuitBreaker {
	return &CircuitBreaker{
		MaxConsecutiveLosses: maxConsecutiveLosses,
		MaxDailyLossPct:      maxDailyLossPct,
		CooldownMs:           cooldownMs,
	}
}

func (g *CircuitBreaker) Name() string { return "CircuitBreaker" }

func (g *CircuitBreaker) Check(ctx Context) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.tripped {
		if ctx.NowMs-g.trippedAtMs >= g.CooldownMs {
			g.tripped = false
			g.consecutiveLosses = 0
			g.reason = ""
			return Allow()
		}
		return Block(g.Name(), "circuit breaker tripped: "+g.reason, true)
	}

	if !g.MaxDailyLossPct.IsZero() && !ctx.Balance.IsZero() {
		lossPct := ctx.DailyPnl.Neg().DivOr(ctx.Balance, decimal.Zero)
		if lossPct.Gte(g.MaxDailyLossPct) {
			g.trip("daily loss limit exceeded", ctx.NowMs)
			return Block(g.Name(), "circuit breaker tripped: daily loss limit exceeded", true)
		}
	}
	return Allow()
}

// RecordLoss increments the consecutive-loss counter, tripping the breaker
// once it reaches MaxConsecutiveLosses.
func (g *CircuitBreaker) RecordLoss(nowMs int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveLosses++
	if g.consecutiveLosses >= g.MaxConsecutiveLosses {
		g.trip("consecutive losses", nowMs)
	}
}

// RecordWin resets the consecutive-loss counter.
func (g *CircuitBreaker) RecordWin() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveLosses = 0
}

// IsTripped reports the current trip state.
func (g *CircuitBreaker) IsTripped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tripped
}

// ForceReset manually clears the breaker, independent of cooldown.
func (g *CircuitBreaker) ForceReset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tripped = false
	g.consecutiveLosses = 0
	g.reason = ""
}

func (g *CircuitBreaker) trip(reason string, nowMs int64) {
	g.tripped = true
	g.trippedAtMs = nowMs
	g.reason = reason
}
