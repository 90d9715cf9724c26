package guards

import (
	"sync"

	"github.com/flowstate-labs/predengine/ids"
)

// RateLimit blocks once the count of orders recorded within a trailing
// WindowMs reaches Limit. State is pruned lazily on every Check/Record call
// rather than by a background timer, keeping the guard synchronous per
// spec.md 5's "all other component operations are pure/synchronous" rule.
type RateLimit struct {
	mu        sync.Mutex
	Limit     int
	WindowMs  int64
	timestamps []int64
}

func NewRateLimit(limit int, windowMs int64) *RateLimit {
	return &RateLimit{Limit: limit, WindowMs: windowMs}
}

func (g *RateLimit) Name() string { return "RateLimit" }

func (g *RateLimit) Check(ctx Context) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(ctx.NowMs)
	if len(g.timestamps) >= g.Limit {
		return Block(g.Name(), "order rate limit reached", true)
	}
	return Allow()
}

// Record registers a submitted order's timestamp. Called by the tick
// orchestrator after a successful submission, never by Check itself.
func (g *RateLimit) Record(nowMs int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prune(nowMs)
	g.timestamps = append(g.timestamps, nowMs)
}

func (g *RateLimit) prune(nowMs int64) {
	cutoff := nowMs - g.WindowMs
	i := 0
	for i < len(g.timestamps) && g.timestamps[i] < cutoff {
		i++
	}
	if i > 0 {
		g.timestamps = g.timestamps[i:]
	}
}

// PerMarketLimit blocks once a single condition id accumulates Limit
// recorded orders, independent of the global RateLimit window.
type PerMarketLimit struct {
	mu     sync.Mutex
	Limit  int
	counts map[ids.ConditionId]int
}

func NewPerMarketLimit(limit int) *PerMarketLimit {
	return &PerMarketLimit{Limit: limit, counts: make(map[ids.ConditionId]int)}
}

func (g *PerMarketLimit) Name() string { return "PerMarketLimit" }

func (g *PerMarketLimit) Check(ctx Context) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counts[ctx.ConditionId] >= g.Limit {
		return Block(g.Name(), "per-market order limit reached", true)
	}
	return Allow()
}

// Record increments the per-condition order count.
func (g *PerMarketLimit) Record(cid ids.ConditionId) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counts[cid]++
}
