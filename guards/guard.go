// Package guards implements the GuardPipeline of spec.md 4.8: an ordered,
// short-circuiting list of entry guards, generalized from the teacher's
// single monolithic RiskGate.CanEnter (risk/gate.go) into composable,
// independently testable guard values.
package guards

import (
	"fmt"

	"github.com/flowstate-labs/predengine/decimal"
	"github.com/flowstate-labs/predengine/ids"
	"github.com/flowstate-labs/predengine/market"
)

// Context is the narrow, read-only view a guard evaluates against. It
// mirrors the fields RiskGate.CanEnter read off TradeRequest and its own
// internal state, but collected into one value so guards never reach back
// into shared mutable components.
type Context struct {
	ConditionId ids.ConditionId
	Side        market.Side
	NowMs       int64

	SpreadPct        decimal.Decimal
	OpenCount        int
	Balance          decimal.Decimal
	TotalExposure    decimal.Decimal
	LastTradeTimeMs  *int64
	HasPendingOrder  bool
	BookAgeMs        *int64
	OraclePrice      decimal.Decimal
	BestAsk          decimal.Decimal
	DailyPnl         decimal.Decimal
}

// Decision is a guard's verdict. The zero value is Allow.
type Decision struct {
	Blocked      bool
	GuardName    string
	Reason       string
	Recoverable  bool
	CurrentValue *decimal.Decimal
	Threshold    *decimal.Decimal
}

// Allow is the pass-through decision.
func Allow() Decision { return Decision{} }

// Block builds a blocking decision with optional current/threshold values
// for observability, matching the GuardBlocked event shape of spec.md 7.
func Block(guardName, reason string, recoverable bool) Decision {
	return Decision{Blocked: true, GuardName: guardName, Reason: reason, Recoverable: recoverable}
}

// WithValues attaches current/threshold decimals to a blocking Decision,
// returning a copy.
func (d Decision) WithValues(current, threshold decimal.Decimal) Decision {
	d.CurrentValue = &current
	d.Threshold = &threshold
	return d
}

// Guard is a single entry condition. Check must be pure and side-effect
// free except for guards that legitimately carry their own running state
// (RateLimit, PerMarketLimit, KillSwitch, CircuitBreaker); even those never
// mutate Context or any collaborator.
type Guard interface {
	Name() string
	Check(ctx Context) Decision
}

// Pipeline is an immutable, ordered list of Guards evaluated with
// short-circuit block semantics.
type Pipeline struct {
	guards []Guard
}

// New builds an empty pipeline.
func New() *Pipeline { return &Pipeline{} }

// With returns a new pipeline with g appended, leaving the receiver
// untouched.
func (p *Pipeline) With(g Guard) *Pipeline {
	next := make([]Guard, len(p.guards), len(p.guards)+1)
	copy(next, p.guards)
	next = append(next, g)
	return &Pipeline{guards: next}
}

// Evaluate runs every guard in order, returning the first Block. A guard
// whose Check panics is treated as a Block with reason "guard error" per
// spec.md 7's local-recovery rule, rather than propagating to the tick.
func (p *Pipeline) Evaluate(ctx Context) (decision Decision) {
	for _, g := range p.guards {
		d := safeCheck(g, ctx)
		if d.Blocked {
			return d
		}
	}
	return Allow()
}

func safeCheck(g Guard, ctx Context) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = Block(g.Name(), "guard error", true)
		}
	}()
	return g.Check(ctx)
}

// GuardNames returns the pipeline's guards in evaluation order.
func (p *Pipeline) GuardNames() []string {
	names := make([]string, len(p.guards))
	for i, g := range p.guards {
		names[i] = g.Name()
	}
	return names
}

func (p *Pipeline) Len() int     { return len(p.guards) }
func (p *Pipeline) IsEmpty() bool { return len(p.guards) == 0 }

// RequireGuards fails if any name in required is missing from the
// pipeline — a build-time assertion strategies use to pin which guards
// must be present before going live.
func (p *Pipeline) RequireGuards(required []string) error {
	present := make(map[string]bool, len(p.guards))
	for _, name := range p.GuardNames() {
		present[name] = true
	}
	for _, want := range required {
		if !present[want] {
			return fmt.Errorf("guards: required guard %q missing from pipeline", want)
		}
	}
	return nil
}
