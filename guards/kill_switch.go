package guards

import (
	"sync"

	"github.com/flowstate-labs/predengine/decimal"
)

// KillSwitchMode is the KillSwitch's current severity.
type KillSwitchMode int

const (
	Off KillSwitchMode = iota
	ExitsOnly
	Full
)

func (m KillSwitchMode) String() string {
	switch m {
	case ExitsOnly:
		return "ExitsOnly"
	case Full:
		return "Full"
	default:
		return "Off"
	}
}

// KillSwitch auto-engages on daily-loss breach against a fixed reference
// balance, generalizing RiskGate's circuitTripped boolean into the
// three-mode Off/ExitsOnly/Full severity spec.md 4.8 requires. Per this
// engine's redesign decision, an auto-engaged switch only ever escalates
// (Off -> ExitsOnly -> Full) and is cleared exclusively by an explicit
// Disengage call — it never auto-resets on cooldown or on the loss ratio
// recovering, unlike RiskGate's time-based circuitTripped reset.
type KillSwitch struct {
	mu sync.Mutex

	SoftPct          decimal.Decimal
	HardPct          decimal.Decimal
	ReferenceBalance decimal.Decimal

	mode KillSwitchMode
}

func NewKillSwitch(softPct, hardPct, referenceBalance decimal.Decimal) *KillSwitch {
	return &KillSwitch{SoftPct: softPct, HardPct: hardPct, ReferenceBalance: referenceBalance}
}

func (g *KillSwitch) Name() string { return "KillSwitch" }

// Mode returns the current severity.
func (g *KillSwitch) Mode() KillSwitchMode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Disengage is the only way to clear an auto-engaged switch.
func (g *KillSwitch) Disengage() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mode = Off
}

// Engage manually forces a mode, for operator-triggered halts that bypass
// the loss-ratio computation entirely.
func (g *KillSwitch) Engage(mode KillSwitchMode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if mode > g.mode {
		g.mode = mode
	}
}

func (g *KillSwitch) Check(ctx Context) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ReferenceBalance.IsZero() {
		lossPct := ctx.DailyPnl.Neg().DivOr(g.ReferenceBalance, decimal.Zero)
		if lossPct.Gte(g.HardPct) {
			g.mode = Full
		} else if g.mode == Off && lossPct.Gte(g.SoftPct) {
			g.mode = ExitsOnly
		}
	}

	switch g.mode {
	case Off:
		return Allow()
	case ExitsOnly:
		return Block(g.Name(), "kill switch engaged: exits only", true)
	default:
		return Block(g.Name(), "kill switch engaged: full halt", false)
	}
}
