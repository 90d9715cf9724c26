// Package watchdog implements the ConnectivityWatchdog of spec.md 4.12:
// a liveness timer fed by every market-data touch, tri-state healthy.
// There is no direct teacher equivalent — feeds/polymarket_ws.go inlines a
// raw lastMessageTime check — so this generalizes that inline pattern into
// a standalone, clock-injected component any component can consult.
package watchdog

import (
	"github.com/flowstate-labs/predengine/clock"
)

// Status is the watchdog's tri-state liveness classification.
type Status int

const (
	Healthy Status = iota
	Degraded
	Critical
)

func (s Status) String() string {
	switch s {
	case Degraded:
		return "degraded"
	case Critical:
		return "critical"
	default:
		return "healthy"
	}
}

// Watchdog tracks the last time market data was observed.
type Watchdog struct {
	clk         clock.Clock
	warningMs   int64
	criticalMs  int64
	lastTouchMs int64
}

// New builds a Watchdog, initializing lastTouchMs from clk.
func New(clk clock.Clock, warningMs, criticalMs int64) *Watchdog {
	return &Watchdog{clk: clk, warningMs: warningMs, criticalMs: criticalMs, lastTouchMs: clk.NowMs()}
}

// Touch resets the liveness timer; call on every observed market event.
func (w *Watchdog) Touch() {
	w.lastTouchMs = w.clk.NowMs()
}

// SilenceMs returns now-lastTouch. Tolerant of a clock that moves
// backward: the result may be negative, which Status resolves as Healthy.
func (w *Watchdog) SilenceMs() int64 {
	return w.clk.NowMs() - w.lastTouchMs
}

// Status classifies the current silence duration.
func (w *Watchdog) Status() Status {
	elapsed := w.SilenceMs()
	switch {
	case elapsed >= w.criticalMs:
		return Critical
	case elapsed >= w.warningMs:
		return Degraded
	default:
		return Healthy
	}
}

// ShouldBlockEntries reports whether the watchdog's status disqualifies
// new entries.
func (w *Watchdog) ShouldBlockEntries() bool {
	return w.Status() != Healthy
}
