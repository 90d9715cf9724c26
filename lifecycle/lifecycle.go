// Package lifecycle implements the seven-state strategy lifecycle finite
// state machine of spec.md 4.11. The teacher has no equivalent explicit FSM
// — engine/core.go tracks a handful of loose booleans (running, paused) —
// so this is built fresh in the idiomatic Go style the rest of the teacher's
// state (OrderState, the executor's atomic flags) already uses: a small
// closed enum plus one explicit transition method per event, never an
// open-ended string status.
package lifecycle

import (
	"fmt"

	"github.com/flowstate-labs/predengine/clock"
)

// State is one of the seven lifecycle states.
type State string

const (
	Initializing State = "initializing"
	WarmingUp    State = "warming_up"
	Active       State = "active"
	Paused       State = "paused"
	ClosingOnly  State = "closing_only"
	Halted       State = "halted"
	Shutdown     State = "shutdown"
)

// Event is a lifecycle transition trigger.
type Event string

const (
	EventInitialize     Event = "initialize"
	EventUpdateWarmup   Event = "update_warmup"
	EventWarmupComplete Event = "warmup_complete"
	EventPause          Event = "pause"
	EventResume         Event = "resume"
	EventEnterClosingOnly Event = "enter_closing_only"
	EventHalt           Event = "halt"
	EventShutdown       Event = "shutdown"
)

const maxHistory = 100

// ErrCannotResumeFromHalt is returned when resume is attempted from Halted.
var ErrCannotResumeFromHalt = fmt.Errorf("lifecycle: cannot resume from halted")

// ErrAlreadyTerminal is returned for any transition attempted out of
// Shutdown, or a halt attempted from Shutdown.
var ErrAlreadyTerminal = fmt.Errorf("lifecycle: already in terminal shutdown state")

// TransitionEntry is one FIFO history record.
type TransitionEntry struct {
	From      State
	To        State
	Event     Event
	Reason    string
	TimestampMs int64
}

// Metadata carries event-specific payload: warmup percent or a halt/pause
// reason.
type Metadata struct {
	WarmupPct int
	Reason    string
}

// Machine is the lifecycle state machine. The zero value is not usable;
// construct with New.
type Machine struct {
	clk           clock.Clock
	state         State
	warmupPct     int
	enteredAtMs   int64
	history       []TransitionEntry
}

// New builds a Machine starting in Initializing.
func New(clk clock.Clock) *Machine {
	return &Machine{clk: clk, state: Initializing, enteredAtMs: clk.NowMs()}
}

func (m *Machine) State() State { return m.state }

// TimeInState returns milliseconds since the last state entry.
func (m *Machine) TimeInState() int64 {
	return m.clk.NowMs() - m.enteredAtMs
}

// CanOpen reports whether new entries are permitted.
func (m *Machine) CanOpen() bool { return m.state == Active }

// CanClose reports whether exits are permitted.
func (m *Machine) CanClose() bool {
	return m.state == Active || m.state == Paused || m.state == ClosingOnly
}

// WarmupPct returns the last recorded warmup progress, clamped to [0,100].
func (m *Machine) WarmupPct() int { return m.warmupPct }

// History returns the bounded transition history, oldest first.
func (m *Machine) History() []TransitionEntry {
	out := make([]TransitionEntry, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Machine) record(to State, event Event, reason string) {
	m.history = append(m.history, TransitionEntry{
		From: m.state, To: to, Event: event, Reason: reason, TimestampMs: m.clk.NowMs(),
	})
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.state = to
	m.enteredAtMs = m.clk.NowMs()
}

// Initialize transitions Initializing -> WarmingUp.
func (m *Machine) Initialize() error {
	return m.transition(EventInitialize, func() (State, error) {
		if m.state != Initializing {
			return "", fmt.Errorf("lifecycle: initialize invalid from %s", m.state)
		}
		return WarmingUp, nil
	}, "")
}

// UpdateWarmup records progress while in WarmingUp; metadata-only, no
// state change.
func (m *Machine) UpdateWarmup(pct int) error {
	if m.state == Shutdown {
		return ErrAlreadyTerminal
	}
	if m.state != WarmingUp {
		return fmt.Errorf("lifecycle: update_warmup invalid from %s", m.state)
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	m.warmupPct = pct
	return nil
}

// WarmupComplete transitions WarmingUp -> Active.
func (m *Machine) WarmupComplete() error {
	return m.transition(EventWarmupComplete, func() (State, error) {
		if m.state != WarmingUp {
			return "", fmt.Errorf("lifecycle: warmup_complete invalid from %s", m.state)
		}
		return Active, nil
	}, "")
}

// Pause transitions WarmingUp|Active -> Paused.
func (m *Machine) Pause(reason string) error {
	return m.transition(EventPause, func() (State, error) {
		if m.state != WarmingUp && m.state != Active {
			return "", fmt.Errorf("lifecycle: pause invalid from %s", m.state)
		}
		return Paused, nil
	}, reason)
}

// Resume transitions Paused -> Active. Fails with
// ErrCannotResumeFromHalt if the current state is Halted.
func (m *Machine) Resume() error {
	if m.state == Halted {
		return ErrCannotResumeFromHalt
	}
	return m.transition(EventResume, func() (State, error) {
		if m.state != Paused {
			return "", fmt.Errorf("lifecycle: resume invalid from %s", m.state)
		}
		return Active, nil
	}, "")
}

// EnterClosingOnly transitions Active|Paused -> ClosingOnly.
func (m *Machine) EnterClosingOnly() error {
	return m.transition(EventEnterClosingOnly, func() (State, error) {
		if m.state != Active && m.state != Paused {
			return "", fmt.Errorf("lifecycle: enter_closing_only invalid from %s", m.state)
		}
		return ClosingOnly, nil
	}, "")
}

// Halt transitions Active|Paused|ClosingOnly -> Halted. Fails with
// ErrAlreadyTerminal from Shutdown.
func (m *Machine) Halt(reason string) error {
	if m.state == Shutdown {
		return ErrAlreadyTerminal
	}
	return m.transition(EventHalt, func() (State, error) {
		switch m.state {
		case Active, Paused, ClosingOnly:
			return Halted, nil
		default:
			return "", fmt.Errorf("lifecycle: halt invalid from %s", m.state)
		}
	}, reason)
}

// Shutdown transitions any non-terminal state -> Shutdown. Fails with
// ErrAlreadyTerminal if already shut down.
func (m *Machine) Shutdown() error {
	if m.state == Shutdown {
		return ErrAlreadyTerminal
	}
	m.record(Shutdown, EventShutdown, "")
	return nil
}

func (m *Machine) transition(event Event, compute func() (State, error), reason string) error {
	if m.state == Shutdown {
		return ErrAlreadyTerminal
	}
	to, err := compute()
	if err != nil {
		return err
	}
	m.record(to, event, reason)
	return nil
}
