// Package journal implements the append-only decision log of spec.md 4.5:
// a memory-backed variant for tests/backtests and a JSONL file-backed
// variant for crash recovery and audit, both satisfying the same Recorder
// contract.
package journal

import "github.com/flowstate-labs/predengine/decimal"

// EntryType tags the JournalEntry union.
type EntryType string

const (
	EntrySignal          EntryType = "entry_signal"
	ExitSignal           EntryType = "exit_signal"
	OrderSubmitted       EntryType = "order_submitted"
	OrderFilled          EntryType = "order_filled"
	PositionOpened       EntryType = "position_opened"
	PositionClosed       EntryType = "position_closed"
	GuardBlocked         EntryType = "guard_blocked"
	ErrorEntry           EntryType = "error"
)

// Entry is one record in the journal. Data carries the type-specific
// payload; callers are expected to know the shape that corresponds to Type
// (the same discipline the wire WsMessage union uses).
type Entry struct {
	Type        EntryType      `json:"type"`
	TimestampMs int64          `json:"timestamp_ms"`
	Data        map[string]any `json:"data,omitempty"`
}

// Recorder is the interface both the memory and file journals satisfy.
type Recorder interface {
	Record(entry Entry) error
}

// DecimalField renders d as a string for use in an Entry.Data map, matching
// the "Decimal values serialized as JSON strings" wire rule without every
// call site re-deriving it.
func DecimalField(d decimal.Decimal) string { return d.String() }
