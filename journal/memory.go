package journal

import "sync"

// Memory is the in-process journal used by tests and the backtester. It
// never fails to record.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemory() *Memory {
	return &Memory{}
}

// Record appends entry. Never returns an error — matching spec.md 4.5's
// "memory journal ... stores entries in an ordered sequence".
func (m *Memory) Record(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Entries returns a fresh copy of every recorded entry, in recording order.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Clear empties the journal.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}
