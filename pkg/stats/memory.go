package stats

import "sync"

// MemoryRecorder keeps events in memory. Used by tests and the stats endpoint.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (m *MemoryRecorder) Record(ev Event) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	m.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (m *MemoryRecorder) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Counts aggregates event values by name.
func (m *MemoryRecorder) Counts() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]float64)
	for _, ev := range m.events {
		counts[ev.Name] += ev.Value
	}
	return counts
}
