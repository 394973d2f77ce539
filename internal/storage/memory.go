package storage

import (
	"sync"

	"rangeswap/internal/model"
)

// MemoryJournal buffers events in memory, for tests and for commands that
// re-emit the whole journal at the end of a run.
type MemoryJournal struct {
	mu     sync.Mutex
	events []model.Event
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (m *MemoryJournal) AppendEvents(events []model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of everything appended so far.
func (m *MemoryJournal) Events() []model.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Event, len(m.events))
	copy(out, m.events)
	return out
}
