package remarketing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/plenasaude/quote-assistant/internal/conversation"
)

// ErrEntryNotFound is returned when no abandoned session is registered for a phone.
var ErrEntryNotFound = errors.New("remarketing: entry not found")

// Entry is the snapshot of an abandoned session, keyed by phone.
type Entry struct {
	Phone        string               `json:"phone"`
	Snapshot     conversation.Session `json:"snapshot"`
	Attempts     int                  `json:"attempts"`
	LastAttempt  time.Time            `json:"last_attempt"`
	RegisteredAt time.Time            `json:"registered_at"`
}

// Registry stores abandoned-session snapshots.
type Registry interface {
	Put(ctx context.Context, e Entry) error
	Get(ctx context.Context, phone string) (Entry, error)
	// Take removes and returns the entry for phone.
	Take(ctx context.Context, phone string) (Entry, error)
	Delete(ctx context.Context, phone string) error
	List(ctx context.Context) ([]Entry, error)
}

// MemoryRegistry keeps entries in process memory.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]Entry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]Entry)}
}

func (m *MemoryRegistry) Put(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Snapshot = e.Snapshot.Clone()
	m.entries[e.Phone] = e
	return nil
}

func (m *MemoryRegistry) Get(_ context.Context, phone string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[phone]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	e.Snapshot = e.Snapshot.Clone()
	return e, nil
}

func (m *MemoryRegistry) Take(_ context.Context, phone string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[phone]
	if !ok {
		return Entry{}, ErrEntryNotFound
	}
	delete(m.entries, phone)
	return e, nil
}

func (m *MemoryRegistry) Delete(_ context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, phone)
	return nil
}

func (m *MemoryRegistry) List(_ context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		e.Snapshot = e.Snapshot.Clone()
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Phone < entries[j].Phone })
}
