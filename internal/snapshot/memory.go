package snapshot

import (
	"sync"

	"github.com/loykin/tracklink/internal/link"
)

// MemoryStore keeps the snapshot in memory. Useful for tests and embedded
// setups that do not need durability.
type MemoryStore struct {
	mu   sync.Mutex
	snap map[string]*link.Link
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (map[string]*link.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySnap(m.snap), nil
}

func (m *MemoryStore) Save(snap map[string]*link.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = copySnap(snap)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func copySnap(in map[string]*link.Link) map[string]*link.Link {
	out := make(map[string]*link.Link, len(in))
	for id, l := range in {
		c := l.Clone()
		out[id] = &c
	}
	return out
}
