package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/RalXYZ/cc99/pkg/vistree"
)

// MemoryStore keeps snapshots in memory. Trees are stored encoded, so
// callers never share tree values with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	meta Snapshot
	tree []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem)}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, s *Snapshot) error {
	data, err := prepare(s)
	if err != nil {
		return err
	}
	meta := *s
	meta.Tree = nil

	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.ID] = memoryItem{meta: meta, tree: data}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Snapshot, error) {
	m.mu.RLock()
	item, ok := m.items[id]
	m.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}

	tree, err := vistree.UnmarshalTree(item.tree)
	if err != nil {
		return nil, err
	}
	s := item.meta
	s.Tree = tree
	return &s, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Snapshot, error) {
	m.mu.RLock()
	out := make([]*Snapshot, 0, len(m.items))
	for _, item := range m.items {
		s := item.meta
		out = append(out, &s)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Snapshot) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if n := limitOrDefault(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Close does nothing for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
