package store

import (
	"context"
	"sort"
	"sync"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// MemoryStore is an in-memory Store for tests and embedded use.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*template.Definition
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*template.Definition)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*template.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cloned := *def
	return &cloned, nil
}

func (s *MemoryStore) GetDefault(_ context.Context, portraitType template.PortraitType) (*template.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.sortedIDs() {
		def := s.items[id]
		if def.Type == portraitType && def.IsDefault {
			cloned := *def
			return &cloned, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) List(_ context.Context, portraitType template.PortraitType) ([]*template.Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*template.Definition
	for _, id := range s.sortedIDs() {
		def := s.items[id]
		if portraitType != "" && def.Type != portraitType {
			continue
		}
		cloned := *def
		out = append(out, &cloned)
	}
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, def *template.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cloned := *def
	if existing, ok := s.items[def.ID]; ok {
		cloned.Version = existing.Version + 1
	} else if cloned.Version == 0 {
		cloned.Version = 1
	}
	s.items[def.ID] = &cloned
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// sortedIDs keeps iteration deterministic. Caller holds the lock.
func (s *MemoryStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
