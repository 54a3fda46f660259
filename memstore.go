package hydrotwin

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryStore is a Store keeping models in memory, encoded as JSON so that
// callers never share state with the stored copy.
//
// The zero-value MemoryStore is ready for use.
type MemoryStore struct {
	mu     sync.RWMutex
	models map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) SaveModel(_ context.Context, name string, m *Model) error {
	var b bytes.Buffer
	if err := m.WriteJSON(&b); err != nil {
		return fmt.Errorf("encode %q: %w", name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Make the zero-value meaningful.
	if s.models == nil {
		s.models = make(map[string][]byte)
	}
	s.models[name] = b.Bytes()
	return nil
}

func (s *MemoryStore) LoadModel(_ context.Context, name string) (*Model, error) {
	s.mu.RLock()
	b, ok := s.models[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("load %q: %w", name, ErrModelNotFound)
	}
	return ReadModel(bytes.NewReader(b))
}

func (s *MemoryStore) DeleteModel(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.models[name]; !ok {
		return fmt.Errorf("delete %q: %w", name, ErrModelNotFound)
	}
	delete(s.models, name)
	return nil
}
