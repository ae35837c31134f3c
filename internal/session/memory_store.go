package session

import (
	"bytes"
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps sessions in process memory. Sessions never expire and
// are lost on restart, so it is meant for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Open(_ context.Context, id string) (Session, error) {
	if id == "" {
		return nil, fmt.Errorf("session id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		s.sessions[id] = make(map[string][]byte)
	}
	return &memorySession{store: s, id: id}, nil
}

type memorySession struct {
	store *MemoryStore
	id    string
}

func (ms *memorySession) ID() string {
	return ms.id
}

func (ms *memorySession) Get(_ context.Context, key string) ([]byte, error) {
	ms.store.mu.Lock()
	defer ms.store.mu.Unlock()

	value, ok := ms.store.sessions[ms.id][key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (ms *memorySession) Set(_ context.Context, key string, value []byte) error {
	ms.store.mu.Lock()
	defer ms.store.mu.Unlock()

	ms.store.sessions[ms.id][key] = append([]byte(nil), value...)
	return nil
}

func (ms *memorySession) CompareAndDelete(_ context.Context, key string, expected []byte) (bool, error) {
	ms.store.mu.Lock()
	defer ms.store.mu.Unlock()

	value, ok := ms.store.sessions[ms.id][key]
	if !ok || !bytes.Equal(value, expected) {
		return false, nil
	}
	delete(ms.store.sessions[ms.id], key)
	return true, nil
}
