package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/example/wordace/internal/quiz"
)

type memoryItem struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Sessions are stored encoded
// so callers never share a *quiz.Session.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryStore creates an empty store whose sessions live for ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, s *quiz.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired()
	m.items[s.ID] = memoryItem{data: data, expiresAt: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*quiz.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id)
}

func (m *MemoryStore) Update(_ context.Context, id string, fn UpdateFunc) (*quiz.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, err := m.load(id)
	if err != nil {
		return nil, err
	}
	if err := fn(s); err != nil {
		return nil, err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	m.items[id] = memoryItem{data: data, expiresAt: m.now().Add(m.ttl)}
	return s, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Len returns the number of live sessions
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictExpired()
	return len(m.items)
}

// load must be called with mu held
func (m *MemoryStore) load(id string) (*quiz.Session, error) {
	item, ok := m.items[id]
	if !ok || !m.now().Before(item.expiresAt) {
		delete(m.items, id)
		return nil, ErrNotFound
	}
	var s quiz.Session
	if err := json.Unmarshal(item.data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &s, nil
}

func (m *MemoryStore) evictExpired() {
	now := m.now()
	for id, item := range m.items {
		if !now.Before(item.expiresAt) {
			delete(m.items, id)
		}
	}
}
