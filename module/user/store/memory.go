package store

import (
	"context"
	"sync"
	"time"
)

type MemoryUserStore struct {
	mu   sync.RWMutex
	byID map[string]PresenceFields
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byID: make(map[string]PresenceFields)}
}

func (s *MemoryUserStore) Presence(_ context.Context, userID string) (PresenceFields, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[userID], nil
}

func (s *MemoryUserStore) SetOnline(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[userID] = PresenceFields{Online: true, LastSeen: at}
	return nil
}

func (s *MemoryUserStore) SetOffline(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[userID] = PresenceFields{Online: false, LastSeen: at}
	return nil
}
