package bridge

import (
	"context"
	"sync"
)

// MemoryBridge is the in-process Bridge for single-instance deployments and
// tests. Publish delivers synchronously.
type MemoryBridge struct {
	mu    sync.RWMutex
	next  int
	rooms map[string]map[int]Handler
}

func NewMemoryBridge() *MemoryBridge {
	return &MemoryBridge{rooms: make(map[string]map[int]Handler)}
}

func (b *MemoryBridge) Publish(_ context.Context, env Envelope) error {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.rooms[env.Room]))
	for _, h := range b.rooms[env.Room] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(env)
	}
	return nil
}

func (b *MemoryBridge) Subscribe(room string, h Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.rooms[room] == nil {
		b.rooms[room] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.rooms[room][id] = h
	return &memorySub{bridge: b, room: room, id: id}, nil
}

func (b *MemoryBridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms = make(map[string]map[int]Handler)
	return nil
}

type memorySub struct {
	bridge *MemoryBridge
	room   string
	id     int
}

func (s *memorySub) Unsubscribe() error {
	s.bridge.mu.Lock()
	defer s.bridge.mu.Unlock()
	if hs, ok := s.bridge.rooms[s.room]; ok {
		delete(hs, s.id)
		if len(hs) == 0 {
			delete(s.bridge.rooms, s.room)
		}
	}
	return nil
}
