package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vinodkrishna221/nexuschat/tools/ids"

	"github.com/vinodkrishna221/nexuschat/module/chat/model"
)

// MemoryChatStore / MemoryMessageStore keep everything in process memory.
// They implement the same transition preconditions as the Mongo stores and
// back the service tests and single-binary development runs.

type MemoryChatStore struct {
	mu     sync.RWMutex
	byID   map[string]*model.Chat
	byPair map[string]string // canonical pair -> chat id
}

func NewMemoryChatStore() *MemoryChatStore {
	return &MemoryChatStore{
		byID:   make(map[string]*model.Chat),
		byPair: make(map[string]string),
	}
}

func pairKey(pair []string) string { return strings.Join(pair, "|") }

func cloneChat(c *model.Chat) *model.Chat {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}

func (s *MemoryChatStore) Get(_ context.Context, chatID string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneChat(c), nil
}

func (s *MemoryChatStore) GetOrCreate(_ context.Context, userA, userB string) (*model.Chat, bool, error) {
	pair := model.NormalizePair(userA, userB)
	key := pairKey(pair)

	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byPair[key]; ok {
		return cloneChat(s.byID[id]), false, nil
	}
	now := time.Now()
	c := &model.Chat{
		ID:           ids.GenerateString(),
		Participants: pair,
		LastActivity: now,
		CreatedAt:    now,
	}
	s.byID[c.ID] = c
	s.byPair[key] = c.ID
	return cloneChat(c), true, nil
}

func (s *MemoryChatStore) Touch(_ context.Context, chatID, lastMessageID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[chatID]
	if !ok {
		return ErrNotFound
	}
	c.LastMessageID = lastMessageID
	c.LastActivity = at
	return nil
}

type MemoryMessageStore struct {
	mu   sync.RWMutex
	byID map[string]*model.Message
}

func NewMemoryMessageStore() *MemoryMessageStore {
	return &MemoryMessageStore{byID: make(map[string]*model.Message)}
}

func cloneMsg(m *model.Message) *model.Message {
	cp := *m
	if m.DeliveredAt != nil {
		t := *m.DeliveredAt
		cp.DeliveredAt = &t
	}
	if m.ReadAt != nil {
		t := *m.ReadAt
		cp.ReadAt = &t
	}
	return &cp
}

func (s *MemoryMessageStore) Insert(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[m.ID] = cloneMsg(m)
	return nil
}

func (s *MemoryMessageStore) MarkDelivered(_ context.Context, messageID, actorID string, at time.Time) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[messageID]
	if !ok || !m.CanDeliver(actorID) {
		return nil, nil
	}
	m.ApplyDelivered(at)
	return cloneMsg(m), nil
}

func (s *MemoryMessageStore) MarkRead(_ context.Context, messageID, actorID string, at time.Time) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byID[messageID]
	if !ok || !m.CanRead(actorID) {
		return nil, nil
	}
	m.ApplyRead(at)
	return cloneMsg(m), nil
}

func (s *MemoryMessageStore) ListUndelivered(_ context.Context, chatID, recipientID string) ([]*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Message
	for _, m := range s.byID {
		if m.ChatID == chatID && m.SenderID != recipientID && m.Status == model.StatusSent {
			out = append(out, cloneMsg(m))
		}
	}
	return out, nil
}

func (s *MemoryMessageStore) MarkChatDelivered(_ context.Context, chatID, recipientID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.byID {
		if m.ChatID == chatID && m.SenderID != recipientID && m.Status == model.StatusSent {
			m.ApplyDelivered(at)
			n++
		}
	}
	return n, nil
}

// Get is a test helper for inspecting stored state.
func (s *MemoryMessageStore) Get(id string) *model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[id]
	if !ok {
		return nil
	}
	return cloneMsg(m)
}
