// Package service implements the message state machine and its broadcast
// side effects on top of the chat and message stores.
package service

import (
	"context"
	"strings"
	"time"

	contactstore "github.com/vinodkrishna221/nexuschat/module/contact/store"
	"github.com/vinodkrishna221/nexuschat/tools/errs"
	"github.com/vinodkrishna221/nexuschat/tools/ids"

	"github.com/vinodkrishna221/nexuschat/logger"
	"github.com/vinodkrishna221/nexuschat/module/chat/model"
	"github.com/vinodkrishna221/nexuschat/module/chat/store"
)

// Server→client event names. The client→server names live with the gateway
// dispatcher.
const (
	EventMessageNew           = "message:new"
	EventMessageDelivered     = "message:delivered"
	EventMessageRead          = "message:read"
	EventMessageDeliveredBulk = "message:delivered:bulk"
)

// Notifier fans events out to rooms. The gateway implements it on top of the
// pub/sub bridge; all methods are fire-and-forget.
type Notifier interface {
	ToUser(ctx context.Context, userID, event string, payload any)

	// ToChat sends to every member of the chat room except exceptConn.
	ToChat(ctx context.Context, chatID, event string, payload any, exceptConn string)

	// ToChatAndUser sends to the chat room plus the user's personal room,
	// delivering at most once per connection even when a connection is in both.
	ToChatAndUser(ctx context.Context, chatID, userID, event string, payload any, exceptConn string)
}

// MessagePayload is the wire shape of a broadcast message.
type MessagePayload struct {
	ID        string              `json:"id"`
	ChatID    string              `json:"chatId"`
	SenderID  string              `json:"senderId"`
	Content   string              `json:"content"`
	Type      model.MessageType   `json:"type"`
	Status    model.MessageStatus `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
}

// AckNotice tells a sender one of their messages changed status.
type AckNotice struct {
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// BulkDeliveredNotice reports catch-up delivery of several messages at once.
type BulkDeliveredNotice struct {
	ChatID      string    `json:"chatId"`
	MessageIDs  []string  `json:"messageIds"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

type SendInput struct {
	ChatID  string            `json:"chatId"`
	Content string            `json:"content"`
	Type    model.MessageType `json:"type"`
}

type MessageService struct {
	chats    store.ChatStore
	messages store.MessageStore
	graph    contactstore.Graph
	notify   Notifier
}

func NewMessageService(chats store.ChatStore, messages store.MessageStore, graph contactstore.Graph, notify Notifier) *MessageService {
	return &MessageService{chats: chats, messages: messages, graph: graph, notify: notify}
}

// Send validates, persists and broadcasts a message. The returned payload is
// the sender's ack; it is only produced after the insert succeeded, so an
// acked message is durably stored.
func (s *MessageService) Send(ctx context.Context, senderID, connID string, in SendInput) (*MessagePayload, error) {
	if in.ChatID == "" {
		return nil, errs.ErrInvalidChatID
	}
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, errs.ErrEmptyContent
	}
	if len([]rune(content)) > model.MaxContentLen {
		return nil, errs.ErrContentTooLong
	}
	if in.Type == "" {
		in.Type = model.TypeText
	}
	if !model.ValidType(in.Type) {
		return nil, errs.ErrInvalidRequest
	}

	chat, err := s.chats.Get(ctx, in.ChatID)
	if err == store.ErrNotFound {
		return nil, errs.ErrChatAccess
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "load chat", "chatID", in.ChatID)
	}
	if !chat.HasParticipant(senderID) {
		return nil, errs.ErrChatAccess
	}
	recipientID := chat.Other(senderID)

	blocked, err := s.graph.Blocked(ctx, senderID, recipientID)
	if err != nil {
		return nil, errs.WrapMsg(err, "block check", "chatID", in.ChatID)
	}
	if blocked {
		return nil, errs.ErrPeerBlocked
	}

	now := time.Now()
	msg := &model.Message{
		ID:        ids.GenerateString(),
		ChatID:    chat.ID,
		SenderID:  senderID,
		Content:   content,
		Type:      in.Type,
		Status:    model.StatusSent,
		CreatedAt: now,
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		logger.Errorf("message insert failed: chat=%s err=%v", chat.ID, err)
		return nil, errs.ErrSendFailed
	}
	if err := s.chats.Touch(ctx, chat.ID, msg.ID, now); err != nil {
		// Summary is advisory; the message itself is already durable.
		logger.Warnf("chat summary update failed: chat=%s err=%v", chat.ID, err)
	}

	payload := payloadOf(msg)
	s.notify.ToChatAndUser(ctx, chat.ID, recipientID, EventMessageNew, payload, connID)
	return payload, nil
}

// MarkDelivered advances a message to delivered on behalf of actor. Failed
// preconditions (own message, already delivered or read, unknown id) are
// silent no-ops; only a real transition notifies the sender, so the sender
// sees exactly one delivered notice per message.
func (s *MessageService) MarkDelivered(ctx context.Context, actorID, messageID string) error {
	now := time.Now()
	m, err := s.messages.MarkDelivered(ctx, messageID, actorID, now)
	if err != nil {
		return errs.WrapMsg(err, "mark delivered", "messageID", messageID)
	}
	if m == nil {
		return nil
	}
	s.notify.ToUser(ctx, m.SenderID, EventMessageDelivered, AckNotice{MessageID: m.ID, Timestamp: *m.DeliveredAt})
	return nil
}

// MarkRead advances a message to read, backfilling deliveredAt when the
// delivered step was skipped. Same no-op convention as MarkDelivered.
func (s *MessageService) MarkRead(ctx context.Context, actorID, messageID string) error {
	now := time.Now()
	m, err := s.messages.MarkRead(ctx, messageID, actorID, now)
	if err != nil {
		return errs.WrapMsg(err, "mark read", "messageID", messageID)
	}
	if m == nil {
		return nil
	}
	s.notify.ToUser(ctx, m.SenderID, EventMessageRead, AckNotice{MessageID: m.ID, Timestamp: *m.ReadAt})
	return nil
}

// CatchUp promotes every still-sent message in the chat not authored by
// userID to delivered and sends each affected sender one grouped notice.
// Called when a user joins a chat room.
func (s *MessageService) CatchUp(ctx context.Context, chatID, userID string) error {
	pending, err := s.messages.ListUndelivered(ctx, chatID, userID)
	if err != nil {
		return errs.WrapMsg(err, "list undelivered", "chatID", chatID)
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now()
	n, err := s.messages.MarkChatDelivered(ctx, chatID, userID, now)
	if err != nil {
		return errs.WrapMsg(err, "catch-up delivery", "chatID", chatID)
	}
	if n == 0 {
		// Another device of the same user promoted this batch between the
		// list and the update; that device already notified the senders.
		return nil
	}

	bySender := make(map[string][]string)
	for _, m := range pending {
		bySender[m.SenderID] = append(bySender[m.SenderID], m.ID)
	}
	for senderID, messageIDs := range bySender {
		s.notify.ToUser(ctx, senderID, EventMessageDeliveredBulk, BulkDeliveredNotice{
			ChatID:      chatID,
			MessageIDs:  messageIDs,
			DeliveredAt: now,
		})
	}
	return nil
}

// CanAccess reports whether userID is a participant of the chat. Unknown
// chats are simply not accessible.
func (s *MessageService) CanAccess(ctx context.Context, chatID, userID string) (bool, error) {
	chat, err := s.chats.Get(ctx, chatID)
	if err == store.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, errs.WrapMsg(err, "load chat", "chatID", chatID)
	}
	return chat.HasParticipant(userID), nil
}

// OpenChat returns the 1:1 chat between the two users, creating it when
// absent. Creation is refused when either side has blocked the other.
func (s *MessageService) OpenChat(ctx context.Context, userID, peerID string) (*model.Chat, bool, error) {
	if peerID == "" || peerID == userID {
		return nil, false, errs.ErrInvalidRequest
	}
	blocked, err := s.graph.Blocked(ctx, userID, peerID)
	if err != nil {
		return nil, false, errs.WrapMsg(err, "block check")
	}
	if blocked {
		return nil, false, errs.ErrPeerBlocked
	}
	chat, created, err := s.chats.GetOrCreate(ctx, userID, peerID)
	if err != nil {
		return nil, false, errs.WrapMsg(err, "get or create chat")
	}
	return chat, created, nil
}

func payloadOf(m *model.Message) *MessagePayload {
	return &MessagePayload{
		ID:        m.ID,
		ChatID:    m.ChatID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		Type:      m.Type,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
	}
}
