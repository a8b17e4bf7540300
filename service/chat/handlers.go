package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/vinodkrishna221/nexuschat/logger"
	chatservice "github.com/vinodkrishna221/nexuschat/module/chat/service"
	"github.com/vinodkrishna221/nexuschat/service/metrics"
	"github.com/vinodkrishna221/nexuschat/tools/decode"
	"github.com/vinodkrishna221/nexuschat/tools/errs"
)

// SendAck is the reply to message:send. Exactly one of Message/Error is set.
type SendAck struct {
	Success bool                        `json:"success"`
	Message *chatservice.MessagePayload `json:"message,omitempty"`
	Error   *errs.CodeError             `json:"error,omitempty"`
}

// PresenceEntry is one user's state in a presence:query ack.
type PresenceEntry struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}

func (s *Server) reply(c *Conn, ackID string, payload any) {
	frame, err := MarshalFrame(EventAck, ackID, payload)
	if err != nil {
		logger.Errorf("ack marshal failed: conn=%s err=%v", c.ID, err)
		return
	}
	if !c.enqueue(frame) {
		metrics.BroadcastDrops.Inc()
		logger.Warnf("send queue full, dropping ack: conn=%s", c.ID)
	}
}

// handleChatJoin puts the connection in the chat room and runs catch-up
// delivery for messages sent while the user was away. Joining a chat one is
// not a participant of is an advisory event, so it is a silent no-op.
func (s *Server) handleChatJoin(ctx context.Context, c *Conn, f *Frame) {
	chatID := readString(f.Data, "chatId")
	if chatID == "" {
		return
	}
	ok, err := s.messages.CanAccess(ctx, chatID, c.UserID)
	if err != nil {
		logger.Warnf("chat access check failed: chat=%s err=%v", chatID, err)
		return
	}
	if !ok {
		logger.Debugf("join refused: conn=%s chat=%s", c.ID, chatID)
		return
	}
	s.joinRoom(ChatRoom(chatID), c.ID)
	if err := s.messages.CatchUp(ctx, chatID, c.UserID); err != nil {
		logger.Warnf("catch-up delivery failed: chat=%s user=%s err=%v", chatID, c.UserID, err)
	}
}

func (s *Server) handleChatLeave(_ context.Context, c *Conn, f *Frame) {
	chatID := readString(f.Data, "chatId")
	if chatID == "" {
		return
	}
	s.leaveRoom(ChatRoom(chatID), c.ID)
}

// handleTyping relays typing start/stop verbatim to the chat room, excluding
// the sender. Any participant may emit typing into their chat, whether or not
// this connection has joined the room; non-participants are a silent no-op.
func (s *Server) handleTyping(ctx context.Context, c *Conn, f *Frame) {
	chatID := readString(f.Data, "chatId")
	if chatID == "" {
		return
	}
	ok, err := s.messages.CanAccess(ctx, chatID, c.UserID)
	if err != nil {
		logger.Warnf("chat access check failed: chat=%s err=%v", chatID, err)
		return
	}
	if !ok {
		return
	}
	s.ToChat(ctx, chatID, f.Event, TypingNotice{ChatID: chatID, UserID: c.UserID}, c.ID)
}

// handleMessageSend validates, persists and broadcasts, then acks the sender
// over the same channel. The ack is only sent after the message is durable.
func (s *Server) handleMessageSend(ctx context.Context, c *Conn, f *Frame) {
	var raw map[string]any
	if err := json.Unmarshal(f.Data, &raw); err != nil {
		s.reply(c, f.AckID, SendAck{Error: errs.ErrInvalidRequest})
		return
	}
	in, err := decode.DecodeStruct[chatservice.SendInput](raw)
	if err != nil {
		s.reply(c, f.AckID, SendAck{Error: errs.ErrInvalidRequest})
		return
	}

	payload, err := s.messages.Send(ctx, c.UserID, c.ID, *in)
	if err != nil {
		if ce, ok := err.(*errs.CodeError); ok {
			s.reply(c, f.AckID, SendAck{Error: ce})
		} else {
			logger.Errorf("send failed: conn=%s err=%v", c.ID, err)
			s.reply(c, f.AckID, SendAck{Error: errs.ErrSendFailed})
		}
		return
	}
	metrics.MessagesSent.Inc()
	s.reply(c, f.AckID, SendAck{Success: true, Message: payload})
}

// Delivery and read acks are fire-and-forget; precondition failures are
// silent by design, infrastructure failures are only logged.
func (s *Server) handleMessageDelivered(ctx context.Context, c *Conn, f *Frame) {
	messageID := readString(f.Data, "messageId")
	if messageID == "" {
		return
	}
	if err := s.messages.MarkDelivered(ctx, c.UserID, messageID); err != nil {
		logger.Warnf("mark delivered failed: message=%s err=%v", messageID, err)
	}
}

func (s *Server) handleMessageRead(ctx context.Context, c *Conn, f *Frame) {
	messageID := readString(f.Data, "messageId")
	if messageID == "" {
		return
	}
	if err := s.messages.MarkRead(ctx, c.UserID, messageID); err != nil {
		logger.Warnf("mark read failed: message=%s err=%v", messageID, err)
	}
}

func (s *Server) handleHeartbeat(ctx context.Context, c *Conn, _ *Frame) {
	if err := s.presence.Heartbeat(ctx, c.UserID); err != nil {
		// Perishable signal: drop, the next heartbeat resynchronizes.
		logger.Debugf("heartbeat refresh failed: user=%s err=%v", c.UserID, err)
	}
}

// handlePresenceQuery answers a batched lookup. Users with no cache entry
// are omitted from the reply map.
func (s *Server) handlePresenceQuery(ctx context.Context, c *Conn, f *Frame) {
	var userIDs []string
	if err := json.Unmarshal(f.Data, &userIDs); err != nil || len(userIDs) == 0 {
		s.reply(c, f.AckID, map[string]PresenceEntry{})
		return
	}
	records, err := s.presence.BulkGet(ctx, userIDs)
	if err != nil {
		logger.Warnf("presence query failed: conn=%s err=%v", c.ID, err)
		s.reply(c, f.AckID, map[string]PresenceEntry{})
		return
	}
	out := make(map[string]PresenceEntry, len(records))
	for id, rec := range records {
		out[id] = PresenceEntry{Online: rec.Online, LastSeen: rec.LastSeen}
	}
	s.reply(c, f.AckID, out)
}
