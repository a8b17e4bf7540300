// Package chat is the realtime gateway: it owns the websocket connections of
// one process, their room membership, and the fanout path between the
// message/presence services and the sockets.
package chat

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/vinodkrishna221/nexuschat/config"
	"github.com/vinodkrishna221/nexuschat/logger"
	chatservice "github.com/vinodkrishna221/nexuschat/module/chat/service"
	chatstore "github.com/vinodkrishna221/nexuschat/module/chat/store"
	contactstore "github.com/vinodkrishna221/nexuschat/module/contact/store"
	"github.com/vinodkrishna221/nexuschat/service/bridge"
	"github.com/vinodkrishna221/nexuschat/service/metrics"
	"github.com/vinodkrishna221/nexuschat/service/presence"
	"github.com/vinodkrishna221/nexuschat/tools/security"
)

// OfflineNotice is the user:offline payload.
type OfflineNotice struct {
	UserID   string    `json:"userId"`
	LastSeen time.Time `json:"lastSeen"`
}

// TypingNotice relays typing start/stop to the chat room.
type TypingNotice struct {
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
}

type Server struct {
	ws  config.WS
	jwt security.Options

	conns    *ConnManager
	rooms    *Rooms
	presence *presence.Cache
	graph    contactstore.Graph
	bridge   bridge.Bridge
	messages *chatservice.MessageService

	handlers map[EventKind]handlerFunc

	subMu sync.Mutex
	subs  map[string]bridge.Subscription
}

// NewServer wires the gateway. It constructs the message service itself
// because the service broadcasts through the server (the server is its
// Notifier).
func NewServer(
	cfg *config.Config,
	pres *presence.Cache,
	graph contactstore.Graph,
	chats chatstore.ChatStore,
	msgs chatstore.MessageStore,
	br bridge.Bridge,
) *Server {
	s := &Server{
		ws:       cfg.WS,
		jwt:      security.Options{Secret: []byte(cfg.JWT.Secret), TTL: cfg.JWT.TTL.D()},
		conns:    NewConnManager(),
		rooms:    NewRooms(),
		presence: pres,
		graph:    graph,
		bridge:   br,
		subs:     make(map[string]bridge.Subscription),
	}
	s.messages = chatservice.NewMessageService(chats, msgs, graph, s)
	s.registerHandlers()
	return s
}

// Close tears down all connections and bridge subscriptions.
func (s *Server) Close() {
	s.conns.CloseAll()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for room, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warnf("unsubscribe failed: room=%s err=%v", room, err)
		}
		delete(s.subs, room)
	}
}

// joinRoom adds the connection locally and opens the bridge subscription when
// this instance gains its first member of the room.
func (s *Server) joinRoom(room, connID string) {
	if !s.rooms.Join(room, connID) {
		return
	}
	sub, err := s.bridge.Subscribe(room, s.onEnvelope)
	if err != nil {
		logger.Errorf("bridge subscribe failed: room=%s err=%v", room, err)
		return
	}
	s.subMu.Lock()
	s.subs[room] = sub
	s.subMu.Unlock()
}

func (s *Server) leaveRoom(room, connID string) {
	if s.rooms.Leave(room, connID) {
		s.dropSubscription(room)
	}
}

func (s *Server) dropSubscription(room string) {
	s.subMu.Lock()
	sub := s.subs[room]
	delete(s.subs, room)
	s.subMu.Unlock()
	if sub != nil {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warnf("unsubscribe failed: room=%s err=%v", room, err)
		}
	}
}

// onEnvelope delivers a bridge envelope to the local members of its room.
// ExceptConn skips the originating socket; ExceptRoom suppresses connections
// that already got the frame through another room.
func (s *Server) onEnvelope(env bridge.Envelope) {
	frame, err := MarshalFrame(env.Event, "", env.Payload)
	if err != nil {
		logger.Errorf("frame marshal failed: event=%s err=%v", env.Event, err)
		return
	}
	for _, connID := range s.rooms.Members(env.Room) {
		if connID == env.ExceptConn {
			continue
		}
		if env.ExceptRoom != "" && s.rooms.IsMember(env.ExceptRoom, connID) {
			continue
		}
		c, ok := s.conns.Get(connID)
		if !ok {
			continue
		}
		if !c.enqueue(frame) {
			metrics.BroadcastDrops.Inc()
			logger.Warnf("send queue full, dropping frame: conn=%s event=%s", connID, env.Event)
		}
	}
}

func (s *Server) publish(ctx context.Context, env bridge.Envelope) {
	if err := s.bridge.Publish(ctx, env); err != nil {
		// Best-effort: room broadcasts are perishable, never retried.
		logger.Warnf("bridge publish failed: room=%s event=%s err=%v", env.Room, env.Event, err)
		return
	}
	metrics.BridgePublished.Inc()
}

func mustRaw(payload any) json.RawMessage {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Errorf("payload marshal failed: %v", err)
		return nil
	}
	return raw
}

// ToUser implements chatservice.Notifier.
func (s *Server) ToUser(ctx context.Context, userID, event string, payload any) {
	s.publish(ctx, bridge.Envelope{Room: UserRoom(userID), Event: event, Payload: mustRaw(payload)})
}

// ToChat implements chatservice.Notifier.
func (s *Server) ToChat(ctx context.Context, chatID, event string, payload any, exceptConn string) {
	s.publish(ctx, bridge.Envelope{Room: ChatRoom(chatID), Event: event, Payload: mustRaw(payload), ExceptConn: exceptConn})
}

// ToChatAndUser implements chatservice.Notifier: the chat room gets the frame
// and the user's personal room covers devices not joined to the chat, with
// ExceptRoom keeping overlapping connections to a single copy.
func (s *Server) ToChatAndUser(ctx context.Context, chatID, userID, event string, payload any, exceptConn string) {
	raw := mustRaw(payload)
	s.publish(ctx, bridge.Envelope{Room: ChatRoom(chatID), Event: event, Payload: raw, ExceptConn: exceptConn})
	s.publish(ctx, bridge.Envelope{
		Room:       UserRoom(userID),
		Event:      event,
		Payload:    raw,
		ExceptConn: exceptConn,
		ExceptRoom: ChatRoom(chatID),
	})
}

// broadcastPresence tells every accepted, non-blocked contact about a full
// online/offline transition. Fire-and-forget: a failed peer resolution only
// costs a stale presence indicator.
func (s *Server) broadcastPresence(ctx context.Context, userID, event string, payload any) {
	peers, err := s.graph.PeersOf(ctx, userID)
	if err != nil {
		logger.Warnf("peer resolution failed, presence broadcast dropped: user=%s err=%v", userID, err)
		return
	}
	for _, peer := range peers {
		s.ToUser(ctx, peer, event, payload)
	}
}
