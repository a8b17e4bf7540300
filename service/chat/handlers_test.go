package chat

import (
	"context"
	"encoding/json"
	"testing"

	chatservice "github.com/vinodkrishna221/nexuschat/module/chat/service"
	chatstore "github.com/vinodkrishna221/nexuschat/module/chat/store"
	contactstore "github.com/vinodkrishna221/nexuschat/module/contact/store"
	"github.com/vinodkrishna221/nexuschat/service/bridge"
)

// newHandlerServer wires a server against memory stores and the in-process
// bridge so handlers can be driven end to end without sockets.
func newHandlerServer() (*Server, chatstore.ChatStore) {
	chats := chatstore.NewMemoryChatStore()
	msgs := chatstore.NewMemoryMessageStore()
	graph := contactstore.NewMemoryGraph()
	s := &Server{
		conns:  NewConnManager(),
		rooms:  NewRooms(),
		graph:  graph,
		bridge: bridge.NewMemoryBridge(),
		subs:   make(map[string]bridge.Subscription),
	}
	s.messages = chatservice.NewMessageService(chats, msgs, graph, s)
	s.registerHandlers()
	return s, chats
}

func typingFrame(chatID string) *Frame {
	return &Frame{Event: EventTypingStart, Data: json.RawMessage(`{"chatId":"` + chatID + `"}`)}
}

// Typing is relayed for any participant of the chat, whether or not the
// typing connection has joined the chat room on this instance.
func TestHandleTypingWithoutLocalJoin(t *testing.T) {
	s, chats := newHandlerServer()
	chat, _, err := chats.GetOrCreate(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	alice := addConn(s, "c1", "alice")
	bob := addConn(s, "c2", "bob")
	s.joinRoom(ChatRoom(chat.ID), bob.ID)

	s.handleTyping(context.Background(), alice, typingFrame(chat.ID))

	got := drain(bob)
	if len(got) != 1 || got[0].Event != EventTypingStart {
		t.Fatalf("bob frames = %v, want one typing:start", got)
	}
	var notice TypingNotice
	if err := json.Unmarshal(got[0].Data, &notice); err != nil || notice.UserID != "alice" || notice.ChatID != chat.ID {
		t.Errorf("typing payload = %s", got[0].Data)
	}
	if len(drain(alice)) != 0 {
		t.Error("sender must not receive its own typing relay")
	}
}

func TestHandleTypingNonParticipantDropped(t *testing.T) {
	s, chats := newHandlerServer()
	chat, _, err := chats.GetOrCreate(context.Background(), "alice", "bob")
	if err != nil {
		t.Fatal(err)
	}
	mallory := addConn(s, "c9", "mallory")
	bob := addConn(s, "c2", "bob")
	s.joinRoom(ChatRoom(chat.ID), bob.ID)

	s.handleTyping(context.Background(), mallory, typingFrame(chat.ID))

	if got := drain(bob); len(got) != 0 {
		t.Errorf("non-participant typing relayed: %v", got)
	}
}
