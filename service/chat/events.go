package chat

import (
	"encoding/json"

	"github.com/vinodkrishna221/nexuschat/tools/errs"
)

// EventKind is the closed set of inbound events. Dispatch goes through this
// enum rather than raw event strings so an unknown event can never reach a
// handler.
type EventKind int

const (
	EvUnknown EventKind = iota
	EvChatJoin
	EvChatLeave
	EvTypingStart
	EvTypingStop
	EvMessageSend
	EvMessageDelivered
	EvMessageRead
	EvHeartbeat
	EvPresenceQuery
)

// Wire event names, identical on both directions of the channel.
const (
	EventChatJoin         = "chat:join"
	EventChatLeave        = "chat:leave"
	EventTypingStart      = "typing:start"
	EventTypingStop       = "typing:stop"
	EventMessageSend      = "message:send"
	EventMessageDelivered = "message:delivered"
	EventMessageRead      = "message:read"
	EventHeartbeat        = "presence:heartbeat"
	EventPresenceQuery    = "presence:query"

	EventUserOnline  = "user:online"
	EventUserOffline = "user:offline"
	EventAck         = "ack"
	EventError       = "error"
)

var eventKinds = map[string]EventKind{
	EventChatJoin:         EvChatJoin,
	EventChatLeave:        EvChatLeave,
	EventTypingStart:      EvTypingStart,
	EventTypingStop:       EvTypingStop,
	EventMessageSend:      EvMessageSend,
	EventMessageDelivered: EvMessageDelivered,
	EventMessageRead:      EvMessageRead,
	EventHeartbeat:        EvHeartbeat,
	EventPresenceQuery:    EvPresenceQuery,
}

// KindOf maps a wire event name to its kind, EvUnknown when unrecognized.
func KindOf(event string) EventKind { return eventKinds[event] }

// Frame is the JSON wire frame. AckID is set on request/response events
// (message:send, presence:query) and echoed back on the reply.
type Frame struct {
	Event string          `json:"event"`
	AckID string          `json:"ackId,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.Wrap(err)
	}
	if f.Event == "" {
		return nil, errs.New("frame missing event")
	}
	return &f, nil
}

func MarshalFrame(event, ackID string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, errs.Wrap(err)
		}
		raw = b
	}
	return json.Marshal(Frame{Event: event, AckID: ackID, Data: raw})
}

// readString accepts frame data that is either a bare JSON string or an
// object with the given field, which is how the reference clients send ids.
func readString(raw json.RawMessage, field string) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	if err := json.Unmarshal(obj[field], &s); err != nil {
		return ""
	}
	return s
}
