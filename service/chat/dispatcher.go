package chat

import (
	"context"

	"github.com/vinodkrishna221/nexuschat/logger"
	"github.com/vinodkrishna221/nexuschat/service/metrics"
)

type handlerFunc func(ctx context.Context, c *Conn, f *Frame)

func (s *Server) registerHandlers() {
	s.handlers = map[EventKind]handlerFunc{
		EvChatJoin:         s.handleChatJoin,
		EvChatLeave:        s.handleChatLeave,
		EvTypingStart:      s.handleTyping,
		EvTypingStop:       s.handleTyping,
		EvMessageSend:      s.handleMessageSend,
		EvMessageDelivered: s.handleMessageDelivered,
		EvMessageRead:      s.handleMessageRead,
		EvHeartbeat:        s.handleHeartbeat,
		EvPresenceQuery:    s.handlePresenceQuery,
	}
}

// dispatch routes one inbound frame. Events outside the closed kind set are
// dropped; a client cannot reach arbitrary handlers by event name.
func (s *Server) dispatch(ctx context.Context, c *Conn, f *Frame) {
	kind := KindOf(f.Event)
	if kind == EvUnknown {
		logger.Debugf("dropping unknown event: conn=%s event=%s", c.ID, f.Event)
		return
	}
	metrics.EventsIn.WithLabelValues(f.Event).Inc()
	s.handlers[kind](ctx, c, f)
}
