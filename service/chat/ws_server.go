package chat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vinodkrishna221/nexuschat/logger"
	"github.com/vinodkrishna221/nexuschat/service/metrics"
	"github.com/vinodkrishna221/nexuschat/tools/ids"
	"github.com/vinodkrishna221/nexuschat/tools/security"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const cleanupTimeout = 5 * time.Second

// bearerToken extracts the handshake credential from the Authorization
// header or the token query parameter (browser websocket clients cannot set
// headers).
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer"))
	}
	return c.Query("token")
}

// HandleWS is the gin handler for /ws. The credential is verified before the
// upgrade; an unauthenticated request never becomes a websocket and never
// reaches a handler.
func (s *Server) HandleWS(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
		return
	}
	userID, err := security.Verify(s.jwt, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[HandleWS] upgrade failed: %v", err)
		return
	}

	conn := newConn(ids.GenerateString(), userID, ws, s.ws.SendQueue)
	ws.SetReadLimit(s.ws.ReadLimit)

	s.register(conn)
	go s.writePump(conn)
	s.readLoop(conn)
	s.unregister(conn)
}

// register indexes the connection, joins the personal room and flips the
// presence cache. The online broadcast fires only on the offline→online
// transition, not for every additional device.
func (s *Server) register(conn *Conn) {
	s.conns.Add(conn)
	s.joinRoom(UserRoom(conn.UserID), conn.ID)
	metrics.OnlineConns.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	first, err := s.presence.SetOnline(ctx, conn.UserID, conn.ID)
	if err != nil {
		// Degraded presence never blocks the connection itself.
		logger.Warnf("presence online update failed: user=%s err=%v", conn.UserID, err)
		return
	}
	if first {
		s.broadcastPresence(ctx, conn.UserID, EventUserOnline, conn.UserID)
	}
	logger.Infof("[WS] connected user=%s conn=%s first=%v", conn.UserID, conn.ID, first)
}

// unregister runs the offline cleanup to completion. It deliberately uses a
// fresh context: a disconnect cancels the connection's work, not its own
// teardown, and a fast-following reconnect has a new conn id so the two
// commute.
func (s *Server) unregister(conn *Conn) {
	conn.close()
	s.conns.Remove(conn.ID)
	for _, room := range s.rooms.LeaveAll(conn.ID) {
		s.dropSubscription(room)
	}
	metrics.OnlineConns.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	offline, lastSeen, err := s.presence.RemoveConnection(ctx, conn.UserID, conn.ID)
	if err != nil {
		logger.Warnf("presence offline update failed: user=%s err=%v", conn.UserID, err)
		return
	}
	if offline {
		// Broadcast the timestamp the cache recorded so peers and later
		// presence queries agree on one last-seen value.
		s.broadcastPresence(ctx, conn.UserID, EventUserOffline, OfflineNotice{
			UserID:   conn.UserID,
			LastSeen: lastSeen,
		})
	}
	logger.Infof("[WS] disconnected user=%s conn=%s offline=%v", conn.UserID, conn.ID, offline)
}

// readLoop processes inbound frames in arrival order; per-connection ordering
// is exactly the loop's ordering. Exits on any read error.
func (s *Server) readLoop(conn *Conn) {
	ws := conn.ws
	_ = ws.SetReadDeadline(time.Now().Add(s.ws.PongTimeout.D()))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(s.ws.PongTimeout.D()))
	})

	ctx := context.Background()
	for {
		mt, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s", conn.ID)
			} else {
				logger.Infof("[WS] read error conn=%s err=%v", conn.ID, err)
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		frame, err := ParseFrame(data)
		if err != nil {
			logger.Debugf("[WS] bad frame conn=%s err=%v", conn.ID, err)
			continue
		}
		s.dispatch(ctx, conn, frame)
	}
}

// writePump is the connection's only writer: it drains the send queue and
// keeps the transport alive with pings.
func (s *Server) writePump(conn *Conn) {
	ticker := time.NewTicker(s.ws.PingInterval.D())
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()

	for {
		select {
		case data := <-conn.send:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.ws.WriteTimeout.D()))
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debugf("[WS] write error conn=%s err=%v", conn.ID, err)
				return
			}
		case <-ticker.C:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.ws.WriteTimeout.D()))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-conn.done:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(s.ws.WriteTimeout.D()))
			_ = conn.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
