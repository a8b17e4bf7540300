package chat

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Conn is one live websocket session. The read loop is the only reader and
// the write pump the only writer; everything else talks to the connection
// through the bounded send queue.
type Conn struct {
	ID     string
	UserID string

	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id, userID string, ws *websocket.Conn, queueSize int) *Conn {
	return &Conn{
		ID:     id,
		UserID: userID,
		ws:     ws,
		send:   make(chan []byte, queueSize),
		done:   make(chan struct{}),
	}
}

// enqueue queues a frame for the write pump without blocking. Returns false
// when the queue is full or the connection is closing; the caller drops the
// frame.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close signals the write pump to drain and close the socket. Safe to call
// from any goroutine, any number of times.
func (c *Conn) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// ConnManager is the process-local connection registry: primary index by
// connection id, secondary index by user for multi-device fanout. It is never
// consulted across processes; cross-instance visibility goes through the
// presence cache and the bridge.
type ConnManager struct {
	mu     sync.RWMutex
	byID   map[string]*Conn
	byUser map[string]map[string]*Conn
}

func NewConnManager() *ConnManager {
	return &ConnManager{
		byID:   make(map[string]*Conn),
		byUser: make(map[string]map[string]*Conn),
	}
}

func (m *ConnManager) Add(c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[c.ID] = c
	if m.byUser[c.UserID] == nil {
		m.byUser[c.UserID] = make(map[string]*Conn)
	}
	m.byUser[c.UserID][c.ID] = c
}

// Remove unregisters and returns the connection, nil if unknown.
func (m *ConnManager) Remove(connID string) *Conn {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[connID]
	if !ok {
		return nil
	}
	delete(m.byID, connID)
	if mm := m.byUser[c.UserID]; mm != nil {
		delete(mm, connID)
		if len(mm) == 0 {
			delete(m.byUser, c.UserID)
		}
	}
	return c
}

func (m *ConnManager) Get(connID string) (*Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.byID[connID]
	return c, ok
}

// UserConns returns all live connections of a user on this instance.
func (m *ConnManager) UserConns(userID string) []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Conn, 0, len(m.byUser[userID]))
	for _, c := range m.byUser[userID] {
		out = append(out, c)
	}
	return out
}

func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// CloseAll tears down every connection, used at shutdown.
func (m *ConnManager) CloseAll() {
	m.mu.Lock()
	conns := make([]*Conn, 0, len(m.byID))
	for _, c := range m.byID {
		conns = append(conns, c)
	}
	m.byID = make(map[string]*Conn)
	m.byUser = make(map[string]map[string]*Conn)
	m.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}
