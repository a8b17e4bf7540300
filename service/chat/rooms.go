package chat

import "sync"

func UserRoom(userID string) string { return "user:" + userID }
func ChatRoom(chatID string) string { return "chat:" + chatID }

// Rooms tracks local room membership with forward and reverse indexes, so a
// disconnect can vacate all rooms without scanning, and the server knows when
// a room gains its first or loses its last local member (which drives bridge
// subscriptions).
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]bool // room -> conn ids
	joined  map[string]map[string]bool // conn id -> rooms
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]bool),
		joined:  make(map[string]map[string]bool),
	}
}

// Join adds the connection to the room and reports whether it is the room's
// first local member.
func (r *Rooms) Join(room, connID string) (firstLocal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[room] == nil {
		r.members[room] = make(map[string]bool)
	}
	firstLocal = len(r.members[room]) == 0
	r.members[room][connID] = true

	if r.joined[connID] == nil {
		r.joined[connID] = make(map[string]bool)
	}
	r.joined[connID][room] = true
	return firstLocal
}

// Leave removes the connection from the room and reports whether the room is
// now locally empty.
func (r *Rooms) Leave(room, connID string) (lastLocal bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(room, connID)
}

func (r *Rooms) leaveLocked(room, connID string) (lastLocal bool) {
	mm, ok := r.members[room]
	if !ok || !mm[connID] {
		return false
	}
	delete(mm, connID)
	if len(mm) == 0 {
		delete(r.members, room)
		lastLocal = true
	}
	if js := r.joined[connID]; js != nil {
		delete(js, room)
		if len(js) == 0 {
			delete(r.joined, connID)
		}
	}
	return lastLocal
}

// LeaveAll vacates every room the connection joined and returns the rooms
// that are now locally empty.
func (r *Rooms) LeaveAll(connID string) (emptied []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]string, 0, len(r.joined[connID]))
	for room := range r.joined[connID] {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		if r.leaveLocked(room, connID) {
			emptied = append(emptied, room)
		}
	}
	return emptied
}

func (r *Rooms) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.members[room]))
	for id := range r.members[room] {
		out = append(out, id)
	}
	return out
}

func (r *Rooms) IsMember(room, connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.members[room][connID]
}
