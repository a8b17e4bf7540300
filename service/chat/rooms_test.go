package chat

import (
	"sort"
	"testing"
)

func TestRoomsFirstAndLastLocal(t *testing.T) {
	r := NewRooms()

	if first := r.Join("chat:1", "c1"); !first {
		t.Error("first member must report firstLocal")
	}
	if first := r.Join("chat:1", "c2"); first {
		t.Error("second member must not report firstLocal")
	}

	if last := r.Leave("chat:1", "c1"); last {
		t.Error("leave with members remaining must not report lastLocal")
	}
	if last := r.Leave("chat:1", "c2"); !last {
		t.Error("final leave must report lastLocal")
	}
}

func TestRoomsLeaveAll(t *testing.T) {
	r := NewRooms()
	r.Join("user:a", "c1")
	r.Join("chat:1", "c1")
	r.Join("chat:1", "c2")

	emptied := r.LeaveAll("c1")
	sort.Strings(emptied)
	if len(emptied) != 1 || emptied[0] != "user:a" {
		t.Errorf("emptied = %v, want [user:a] (chat:1 still has c2)", emptied)
	}
	if r.IsMember("chat:1", "c1") {
		t.Error("c1 still member of chat:1 after LeaveAll")
	}
	if !r.IsMember("chat:1", "c2") {
		t.Error("LeaveAll removed an unrelated member")
	}
}

func TestRoomsLeaveUnknown(t *testing.T) {
	r := NewRooms()
	r.Join("chat:1", "c1")

	if last := r.Leave("chat:1", "ghost"); last {
		t.Error("leaving a room one never joined must not empty it")
	}
	if last := r.Leave("nope", "c1"); last {
		t.Error("leaving an unknown room must be a no-op")
	}
}

func TestRoomsMembers(t *testing.T) {
	r := NewRooms()
	r.Join("chat:1", "c1")
	r.Join("chat:1", "c2")

	m := r.Members("chat:1")
	sort.Strings(m)
	if len(m) != 2 || m[0] != "c1" || m[1] != "c2" {
		t.Errorf("Members = %v", m)
	}
	if got := r.Members("empty"); len(got) != 0 {
		t.Errorf("Members(empty) = %v", got)
	}
}
