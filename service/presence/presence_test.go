package presence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	userstore "github.com/vinodkrishna221/nexuschat/module/user/store"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, userstore.NewMemoryUserStore(), time.Minute)
}

func TestApplyOnlineFirstConnection(t *testing.T) {
	var rec Record
	now := time.Now()

	if first := applyOnline(&rec, "c1", now); !first {
		t.Error("first connection should report offline→online transition")
	}
	if !rec.Online || len(rec.ConnIDs) != 1 || rec.ConnIDs[0] != "c1" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestApplyOnlineSecondConnection(t *testing.T) {
	rec := Record{Online: true, ConnIDs: []string{"c1"}}

	if first := applyOnline(&rec, "c2", time.Now()); first {
		t.Error("second connection must not report a transition")
	}
	if len(rec.ConnIDs) != 2 {
		t.Errorf("ConnIDs = %v, want two entries", rec.ConnIDs)
	}
}

func TestApplyOnlineDuplicateConnID(t *testing.T) {
	rec := Record{Online: true, ConnIDs: []string{"c1"}}

	applyOnline(&rec, "c1", time.Now())
	if len(rec.ConnIDs) != 1 {
		t.Errorf("duplicate conn id must not grow the set: %v", rec.ConnIDs)
	}
}

func TestApplyDisconnectKeepsOnlineWhileConnsRemain(t *testing.T) {
	rec := Record{Online: true, ConnIDs: []string{"c1", "c2"}}
	seen := rec.LastSeen

	if offline := applyDisconnect(&rec, "c1", time.Now()); offline {
		t.Error("one remaining connection must keep the user online")
	}
	if !rec.Online || len(rec.ConnIDs) != 1 || rec.ConnIDs[0] != "c2" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !rec.LastSeen.Equal(seen) {
		t.Error("lastSeen must not change while still online")
	}
}

func TestApplyDisconnectLastConnection(t *testing.T) {
	rec := Record{Online: true, ConnIDs: []string{"c1"}}
	now := time.Now()

	if offline := applyDisconnect(&rec, "c1", now); !offline {
		t.Error("emptying the connection set must report fully offline")
	}
	if rec.Online || len(rec.ConnIDs) != 0 {
		t.Errorf("unexpected record: %+v", rec)
	}
	if !rec.LastSeen.Equal(now) {
		t.Error("lastSeen must be stamped at the final disconnect")
	}
}

func TestApplyDisconnectUnknownConnID(t *testing.T) {
	rec := Record{Online: true, ConnIDs: []string{"c1"}}

	if offline := applyDisconnect(&rec, "zz", time.Now()); offline {
		t.Error("removing an unknown conn id must not flip the user offline")
	}
	if !rec.Online || len(rec.ConnIDs) != 1 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestSetOnlineRetainsEveryConnection(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	first, err := c.SetOnline(ctx, "alice", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !first {
		t.Error("first device must report the offline→online transition")
	}
	first, err = c.SetOnline(ctx, "alice", "c2")
	if err != nil {
		t.Fatal(err)
	}
	if first {
		t.Error("second device must not report a transition")
	}

	offline, _, err := c.RemoveConnection(ctx, "alice", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if offline {
		t.Error("user with a second open device must stay online")
	}
	rec, err := c.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if !rec.Online || len(rec.ConnIDs) != 1 || rec.ConnIDs[0] != "c2" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

// Devices connecting at the same instant from different gateway instances
// contend on the same key; the watched transaction retries the loser, so
// neither connection id is lost and no spurious offline follows.
func TestSetOnlineConcurrentDevices(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, connID := range []string{"c1", "c2"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := c.SetOnline(ctx, "alice", id); err != nil {
				t.Error(err)
			}
		}(connID)
	}
	wg.Wait()

	rec, err := c.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.ConnIDs) != 2 {
		t.Fatalf("ConnIDs = %v, want both devices retained", rec.ConnIDs)
	}
	if offline, _, err := c.RemoveConnection(ctx, "alice", "c1"); err != nil || offline {
		t.Errorf("offline=%v err=%v after closing one of two devices", offline, err)
	}
}

// The offline broadcast and later presence queries must agree on one
// timestamp: RemoveConnection returns exactly the lastSeen it stored.
func TestRemoveConnectionReturnsStoredLastSeen(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	if _, err := c.SetOnline(ctx, "alice", "c1"); err != nil {
		t.Fatal(err)
	}
	offline, lastSeen, err := c.RemoveConnection(ctx, "alice", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !offline {
		t.Fatal("closing the only device must report fully offline")
	}

	rec, err := c.Get(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Online {
		t.Errorf("record still online: %+v", rec)
	}
	if !rec.LastSeen.Equal(lastSeen) {
		t.Errorf("returned lastSeen %v, cache holds %v", lastSeen, rec.LastSeen)
	}
}
