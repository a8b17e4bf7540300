package store

import (
	"context"
	"sort"
	"testing"

	"github.com/vinodkrishna221/nexuschat/module/contact/model"
)

func TestPeersOfBidirectional(t *testing.T) {
	g := NewMemoryGraph()
	// b added a, a added c: both directions count
	g.Add("b", "a", model.StatusAccepted)
	g.Add("a", "c", model.StatusAccepted)

	peers, err := g.PeersOf(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(peers)
	if len(peers) != 2 || peers[0] != "b" || peers[1] != "c" {
		t.Errorf("PeersOf(a) = %v, want [b c]", peers)
	}
}

func TestPeersOfExcludesBlocks(t *testing.T) {
	g := NewMemoryGraph()
	g.Add("a", "b", model.StatusAccepted)
	g.Add("b", "a", model.StatusAccepted)
	g.Add("a", "c", model.StatusAccepted)
	g.Add("a", "d", model.StatusAccepted)
	// a blocked c; d blocked a — both must vanish from a's peer set
	g.Add("a", "c", model.StatusBlocked)
	g.Add("d", "a", model.StatusBlocked)

	peers, err := g.PeersOf(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(peers) != 1 || peers[0] != "b" {
		t.Errorf("PeersOf(a) = %v, want [b]", peers)
	}
}

func TestPeersOfDeduplicates(t *testing.T) {
	g := NewMemoryGraph()
	g.Add("a", "b", model.StatusAccepted)
	g.Add("b", "a", model.StatusAccepted)

	peers, err := g.PeersOf(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(peers) != 1 {
		t.Errorf("expected b once, got %v", peers)
	}
}

func TestBlocked(t *testing.T) {
	g := NewMemoryGraph()
	g.Add("a", "b", model.StatusBlocked)

	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		blocked, err := g.Blocked(context.Background(), pair[0], pair[1])
		if err != nil {
			t.Fatal(err)
		}
		if !blocked {
			t.Errorf("Blocked(%s,%s) = false, want true", pair[0], pair[1])
		}
	}

	blocked, _ := g.Blocked(context.Background(), "a", "c")
	if blocked {
		t.Error("Blocked(a,c) = true, want false")
	}
}
