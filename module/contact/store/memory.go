package store

import (
	"context"
	"sync"

	"github.com/vinodkrishna221/nexuschat/module/contact/model"
)

// MemoryGraph is the in-process Graph used by tests.
type MemoryGraph struct {
	mu    sync.RWMutex
	edges []*model.Contact
}

func NewMemoryGraph() *MemoryGraph {
	return &MemoryGraph{}
}

func (g *MemoryGraph) Add(ownerID, peerID string, status model.ContactStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.edges {
		if c.OwnerID == ownerID && c.PeerID == peerID {
			c.Status = status
			return
		}
	}
	g.edges = append(g.edges, &model.Contact{OwnerID: ownerID, PeerID: peerID, Status: status})
}

func (g *MemoryGraph) collect(userID string, status model.ContactStatus) []*model.Contact {
	var out []*model.Contact
	for _, c := range g.edges {
		if c.Status == status && (c.OwnerID == userID || c.PeerID == userID) {
			out = append(out, c)
		}
	}
	return out
}

func (g *MemoryGraph) PeersOf(_ context.Context, userID string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return resolvePeers(userID, g.collect(userID, model.StatusAccepted), g.collect(userID, model.StatusBlocked)), nil
}

func (g *MemoryGraph) Blocked(_ context.Context, userID, otherID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, c := range g.edges {
		if c.Status != model.StatusBlocked {
			continue
		}
		if (c.OwnerID == userID && c.PeerID == otherID) || (c.OwnerID == otherID && c.PeerID == userID) {
			return true, nil
		}
	}
	return false, nil
}
