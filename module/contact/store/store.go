package store

import (
	"context"

	"github.com/vinodkrishna221/nexuschat/module/contact/model"
)

// Graph resolves the relationship-scoped visibility set used for presence
// broadcast and chat creation.
type Graph interface {
	// PeersOf returns the users with an accepted edge to or from userID,
	// excluding anyone with a block edge in either direction.
	PeersOf(ctx context.Context, userID string) ([]string, error)

	// Blocked reports whether either user has blocked the other.
	Blocked(ctx context.Context, userID, otherID string) (bool, error)
}

// resolvePeers computes the visible peer set from a user's edges. accepted
// and blocked contain edges where userID appears on either side.
func resolvePeers(userID string, accepted, blocked []*model.Contact) []string {
	other := func(c *model.Contact) string {
		if c.OwnerID == userID {
			return c.PeerID
		}
		return c.OwnerID
	}

	denied := make(map[string]bool, len(blocked))
	for _, c := range blocked {
		denied[other(c)] = true
	}

	seen := make(map[string]bool, len(accepted))
	var peers []string
	for _, c := range accepted {
		id := other(c)
		if id == userID || denied[id] || seen[id] {
			continue
		}
		seen[id] = true
		peers = append(peers, id)
	}
	return peers
}
