package model

import (
	"sort"
	"time"
)

// Chat is a durable 1:1 conversation. Participants always hold exactly two
// user ids, sorted, so the unordered pair has a single canonical form and the
// unique index on it holds.
type Chat struct {
	ID            string    `bson:"_id" json:"id"`
	Participants  []string  `bson:"participants" json:"participants"`
	LastMessageID string    `bson:"last_message_id,omitempty" json:"lastMessageId,omitempty"`
	LastActivity  time.Time `bson:"last_activity" json:"lastActivity"`
	CreatedAt     time.Time `bson:"created_at" json:"createdAt"`
}

// NormalizePair returns the two ids in canonical (sorted) order.
func NormalizePair(a, b string) []string {
	p := []string{a, b}
	sort.Strings(p)
	return p
}

func (c *Chat) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// Other returns the peer of userID in this chat. Chats have exactly two
// members, so filtering the pair is well-defined.
func (c *Chat) Other(userID string) string {
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}
