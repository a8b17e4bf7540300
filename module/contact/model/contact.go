package model

import "time"

type ContactStatus string

const (
	StatusAccepted ContactStatus = "accepted"
	StatusBlocked  ContactStatus = "blocked"
)

// Contact is a directed edge owner -> peer, unique per ordered pair. Two
// users may each hold an edge toward the other; a block in either direction
// makes the pair mutually non-interacting for presence and new chats.
type Contact struct {
	ID        string        `bson:"_id" json:"id"`
	OwnerID   string        `bson:"owner_id" json:"ownerId"`
	PeerID    string        `bson:"peer_id" json:"peerId"`
	Status    ContactStatus `bson:"status" json:"status"`
	Nickname  string        `bson:"nickname,omitempty" json:"nickname,omitempty"`
	AddedAt   time.Time     `bson:"added_at" json:"addedAt"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updatedAt"`
}
