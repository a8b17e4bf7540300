package model

import "time"

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeImage MessageType = "image"
	TypeFile  MessageType = "file"
)

// MaxContentLen bounds message content length in characters.
const MaxContentLen = 5000

// Message status only ever moves forward: sent -> delivered -> read. The
// delivered/read timestamps are nil until the corresponding transition; a
// read without a prior deliver backfills DeliveredAt = ReadAt.
type Message struct {
	ID          string        `bson:"_id" json:"id"`
	ChatID      string        `bson:"chat_id" json:"chatId"`
	SenderID    string        `bson:"sender_id" json:"senderId"`
	Content     string        `bson:"content" json:"content"`
	Type        MessageType   `bson:"type" json:"type"`
	Status      MessageStatus `bson:"status" json:"status"`
	DeliveredAt *time.Time    `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`
	ReadAt      *time.Time    `bson:"read_at,omitempty" json:"readAt,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"createdAt"`
}

func ValidType(t MessageType) bool {
	switch t {
	case TypeText, TypeImage, TypeFile:
		return true
	}
	return false
}

// CanDeliver reports whether actor may advance this message to delivered.
// Only the recipient of a still-sent message may.
func (m *Message) CanDeliver(actorID string) bool {
	return m.SenderID != actorID && m.Status == StatusSent
}

// CanRead reports whether actor may advance this message to read.
func (m *Message) CanRead(actorID string) bool {
	return m.SenderID != actorID && m.Status != StatusRead
}

// ApplyDelivered performs the sent->delivered transition in place. Callers
// must have checked CanDeliver.
func (m *Message) ApplyDelivered(at time.Time) {
	m.Status = StatusDelivered
	m.DeliveredAt = &at
}

// ApplyRead performs the ->read transition in place, backfilling DeliveredAt
// when the message skipped the delivered state. Callers must have checked
// CanRead.
func (m *Message) ApplyRead(at time.Time) {
	m.Status = StatusRead
	m.ReadAt = &at
	if m.DeliveredAt == nil {
		m.DeliveredAt = &at
	}
}
