package store

import (
	"context"
	"errors"
	"time"

	"github.com/vinodkrishna221/nexuschat/module/chat/model"
)

// ErrNotFound is returned when a chat or message does not exist.
var ErrNotFound = errors.New("not found")

// ChatStore is the durable chat collection. Implementations must keep the
// one-document-per-unordered-pair invariant (participants stored sorted,
// unique index on the pair).
type ChatStore interface {
	Get(ctx context.Context, chatID string) (*model.Chat, error)

	// GetOrCreate returns the chat between the two users, creating it when
	// absent. The second return value reports whether a new chat was created.
	GetOrCreate(ctx context.Context, userA, userB string) (*model.Chat, bool, error)

	// Touch updates the chat summary (last message, last activity) after a send.
	Touch(ctx context.Context, chatID, lastMessageID string, at time.Time) error
}

// MessageStore is the durable message collection. Every status transition is
// a single conditional write whose filter re-checks the precondition, so
// concurrent acknowledgments can only move status forward.
type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error

	// MarkDelivered advances a sent message to delivered, provided actor is
	// not the sender. Returns the updated message, or (nil, nil) when the
	// precondition does not hold (already delivered/read, own message,
	// unknown id) — callers treat that as a silent no-op.
	MarkDelivered(ctx context.Context, messageID, actorID string, at time.Time) (*model.Message, error)

	// MarkRead advances a message to read, provided actor is not the sender
	// and the message is not already read. DeliveredAt is backfilled to the
	// read timestamp when the delivered step was skipped. Same no-op
	// convention as MarkDelivered.
	MarkRead(ctx context.Context, messageID, actorID string, at time.Time) (*model.Message, error)

	// ListUndelivered returns messages in the chat still in status sent that
	// were authored by someone other than recipientID.
	ListUndelivered(ctx context.Context, chatID, recipientID string) ([]*model.Message, error)

	// MarkChatDelivered batch-promotes those same messages to delivered and
	// returns the number updated.
	MarkChatDelivered(ctx context.Context, chatID, recipientID string, at time.Time) (int64, error)
}
