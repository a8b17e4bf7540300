package store

import (
	"context"
	"time"
)

// PresenceFields is the durable presence snapshot kept on the user document.
// It backs the cache when the Redis entry has expired.
type PresenceFields struct {
	Online   bool
	LastSeen time.Time
}

// UserStore persists the durable side of presence.
type UserStore interface {
	Presence(ctx context.Context, userID string) (PresenceFields, error)
	SetOnline(ctx context.Context, userID string, at time.Time) error
	SetOffline(ctx context.Context, userID string, at time.Time) error
}
