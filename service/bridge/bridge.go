// Package bridge is the cross-instance broadcast channel. Every room fanout
// goes through a Bridge publish, including the instance's own: each instance
// subscribes to the rooms it holds members of and delivers locally from the
// subscription callback, so single-process and clustered deployments share
// one code path.
package bridge

import (
	"context"
	"encoding/json"
)

// Envelope is one room broadcast. ExceptConn names a connection that must not
// receive the frame (the sender's own socket); connection ids are globally
// unique so any instance can apply the exclusion.
type Envelope struct {
	Room       string          `json:"room"`
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload"`
	ExceptConn string          `json:"exceptConn,omitempty"`

	// ExceptRoom suppresses delivery to connections that are also members of
	// the named room. Used when the same event goes to a chat room and a
	// personal room so overlapping members get it exactly once.
	ExceptRoom string `json:"exceptRoom,omitempty"`
}

// Handler receives envelopes for a subscribed room. It must not block: the
// memory bridge calls it inline and the NATS bridge calls it from the
// connection's dispatch goroutine.
type Handler func(env Envelope)

type Subscription interface {
	Unsubscribe() error
}

type Bridge interface {
	Publish(ctx context.Context, env Envelope) error
	Subscribe(room string, h Handler) (Subscription, error)
	Close() error
}
