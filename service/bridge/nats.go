package bridge

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/vinodkrishna221/nexuschat/config"
	"github.com/vinodkrishna221/nexuschat/logger"
	"github.com/vinodkrishna221/nexuschat/tools/errs"
)

const subjectPrefix = "nexuschat.room."

// NATSBridge fans envelopes out across gateway instances. Core NATS only:
// room broadcasts are perishable, so no JetStream, no redelivery.
type NATSBridge struct {
	nc *nats.Conn
}

func NewNATSBridge(cfg config.Nats) (*NATSBridge, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect")
	}
	return &NATSBridge{nc: nc}, nil
}

// subject maps a room to a NATS subject. Room names use ':' which is legal in
// subject tokens, so no escaping is needed.
func subject(room string) string { return subjectPrefix + room }

func (b *NATSBridge) Publish(_ context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return errs.Wrap(err)
	}
	return errs.WrapMsg(b.nc.Publish(subject(env.Room), raw), "bridge publish", "room", env.Room)
}

func (b *NATSBridge) Subscribe(room string, h Handler) (Subscription, error) {
	sub, err := b.nc.Subscribe(subject(room), func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Warnf("bridge envelope corrupt, dropping: subject=%s err=%v", m.Subject, err)
			return
		}
		h(env)
	})
	if err != nil {
		return nil, errs.WrapMsg(err, "bridge subscribe", "room", room)
	}
	return sub, nil
}

func (b *NATSBridge) Close() error {
	return b.nc.Drain()
}
