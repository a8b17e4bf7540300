// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OnlineConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nexuschat_online_connections",
		Help: "Number of live websocket connections on this instance.",
	})

	EventsIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nexuschat_events_in_total",
		Help: "Inbound client events by kind.",
	}, []string{"event"})

	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexuschat_messages_sent_total",
		Help: "Messages accepted and persisted.",
	})

	BroadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexuschat_broadcast_drops_total",
		Help: "Frames dropped because a connection's send queue was full.",
	})

	BridgePublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nexuschat_bridge_published_total",
		Help: "Envelopes published to the cross-instance bridge.",
	})
)
