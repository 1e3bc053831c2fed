// Package metrics holds the Prometheus collectors of the chat server
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "buildingchat",
		Name:      "online_users",
		Help:      "Users with at least one open session on this process.",
	})

	OnlineConns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "buildingchat",
		Name:      "online_conns",
		Help:      "Open WebSocket sessions on this process.",
	})

	Intents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildingchat",
		Name:      "intents_total",
		Help:      "Client intents handled, by type and result code.",
	}, []string{"type", "result"})

	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "buildingchat",
		Name:      "messages_sent_total",
		Help:      "Messages appended, by parent kind.",
	}, []string{"kind"})

	PushDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "buildingchat",
		Name:      "push_dropped_total",
		Help:      "Events dropped because a push shard or session buffer was full.",
	})

	LockRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "buildingchat",
		Name:      "lock_retries_total",
		Help:      "Retries after a transient parent lock timeout.",
	})
)

func init() {
	prometheus.MustRegister(OnlineUsers)
	prometheus.MustRegister(OnlineConns)
	prometheus.MustRegister(Intents)
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(PushDropped)
	prometheus.MustRegister(LockRetries)
}
