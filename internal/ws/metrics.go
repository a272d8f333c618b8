package ws

import "github.com/prometheus/client_golang/prometheus"

// Relay/connection collectors. A relay miss is the expected steady-state
// outcome of fire-and-forget delivery to an offline user; it is counted for
// dashboards but is never an error.
var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Current number of open websocket connections.",
		},
	)

	onlineUsers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_online_users",
			Help: "Current number of announced (registered) users.",
		},
	)

	relayDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_relay_delivered_total",
			Help: "Events enqueued to a live recipient connection.",
		},
		[]string{"event"},
	)

	relayMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_relay_misses_total",
			Help: "Relay deliveries skipped because the recipient was offline.",
		},
		[]string{"event"},
	)

	relayDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_relay_dropped_total",
			Help: "Payloads dropped because a slow consumer's send buffer was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, onlineUsers, relayDelivered, relayMisses, relayDropped)
}
