package websocket

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livechat_ws_connections",
			Help: "Current number of active websocket connections.",
		},
	)
	wsChannels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "livechat_ws_channels",
			Help: "Current number of subscribed room and user channels.",
		},
	)
	wsMessagesDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "livechat_ws_messages_delivered_total",
			Help: "Total websocket messages delivered to clients.",
		},
	)
	notificationsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_notifications_published_total",
			Help: "Notifications published to redis, by event and result.",
		},
		[]string{"event", "result"},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, wsChannels, wsMessagesDelivered, notificationsPublished)
}

func incConnections() {
	wsConnections.Inc()
}

func decConnections() {
	wsConnections.Dec()
}

func setChannels(count int) {
	wsChannels.Set(float64(count))
}

func addDelivered(count int) {
	wsMessagesDelivered.Add(float64(count))
}
