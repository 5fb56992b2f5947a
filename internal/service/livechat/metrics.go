package livechat

import "github.com/prometheus/client_golang/prometheus"

var (
	transfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_transfers_total",
			Help: "Room transfers requested, by result.",
		},
		[]string{"result"},
	)
	returnsToQueueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_returns_to_queue_total",
			Help: "Return-to-queue attempts, by result and last completed stage.",
		},
		[]string{"result", "stage"},
	)
	forwardedRoomsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_forwarded_rooms_total",
			Help: "Rooms processed while forwarding an agent's open chats, by outcome.",
		},
		[]string{"outcome"},
	)
	agentStatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livechat_agent_status_changes_total",
			Help: "Agent livechat status updates that modified a record.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(transfersTotal, returnsToQueueTotal, forwardedRoomsTotal, agentStatusChangesTotal)
}
