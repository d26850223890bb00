package bounds

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeCompleted   = "completed"
	outcomeEmpty       = "empty"
	outcomeCancelled   = "cancelled"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

var discoveryScansTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "topicnav_discovery_scans_total",
		Help: "Total number of full-topic boundary discovery scans by outcome",
	},
	[]string{"outcome"},
)

var discoveryMessagesScanned = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "topicnav_discovery_messages_scanned_total",
		Help: "Total number of message events read by boundary discovery scans",
	},
)

func init() {
	prometheus.MustRegister(discoveryScansTotal)
	prometheus.MustRegister(discoveryMessagesScanned)
}
