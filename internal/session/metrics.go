package session

import "github.com/prometheus/client_golang/prometheus"

var (
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "topicnav_sessions_active",
			Help: "Number of live navigation sessions",
		},
	)

	sessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "topicnav_sessions_created_total",
			Help: "Total number of navigation sessions created",
		},
	)

	sessionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "topicnav_sessions_expired_total",
			Help: "Total number of navigation sessions closed for being idle",
		},
	)
)

func init() {
	prometheus.MustRegister(sessionsActive)
	prometheus.MustRegister(sessionsCreated)
	prometheus.MustRegister(sessionsExpired)
}
