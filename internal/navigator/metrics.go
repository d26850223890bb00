package navigator

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeFound       = "found"
	outcomeNotFound    = "not_found"
	outcomeUnavailable = "unavailable"
	outcomeSkipped     = "skipped"
	outcomeSuperseded  = "superseded"
	outcomeCancelled   = "cancelled"
	outcomeTimeout     = "timeout"
	outcomeError       = "error"
)

const (
	scanForward  = "forward"
	scanWindow   = "window"
	scanBoundary = "boundary"
	scanFallback = "fallback"
)

var (
	navigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topicnav_navigations_total",
			Help: "Total number of navigation requests by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	scansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "topicnav_navigation_scans_total",
			Help: "Total number of bounded source scans issued by navigations",
		},
		[]string{"kind"},
	)

	navigationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "topicnav_navigation_duration_seconds",
			Help:    "Navigation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(navigationsTotal)
	prometheus.MustRegister(scansTotal)
	prometheus.MustRegister(navigationDuration)
}
