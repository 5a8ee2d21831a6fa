package player

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTitleChanges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "radiogo",
		Name:      "title_changes_total",
		Help:      "Distinct track title changes observed, including changes to no title.",
	})
	metricMonitorReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "radiogo",
		Name:      "monitor_reconnects_total",
		Help:      "Metadata connection reopens after transient failures.",
	})
	metricPlaybackFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "radiogo",
		Name:      "playback_failures_total",
		Help:      "Play attempts that ended in a failed state.",
	})
	metricPlaybackState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "radiogo",
		Name:      "playback_state",
		Help:      "Current playback state: 0 idle, 1 starting, 2 playing, 3 failed.",
	})
)
