package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SchedulerTicks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drumtrack_scheduler_ticks_total",
		Help: "Alert scheduler tick iterations.",
	})
	AlertsRaised = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drumtrack_alerts_raised_total",
		Help: "Confirm-group alerts raised to the operator.",
	})
	AlertsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drumtrack_alerts_expired_total",
		Help: "Alerts whose action window closed unacknowledged.",
	})
	PollFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drumtrack_poll_failures_total",
		Help: "Failed MES running-state polls.",
	})
	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drumtrack_video_uploads_total",
		Help: "Proof-video upload attempts by outcome.",
	}, []string{"status"})
)
