package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultOK      = "ok"
	ResultInvalid = "invalid"
	ResultError   = "error"

	TriggerPing      = "ping"
	TriggerScheduled = "scheduled"
)

var (
	// PingsTotal counts ping requests by outcome
	PingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionpulse_pings_total",
		Help: "The total number of ping requests by result",
	}, []string{"result"})

	SessionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionpulse_sessions_created_total",
		Help: "The total number of sessions inserted by a first ping",
	})

	// SessionsSweptTotal counts retention deletions by what triggered the sweep
	SessionsSweptTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sessionpulse_sessions_swept_total",
		Help: "The total number of sessions removed by the retention sweep",
	}, []string{"trigger"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sessionpulse_http_request_duration_seconds",
		Help:    "The HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
