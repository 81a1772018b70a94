// Package metrics holds the prometheus collectors shared by the services and
// the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// TimerEvents counts timer transitions by kind (started, stopped, manual)
	TimerEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklog_timer_events_total",
			Help: "Timer starts, stops and manual log entries",
		},
		[]string{"event"},
	)

	// LoggedMinutes accumulates minutes recorded by stopped timers and manual logs
	LoggedMinutes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasklog_logged_minutes_total",
			Help: "Minutes recorded across all tasks",
		},
	)

	// Notifications counts notification outcomes (sent, failed, dropped)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklog_notifications_total",
			Help: "Notification delivery outcomes",
		},
		[]string{"result"},
	)

	// ReportCache counts aggregation cache lookups (hit, miss, error)
	ReportCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasklog_report_cache_total",
			Help: "Aggregation cache lookups",
		},
		[]string{"result"},
	)
)
