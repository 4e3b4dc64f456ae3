package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"route", "method", "status"},
	)
	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request duration seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	InFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "http_in_flight_requests", Help: "In-flight HTTP requests"},
	)

	Signups = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "auth_signups_total", Help: "Accounts created via email signup"},
	)
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_logins_total", Help: "Login attempts"},
		[]string{"method", "result"},
	)
	ResetTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "auth_reset_tokens_total", Help: "Password reset tokens by stage"},
		[]string{"stage"},
	)
	Emails = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notify_emails_total", Help: "Email notifications by kind and outcome"},
		[]string{"kind", "result"},
	)
)

func MustRegister() {
	prometheus.MustRegister(RequestsTotal, ReqDuration, InFlight, Signups, Logins, ResetTokens, Emails)
}
