package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	contactSubmissions    *prometheus.CounterVec
	recaptchaVerification *prometheus.CounterVec
	emailDispatchSeconds  *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses.",
		}, []string{"method", "route", "status"})

		contactSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by outcome.",
		}, []string{"outcome"})

		recaptchaVerification = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recaptcha_verifications_total",
			Help: "Challenge token verifications by result.",
		}, []string{"result"})

		emailDispatchSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "email_dispatch_duration_seconds",
			Help:    "Time spent handing messages to the mail relay.",
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			contactSubmissions,
			recaptchaVerification,
			emailDispatchSeconds,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// ContactSubmissions counts submissions by outcome.
func ContactSubmissions() *prometheus.CounterVec {
	RegisterMetrics()
	return contactSubmissions
}

// RecaptchaVerifications counts verification results.
func RecaptchaVerifications() *prometheus.CounterVec {
	RegisterMetrics()
	return recaptchaVerification
}

// EmailDispatchDuration observes relay send latency.
func EmailDispatchDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return emailDispatchSeconds
}
