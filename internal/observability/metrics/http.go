package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP tracks request counts and latency for the api process.
type HTTP struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	rejectedTotal   *prometheus.CounterVec
}

func NewHTTP(reg prometheus.Registerer) *HTTP {
	factory := promauto.With(reg)
	return &HTTP{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoiceflow",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "invoiceflow",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rejectedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoiceflow",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected before the handler ran.",
		}, []string{"reason"}),
	}
}

func (h *HTTP) ObserveRequest(route, status string, elapsed time.Duration) {
	h.requestsTotal.WithLabelValues(route, status).Inc()
	h.requestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveRejection counts requests turned away by traffic control,
// reason "rate_limit" or "backpressure".
func (h *HTTP) ObserveRejection(reason string) {
	h.rejectedTotal.WithLabelValues(reason).Inc()
}
