package httpadapter

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/lucabarone/invoiceflow/internal/observability/metrics"
)

// rateLimitMiddleware sheds load above the configured request rate. A zero or
// negative rate disables the gate entirely, so a misconfigured deployment
// fails open instead of blocking all traffic.
func rateLimitMiddleware(next http.Handler, rps float64, burst int, httpMetrics *metrics.HTTP) http.Handler {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			if httpMetrics != nil {
				httpMetrics.ObserveRejection("rate_limit")
			}
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate limit exceeded, retry shortly",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// backpressureMiddleware caps concurrent in-flight requests. Waiters hold on
// briefly for a slot; past the wait they get an overload response rather than
// queueing unbounded.
func backpressureMiddleware(next http.Handler, maxInFlight int, wait time.Duration, httpMetrics *metrics.HTTP) http.Handler {
	if maxInFlight <= 0 {
		return next
	}
	slots := make(chan struct{}, maxInFlight)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := time.NewTimer(wait)
		defer timer.Stop()

		select {
		case slots <- struct{}{}:
			defer func() { <-slots }()
			next.ServeHTTP(w, r)
		case <-timer.C:
			if httpMetrics != nil {
				httpMetrics.ObserveRejection("backpressure")
			}
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "server is overloaded, retry shortly",
			})
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "request cancelled while waiting for capacity",
			})
		}
	})
}
