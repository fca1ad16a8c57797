// Package metrics registers Prometheus instruments for the api and worker
// processes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker tracks pipeline job outcomes and durations.
type Worker struct {
	jobsTotal   *prometheus.CounterVec
	jobDuration prometheus.Histogram
	inFlight    prometheus.Gauge
}

func NewWorker(reg prometheus.Registerer) *Worker {
	factory := promauto.With(reg)
	return &Worker{
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Processing jobs by terminal outcome.",
		}, []string{"outcome"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Wall time of a processing job from dequeue to terminal status.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "invoiceflow",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Jobs currently being processed.",
		}),
	}
}

// ObserveJob records one finished job. outcome is "done", "failed" or
// "error" (the job itself errored before reaching a terminal status).
func (w *Worker) ObserveJob(outcome string, elapsed time.Duration) {
	w.jobsTotal.WithLabelValues(outcome).Inc()
	w.jobDuration.Observe(elapsed.Seconds())
}

func (w *Worker) JobStarted()  { w.inFlight.Inc() }
func (w *Worker) JobFinished() { w.inFlight.Dec() }
