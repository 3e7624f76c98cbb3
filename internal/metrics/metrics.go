package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsHistogram = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "podsync",
			Name:      "api_requests",
			Help:      "Time taken to process requests",
			Buckets:   []float64{.005, .01, .025, .05, .075, .1, .15, .2, .25, .5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"handler", "method", "error"},
	)

	DeletionTasksCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "podsync",
			Name:      "deletion_tasks",
			Help:      "Number of processed deletion tasks by resulting status",
		},
		[]string{"status"},
	)

	PendingDeletionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "podsync",
			Name:      "pending_deletions",
			Help:      "Number of deletion tasks waiting for the worker",
		},
	)
)

func CollectRequestsMetric(handler, method string, err error, start time.Time) {
	RequestsHistogram.
		WithLabelValues(handler, method, errLabelValue(err)).
		Observe(time.Since(start).Seconds())
}

func CollectDeletionTask(status string) {
	DeletionTasksCounter.
		WithLabelValues(status).
		Inc()
}

func errLabelValue(err error) string {
	if err != nil {
		return "true"
	}
	return "false"
}
