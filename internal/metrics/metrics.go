package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clipstream",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30, 120, 600},
	}, []string{"method", "path"})

	QueueSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clipstream",
		Name:      "queue_size",
		Help:      "Observable queue size: queued + tentative + in-flight tasks.",
	})

	WorkerBusy = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clipstream",
		Name:      "worker_busy",
		Help:      "1 while the worker is processing a task, 0 when idle.",
	})

	TasksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clipstream",
		Name:      "tasks_total",
		Help:      "Total processed tasks by outcome.",
	}, []string{"outcome"})

	TaskDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "clipstream",
		Name:      "task_duration_seconds",
		Help:      "End-to-end pipeline duration per task in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clipstream",
		Name:      "stage_duration_seconds",
		Help:      "Duration of individual pipeline stages in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	WSClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clipstream",
		Name:      "ws_clients",
		Help:      "Number of connected WebSocket clients.",
	})

	DiskFreeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clipstream",
		Name:      "disk_free_bytes",
		Help:      "Free disk space on the task workspace filesystem.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		QueueSize,
		WorkerBusy,
		TasksTotal,
		TaskDuration,
		StageDuration,
		WSClients,
		DiskFreeBytes,
	)
}
