package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Queue depth metrics
	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataprocessor_queue_depth",
			Help: "Current depth of a manager queue by manager and queue kind (lp, hp, result)",
		},
		[]string{"manager", "queue"},
	)

	// Worker metrics
	WorkerProcessingRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataprocessor_worker_processing_rate_hz",
			Help: "Most recent processing rate for a worker, in payloads per second",
		},
		[]string{"manager", "worker_id"},
	)

	WorkerProcessedTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataprocessor_worker_processed_total",
			Help: "Monotonic count of payloads processed by a worker",
		},
		[]string{"manager", "worker_id"},
	)

	WorkersTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataprocessor_workers_total",
			Help: "Total number of workers by manager and status",
		},
		[]string{"manager", "status"},
	)

	// Manager/supervisor state metrics
	ManagerStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataprocessor_manager_status",
			Help: "Current manager lifecycle state (1 = active for this state label, 0 otherwise)",
		},
		[]string{"manager", "state"},
	)

	SupervisorStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dataprocessor_supervisor_status",
			Help: "Current supervisor lifecycle state (1 = active for this state label, 0 otherwise)",
		},
		[]string{"process", "state"},
	)

	// Command/dispatch metrics
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataprocessor_commands_total",
			Help: "Total number of commands received by type",
		},
		[]string{"type"},
	)

	PayloadsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataprocessor_payloads_ingested_total",
			Help: "Total number of payloads accepted onto an ingress queue",
		},
		[]string{"manager", "priority"},
	)

	PayloadsDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataprocessor_payloads_dropped_total",
			Help: "Total number of payloads dropped (decode failure, result send failure)",
		},
		[]string{"manager", "reason"},
	)

	ResultsForwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dataprocessor_results_forwarded_total",
			Help: "Total number of results forwarded to a manager's egress channel",
		},
		[]string{"manager"},
	)

	// Latency metrics
	ProcessDataDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataprocessor_process_data_duration_seconds",
			Help:    "Time taken by the process_data hook per invocation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"manager"},
	)

	MonitoringSnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dataprocessor_monitoring_snapshot_duration_seconds",
			Help:    "Time taken to build and serialize one monitoring snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	CommandDispatchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataprocessor_command_dispatch_duration_seconds",
			Help:    "Time taken to dispatch a received command to its handler",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(QueueDepth)
	prometheus.MustRegister(WorkerProcessingRate)
	prometheus.MustRegister(WorkerProcessedTotal)
	prometheus.MustRegister(WorkersTotal)
	prometheus.MustRegister(ManagerStatus)
	prometheus.MustRegister(SupervisorStatus)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(PayloadsIngestedTotal)
	prometheus.MustRegister(PayloadsDroppedTotal)
	prometheus.MustRegister(ResultsForwardedTotal)
	prometheus.MustRegister(ProcessDataDuration)
	prometheus.MustRegister(MonitoringSnapshotDuration)
	prometheus.MustRegister(CommandDispatchDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
