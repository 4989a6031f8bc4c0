package monitor

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cuemby/dataprocessor/pkg/log"
	"github.com/cuemby/dataprocessor/pkg/metrics"
	"github.com/rs/zerolog"
)

func workerLabel(id int) string { return strconv.Itoa(id) }

// DefaultInterval is the default monitoring cadence (spec.md §4.C: one
// snapshot per second, tunable).
const DefaultInterval = time.Second

// Sender is the subset of transport.Sender a Reporter needs; kept narrow
// so tests can supply a fake without pulling in ZeroMQ.
type Sender interface {
	Send(ctx context.Context, payload []byte) error
}

// Reporter is the periodic task described in spec.md §4.C: it samples a
// Point on a fixed cadence and publishes the snapshot, either broadcast
// (pidtarget "*") or directed at a requester named via RequestDirected.
type Reporter struct {
	point    *Point
	sender   Sender
	interval time.Duration
	logger   zerolog.Logger
	requests chan string
	stopCh   chan struct{}
	done     chan struct{}
}

// NewReporter builds a Reporter for point, publishing through sender at
// the given cadence. An interval <= 0 uses DefaultInterval.
func NewReporter(managerName string, point *Point, sender Sender, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{
		point:    point,
		sender:   sender,
		interval: interval,
		logger:   log.WithManager(managerName),
		requests: make(chan string, 8),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic broadcast loop in the background.
func (r *Reporter) Start() {
	go r.run()
}

// Stop terminates the reporter. It blocks until the background loop has
// exited, matching spec.md §4.C's "terminates cleanly when the manager
// signals stop".
func (r *Reporter) Stop() {
	close(r.stopCh)
	<-r.done
}

// RequestDirected asks the reporter to send one extra snapshot addressed
// to pidsource, implementing the getstatus command's directed reply. It
// never blocks the caller.
func (r *Reporter) RequestDirected(pidsource string) {
	select {
	case r.requests <- pidsource:
	default:
		r.logger.Warn().Str("requester", pidsource).Msg("monitoring request queue full, dropping")
	}
}

func (r *Reporter) run() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	ctx := context.Background()

	for {
		select {
		case <-ticker.C:
			r.publish(ctx, "*")
		case requester := <-r.requests:
			r.publish(ctx, requester)
		case <-r.stopCh:
			return
		}
	}
}

func (r *Reporter) publish(ctx context.Context, pidtarget string) {
	timer := metrics.NewTimer()
	snap := r.point.Snapshot(pidtarget)
	timer.ObserveDuration(metrics.MonitoringSnapshotDuration)
	r.recordMetrics(snap)

	payload, err := json.Marshal(snap)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to serialize monitoring snapshot")
		return
	}
	if err := r.sender.Send(ctx, payload); err != nil {
		r.logger.Error().Err(err).Msg("failed to publish monitoring snapshot")
	}
}

// recordMetrics pushes the same facts into Prometheus gauges so they are
// scrapeable between snapshots, not just visible on the monitoring wire.
func (r *Reporter) recordMetrics(snap Snapshot) {
	name := snap.Header.PidSource
	metrics.QueueDepth.WithLabelValues(name, "lp").Set(float64(snap.QueueLPSize))
	metrics.QueueDepth.WithLabelValues(name, "hp").Set(float64(snap.QueueHPSize))
	metrics.QueueDepth.WithLabelValues(name, "result").Set(float64(snap.QueueResultSize))
	metrics.ManagerStatus.WithLabelValues(name, snap.ManagerStatus).Set(1)

	for id, rate := range snap.WorkerRates {
		workerID := workerLabel(id)
		metrics.WorkerProcessingRate.WithLabelValues(name, workerID).Set(float64(rate))
	}
	for id, total := range snap.WorkerTotalEvents {
		metrics.WorkerProcessedTotal.WithLabelValues(name, workerLabel(id)).Set(float64(total))
	}
}
