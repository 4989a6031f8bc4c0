package manager

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cuemby/dataprocessor/pkg/log"
	"github.com/cuemby/dataprocessor/pkg/monitor"
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/shm"
	"github.com/cuemby/dataprocessor/pkg/worker"
	"github.com/rs/zerolog"
)

// Status mirrors the supervisor's own lifecycle states for one manager
// (spec.md §3: "Manager state: mirrors supervisor state for its own
// lifecycle").
type Status string

const (
	StatusInitialised      Status = "Initialised"
	StatusWaiting          Status = "Waiting"
	StatusProcessing       Status = "Processing"
	StatusEndingProcessing Status = "EndingProcessing"
	StatusShutdown         Status = "Shutdown"
)

// DefaultLPTimeout is the bounded wait a worker's low-priority poll uses
// when the high-priority queue is empty (spec.md §4.D: "a bounded-wait
// receive (≈1s)").
const DefaultLPTimeout = time.Second

// Config describes one manager: spec.md §3's manager_*[] entry at some
// index, resolved to concrete values by the supervisor.
type Config struct {
	SupervisorName string
	Name           string // manager identifier, unique within its supervisor
	ProcessingType string // "thread" or "process"
	NumWorkers     int
	LPTimeout      time.Duration
	ShmDir         string // base directory for a process-mode region's backing file
	MaxWorkers     int    // shared-region capacity; defaults to NumWorkers
}

// Manager is WorkerManager: it owns one logical processing stage's queues,
// worker pool, and monitoring point/reporter.
type Manager struct {
	mu sync.RWMutex

	fullname       string
	processingType string
	numWorkers     int
	maxWorkers     int
	lpTimeout      time.Duration

	lpq         *queue.PriorityQueue
	resultQueue *queue.Queue
	region      *shm.Region
	shmPath     string

	workers  []worker.Worker
	stopOnce sync.Once

	status   Status
	stopdata bool

	point    *monitor.Point
	reporter *monitor.Reporter

	logger zerolog.Logger
}

// New builds a manager in the Initialised state. Its queues and shared
// region exist immediately; workers and the monitoring reporter are
// created by Start.
func New(cfg Config) (*Manager, error) {
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("manager %q: num_workers must be positive, got %d", cfg.Name, cfg.NumWorkers)
	}
	maxWorkers := cfg.MaxWorkers
	if maxWorkers < cfg.NumWorkers {
		maxWorkers = cfg.NumWorkers
	}
	lpTimeout := cfg.LPTimeout
	if lpTimeout <= 0 {
		lpTimeout = DefaultLPTimeout
	}

	fullname := fmt.Sprintf("WorkerManager-%s-%s", cfg.SupervisorName, cfg.Name)

	var region *shm.Region
	var shmPath string
	var err error
	if cfg.ProcessingType == "process" {
		shmPath = filepath.Join(cfg.ShmDir, fullname+".shm")
		region, err = shm.CreateFileRegion(shmPath, maxWorkers)
	} else {
		region = shm.NewLocalRegion(maxWorkers)
	}
	if err != nil {
		return nil, fmt.Errorf("manager %q: create shared region: %w", cfg.Name, err)
	}

	m := &Manager{
		fullname:       fullname,
		processingType: cfg.ProcessingType,
		numWorkers:     cfg.NumWorkers,
		maxWorkers:     maxWorkers,
		lpTimeout:      lpTimeout,
		lpq:            queue.NewPriorityQueue(),
		resultQueue:    queue.New(),
		region:         region,
		shmPath:        shmPath,
		status:         StatusInitialised,
		logger:         log.WithManager(fullname),
	}

	point, err := monitor.NewPoint(fullname, m)
	if err != nil {
		return nil, fmt.Errorf("manager %q: create monitoring point: %w", cfg.Name, err)
	}
	m.point = point

	return m, nil
}

// Name returns the manager's fully qualified name, used as pidsource on
// its monitoring snapshots.
func (m *Manager) Name() string { return m.fullname }

// ProcessingType returns "thread" or "process", letting the supervisor
// decide how to call Stop (spec.md §4.F's stop_all: process-mode managers
// are always stopped with fast=false, regardless of shutdown kind).
func (m *Manager) ProcessingType() string { return m.processingType }

// ResultQueue exposes the manager's result FIFO so the supervisor's result
// forwarder can drain it (spec.md §4.E: "Result shipping is delegated to
// the supervisor's result forwarder").
func (m *Manager) ResultQueue() *queue.Queue { return m.resultQueue }

// Enqueue pushes one ingested payload onto the manager's priority queue.
func (m *Manager) Enqueue(item []byte, priority queue.Priority) {
	if priority == queue.High {
		m.lpq.PushHigh(item)
	} else {
		m.lpq.PushLow(item)
	}
}

// Start spawns the monitoring reporter, then N workers of the configured
// flavor (spec.md §4.E). threadHook is used in thread mode; childHook is
// accepted for symmetry but is only ever invoked inside the re-exec'd
// subprocess a ProcessWorker spawns, never by this call directly.
func (m *Manager) Start(monitoringSender monitor.Sender, reportInterval time.Duration, threadHook worker.ProcessFunc, childHook worker.ChildProcessFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reporter = monitor.NewReporter(m.fullname, m.point, monitoringSender, reportInterval)
	m.reporter.Start()

	m.workers = make([]worker.Worker, 0, m.numWorkers)
	for i := 0; i < m.numWorkers; i++ {
		var w worker.Worker
		if m.processingType == "process" {
			w = worker.NewProcessWorker(i, m.fullname, m.shmPath, m.maxWorkers, m.lpq, m.resultQueue, m.lpTimeout)
		} else {
			w = worker.NewThreadWorker(i, m.fullname, m.lpq, m.region, threadHook, m.lpTimeout)
		}
		w.Start()
		m.workers = append(m.workers, w)
	}

	m.status = StatusWaiting
	m.logger.Info().Int("workers", m.numWorkers).Str("mode", m.processingType).Msg("manager started")
}

// SetProcessData gates whether workers consume from the queues. In
// process mode this is a write into the shared region so it crosses the
// process boundary for free; in thread mode every worker reads the same
// in-process region, so one write suffices there too.
func (m *Manager) SetProcessData(v int32) {
	m.region.SetProcessData(v)
}

// SetState updates the manager's lifecycle state, mirroring the
// supervisor's own transition (spec.md §3).
func (m *Manager) SetState(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// RequestDirectedStatus asks the manager's reporter to publish one extra
// snapshot addressed to pidsource, implementing the getstatus command.
func (m *Manager) RequestDirectedStatus(pidsource string) {
	m.mu.RLock()
	reporter := m.reporter
	m.mu.RUnlock()
	if reporter != nil {
		reporter.RequestDirected(pidsource)
	}
}

// SetStopDataInput toggles whether ingestion continues enqueuing, mirrored
// here purely so the monitoring snapshot can report it.
func (m *Manager) SetStopDataInput(v bool) {
	m.mu.Lock()
	m.stopdata = v
	m.mu.Unlock()
}

// CleanQueue empties both ingress queues and the result queue. Per
// spec.md §4.E this is only meaningful in Waiting or right after stop.
func (m *Manager) CleanQueue() {
	m.lpq.Clean()
	m.resultQueue.Drain()
}

// QueuesEmpty reports whether the ingress and result queues have all
// fully drained, the condition a cleaned shutdown waits for.
func (m *Manager) QueuesEmpty() bool {
	return m.lpq.Empty() && m.resultQueue.Len() == 0
}

// Stop sets the stop event for every worker and stops the monitoring
// reporter. When fast is false and the manager runs in process mode, the
// queues are drained and closed first so no consumer blocks on them; in
// thread mode fast only decides whether Stop waits for the workers to
// exit (fast=true returns without waiting). Idempotent: a manager
// may be stopped once via a command path and once more by a caller that
// doesn't know that already happened (e.g. a deferred cleanup), and only
// the first call actually touches the workers.
func (m *Manager) Stop(fast bool) {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		workers := m.workers
		reporter := m.reporter
		m.status = StatusShutdown
		m.mu.Unlock()

		if !fast && m.processingType == "process" {
			m.logger.Info().Msg("closing queues before stop")
			m.lpq.Clean()
			m.resultQueue.Drain()
			m.lpq.Close()
			m.resultQueue.Close()
		}

		for _, w := range workers {
			if fast && m.processingType != "process" {
				go w.Stop()
			} else {
				w.Stop()
			}
		}
		if reporter != nil {
			reporter.Stop()
		}
		m.logger.Info().Bool("fast", fast).Msg("manager stopped")
	})
}

// --- monitor.StateSource ---

func (m *Manager) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.status)
}

func (m *Manager) StopDataInput() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stopdata
}

func (m *Manager) QueueSizes() (lp, hp, result int) {
	return m.lpq.LowLen(), m.lpq.HighLen(), m.resultQueue.Len()
}

func (m *Manager) NumWorkers() int { return m.numWorkers }

func (m *Manager) WorkerRate(workerID int) float32  { return m.region.Rate(workerID) }
func (m *Manager) WorkerCount(workerID int) float32 { return m.region.Count(workerID) }
func (m *Manager) WorkerStatus(workerID int) int    { return int(m.region.Status(workerID)) }
