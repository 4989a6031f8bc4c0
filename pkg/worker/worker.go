package worker

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cuemby/dataprocessor/pkg/log"
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/shm"
	"github.com/rs/zerolog"
)

// idlePoll is how long a worker sleeps when the manager's processdata gate
// is closed, so the loop yields instead of spinning.
const idlePoll = time.Millisecond

// rateInterval is the cadence of the processing-rate timer (spec.md §4.D,
// §5: "the 10-second rate timer").
const rateInterval = 10 * time.Second

// ProcessFunc is the user-overridable process_data hook: it receives one
// dequeued payload and the priority class it was dequeued under.
type ProcessFunc func(payload []byte, priority queue.Priority) error

// Worker is anything that can be started and stopped and identifies
// itself by a stable integer id, matching spec.md §4.D's worker-pool
// lifecycle.
type Worker interface {
	Start()
	Stop()
	ID() int
}

// safeProcess invokes fn and recovers a panic, converting it to an error so
// a single bad payload never kills the worker loop (spec.md §4.D: "process_data
// hook with recover-on-error").
func safeProcess(fn ProcessFunc, payload []byte, priority queue.Priority) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("process_data panicked: %v", r)
		}
	}()
	return fn(payload, priority)
}

// rateTracker periodically recomputes a worker's processing rate and
// publishes it, along with its running total, into a shared region. It
// mirrors original_source/workers/WorkerProcess.py's start_timer/calcdatarate
// pair but uses a ticker instead of a rescheduled one-shot timer.
type rateTracker struct {
	workerID int
	region   *shm.Region
	interval time.Duration
	count    int64 // atomic, reset each tick
	lastTick time.Time
	logger   zerolog.Logger

	stopCh chan struct{}
	done   chan struct{}
}

func newRateTracker(workerID int, region *shm.Region, interval time.Duration, logger zerolog.Logger) *rateTracker {
	if interval <= 0 {
		interval = rateInterval
	}
	return &rateTracker{
		workerID: workerID,
		region:   region,
		interval: interval,
		lastTick: time.Now(),
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (rt *rateTracker) recordProcessed() {
	atomic.AddInt64(&rt.count, 1)
}

func (rt *rateTracker) Start() {
	go rt.run()
}

// Stop cancels the rate timer; per spec.md §5 this happens unconditionally
// on worker stop.
func (rt *rateTracker) Stop() {
	close(rt.stopCh)
	<-rt.done
}

func (rt *rateTracker) run() {
	defer close(rt.done)

	ticker := time.NewTicker(rt.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rt.tick()
		case <-rt.stopCh:
			return
		}
	}
}

func (rt *rateTracker) tick() {
	n := atomic.SwapInt64(&rt.count, 0)
	now := time.Now()
	elapsed := now.Sub(rt.lastTick).Seconds()
	rt.lastTick = now

	var rate float32
	if elapsed > 0 {
		rate = float32(float64(n) / elapsed)
	}

	rt.region.SetRate(rt.workerID, rate)
	total := rt.region.AddCount(rt.workerID, float32(n))
	rt.logger.Debug().
		Float32("rate_hz", rate).
		Float32("total", total).
		Msg("worker processing rate updated")
}

func workerLogger(managerName string, workerID int) zerolog.Logger {
	return log.WithWorker(managerName, workerID)
}
