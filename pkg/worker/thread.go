package worker

import (
	"time"

	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/shm"
	"github.com/rs/zerolog"
)

// ThreadWorker runs the worker loop as a goroutine sharing the manager's
// address space: thread mode per spec.md §4.D, grounded in
// original_source/workers/WorkerProcess.py's run() loop.
type ThreadWorker struct {
	id        int
	pq        *queue.PriorityQueue
	region    *shm.Region
	process   ProcessFunc
	lpTimeout time.Duration
	rate      *rateTracker
	logger    zerolog.Logger

	stopCh chan struct{}
	done   chan struct{}
}

// NewThreadWorker builds a thread-mode worker. region must be shared with
// the manager (and every sibling worker) so the monitoring point can read
// everyone's rate, count, and status.
func NewThreadWorker(id int, managerName string, pq *queue.PriorityQueue, region *shm.Region, process ProcessFunc, lpTimeout time.Duration) *ThreadWorker {
	logger := workerLogger(managerName, id)
	return &ThreadWorker{
		id:        id,
		pq:        pq,
		region:    region,
		process:   process,
		lpTimeout: lpTimeout,
		rate:      newRateTracker(id, region, rateInterval, logger),
		logger:    logger,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// ID returns the worker's index within its manager's pool.
func (w *ThreadWorker) ID() int { return w.id }

// Start begins the worker loop and its rate timer in the background.
func (w *ThreadWorker) Start() {
	w.region.SetStatus(w.id, shm.StatusInitialising)
	w.rate.Start()
	go w.run()
}

// Stop signals the worker to exit at its next suspension point and waits
// for it to do so; it does not wait for any in-flight payload beyond the
// one currently being processed.
func (w *ThreadWorker) Stop() {
	close(w.stopCh)
	<-w.done
	w.rate.Stop()
}

func (w *ThreadWorker) run() {
	defer close(w.done)
	w.region.SetStatus(w.id, shm.StatusWaiting)

	for {
		select {
		case <-w.stopCh:
			w.region.SetStatus(w.id, shm.StatusStopped)
			return
		default:
		}

		if w.region.ProcessData() == 0 {
			w.region.SetStatus(w.id, shm.StatusWaiting)
			time.Sleep(idlePoll)
			continue
		}

		item, priority, ok := w.pq.Pop(w.lpTimeout)
		if !ok {
			continue
		}

		w.region.SetStatus(w.id, shm.StatusProcessing)
		if err := safeProcess(w.process, item, priority); err != nil {
			w.logger.Error().Err(err).Str("priority", priority.String()).Msg("process_data failed")
		}
		w.rate.recordProcessed()
	}
}
