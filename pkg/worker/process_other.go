//go:build windows

package worker

import (
	"time"

	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/rs/zerolog"
)

// ProcessWorker is unavailable on this platform: process mode relies on
// syscall.Socketpair(AF_UNIX, ...), which pkg/ipc does not implement here.
// Start logs an error and runs nothing; there is no fallback to thread
// mode, so a manager configured with processing_type=process has no
// working workers on this platform.
type ProcessWorker struct {
	id     int
	logger zerolog.Logger
}

func NewProcessWorker(id int, managerName, shmPath string, maxWorkers int, pq *queue.PriorityQueue, resultQueue *queue.Queue, lpTimeout time.Duration) *ProcessWorker {
	return &ProcessWorker{id: id, logger: workerLogger(managerName, id)}
}

func (w *ProcessWorker) ID() int { return w.id }

func (w *ProcessWorker) Start() {
	w.logger.Error().Msg("process-mode workers are not supported on this platform")
}

func (w *ProcessWorker) Stop() {}
