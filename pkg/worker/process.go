//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly || solaris
// +build linux darwin freebsd netbsd openbsd dragonfly solaris

package worker

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/cuemby/dataprocessor/pkg/ipc"
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/cuemby/dataprocessor/pkg/shm"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ProcessWorker runs the worker loop inside a re-exec'd OS subprocess:
// process mode per spec.md §4.D. The parent pumps dequeued payloads to the
// child over a unix-domain socket (pkg/ipc) and forwards whatever results
// the child sends back onto the manager's result queue; both sides read
// and write the same file-backed shm.Region, so the monitoring point sees
// the child's rate/count/status exactly as it would a ThreadWorker's.
type ProcessWorker struct {
	id          int
	instanceID  string
	managerName string
	selfExe     string
	shmPath     string
	maxWorkers  int
	pq          *queue.PriorityQueue
	resultQueue *queue.Queue
	lpTimeout   time.Duration
	logger      zerolog.Logger

	cmd        *exec.Cmd
	parentConn *ipc.Conn
	stopCh     chan struct{}
	pumpDone   chan struct{}
	readDone   chan struct{}
}

// NewProcessWorker builds a process-mode worker. shmPath names the
// file-backed shared memory region the manager created with
// shm.CreateFileRegion; maxWorkers is that region's worker capacity, so the
// child can reopen it at the same layout. instanceID correlates this
// worker's log lines with its subprocess across a restart.
func NewProcessWorker(id int, managerName, shmPath string, maxWorkers int, pq *queue.PriorityQueue, resultQueue *queue.Queue, lpTimeout time.Duration) *ProcessWorker {
	instanceID := uuid.New().String()
	return &ProcessWorker{
		id:          id,
		instanceID:  instanceID,
		managerName: managerName,
		selfExe:     selfExePath(),
		shmPath:     shmPath,
		maxWorkers:  maxWorkers,
		pq:          pq,
		resultQueue: resultQueue,
		lpTimeout:   lpTimeout,
		logger:      workerLogger(managerName, id).With().Str("instance_id", instanceID).Logger(),
	}
}

func selfExePath() string {
	exe, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return exe
}

// ID returns the worker's index within its manager's pool.
func (w *ProcessWorker) ID() int { return w.id }

// Start spawns the subprocess and begins pumping and draining.
func (w *ProcessWorker) Start() {
	parent, child, err := ipc.NewSocketPair()
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to create worker socketpair")
		return
	}
	w.parentConn = ipc.NewConn(parent)

	childFile, err := ipc.NewConn(child).File()
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to extract worker socket fd")
		return
	}

	cmd := exec.Command(w.selfExe, "__process-worker",
		"--worker-id", strconv.Itoa(w.id),
		"--manager", w.managerName,
		"--shm-path", w.shmPath,
		"--max-workers", strconv.Itoa(w.maxWorkers),
		"--instance-id", w.instanceID,
	)
	cmd.ExtraFiles = []*os.File{childFile}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		w.logger.Error().Err(err).Msg("failed to start worker subprocess")
		return
	}
	w.cmd = cmd
	childFile.Close()
	w.logger.Info().Int("pid", cmd.Process.Pid).Msg("worker subprocess started")

	w.stopCh = make(chan struct{})
	w.pumpDone = make(chan struct{})
	w.readDone = make(chan struct{})

	go w.pump()
	go w.drain()
}

// Stop tells the subprocess to exit and waits for it to do so.
func (w *ProcessWorker) Stop() {
	if w.cmd == nil {
		return
	}
	close(w.stopCh)
	_ = w.parentConn.WriteMessage(ipc.Message{Kind: ipc.KindStop})
	<-w.pumpDone
	_ = w.cmd.Wait()
	<-w.readDone
	w.parentConn.Close()
}

// pump forwards dequeued payloads to the subprocess until told to stop.
func (w *ProcessWorker) pump() {
	defer close(w.pumpDone)
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}
		item, priority, ok := w.pq.Pop(w.lpTimeout)
		if !ok {
			continue
		}
		wirePriority := ipc.PriorityLow
		if priority == queue.High {
			wirePriority = ipc.PriorityHigh
		}
		if err := w.parentConn.WriteMessage(ipc.Message{Kind: ipc.KindData, Priority: wirePriority, Payload: item}); err != nil {
			w.logger.Error().Err(err).Msg("failed to forward payload to worker subprocess")
			return
		}
	}
}

// drain reads results back from the subprocess and enqueues them on the
// manager's result queue until the connection closes.
func (w *ProcessWorker) drain() {
	defer close(w.readDone)
	for {
		msg, err := w.parentConn.ReadMessage()
		if err != nil {
			return
		}
		if msg.Kind != ipc.KindResult {
			continue
		}
		w.resultQueue.Push(msg.Payload)
	}
}

// ChildProcessFunc is the process_data hook shape used inside a re-exec'd
// worker subprocess: unlike ProcessFunc, it returns the result payload (if
// any) directly, since a child has no shared-memory access to its
// manager's result queue and must ship results back over the wire.
type ChildProcessFunc func(payload []byte, priority queue.Priority) ([]byte, error)

// RunChild is the body of the re-exec'd subprocess: it opens the shared
// region at shmPath, reads data messages from conn, invokes process on
// each, and forwards whatever process emits back to the parent as result
// messages. It returns when conn is closed or a stop message arrives.
func RunChild(conn *ipc.Conn, workerID int, shmPath string, maxWorkers int, process ChildProcessFunc) error {
	region, err := shm.OpenFileRegion(shmPath, maxWorkers)
	if err != nil {
		return fmt.Errorf("worker: open shared region: %w", err)
	}
	defer region.Close()

	rate := newRateTracker(workerID, region, rateInterval, zerolog.Nop())
	rate.Start()
	defer rate.Stop()

	region.SetStatus(workerID, shm.StatusWaiting)

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			region.SetStatus(workerID, shm.StatusStopped)
			return nil
		}
		switch msg.Kind {
		case ipc.KindStop:
			region.SetStatus(workerID, shm.StatusStopped)
			return nil
		case ipc.KindData:
			priority := queue.Low
			if msg.Priority == ipc.PriorityHigh {
				priority = queue.High
			}
			region.SetStatus(workerID, shm.StatusProcessing)
			result, perr := safeProcessWithResult(process, msg.Payload, priority)
			if perr != nil {
				region.SetStatus(workerID, shm.StatusWaiting)
				continue
			}
			rate.recordProcessed()
			region.SetStatus(workerID, shm.StatusWaiting)
			if result != nil {
				_ = conn.WriteMessage(ipc.Message{Kind: ipc.KindResult, Priority: msg.Priority, Payload: result})
			}
		}
	}
}

func safeProcessWithResult(fn func([]byte, queue.Priority) ([]byte, error), payload []byte, priority queue.Priority) (result []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("process_data panicked: %v", r)
		}
	}()
	return fn(payload, priority)
}
