package supervisor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/dataprocessor/pkg/config"
	"github.com/cuemby/dataprocessor/pkg/log"
	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.Init(log.Config{Level: log.ErrorLevel})
}

// fakeReceiver lets a test feed payloads to an ingestion loop without a
// real socket.
type fakeReceiver struct {
	mu     sync.Mutex
	items  [][]byte
	closed bool
}

func (f *fakeReceiver) push(item []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
}

func (f *fakeReceiver) Recv(ctx context.Context) ([]byte, error) {
	for {
		f.mu.Lock()
		if f.closed {
			f.mu.Unlock()
			return nil, context.Canceled
		}
		if len(f.items) > 0 {
			item := f.items[0]
			f.items = f.items[1:]
			f.mu.Unlock()
			return item, nil
		}
		f.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (f *fakeReceiver) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// fakeSender records every payload sent through it.
type fakeSender struct {
	mu      sync.Mutex
	sent    [][]byte
	failNth int // if > 0, the failNth call fails
	calls   int
}

func (f *fakeSender) Send(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failNth > 0 && f.calls == f.failNth {
		return errors.New("fake send failure")
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSender) Close() error { return nil }

func (f *fakeSender) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// newTestSupervisor builds a Supervisor with fake transport endpoints,
// bypassing New()'s real socket binds so tests run without a network.
func newTestSupervisor(t *testing.T, numWorkers []int) (*Supervisor, *fakeReceiver, *fakeReceiver, *fakeSender) {
	t.Helper()

	record := &config.Record{
		ProcessName:             "test",
		DataflowType:            "string",
		ProcessingType:          "thread",
		DataSocketType:          "pushpull",
		DataLPSocket:            "tcp://127.0.0.1:1",
		DataHPSocket:            "tcp://127.0.0.1:2",
		CommandSocket:           "tcp://127.0.0.1:3",
		MonitoringSocket:        "tcp://127.0.0.1:4",
		ManagerResultSocket:     make([]string, len(numWorkers)),
		ManagerResultSocketType: make([]string, len(numWorkers)),
		ManagerResultDataflow:   make([]string, len(numWorkers)),
		ManagerNumWorkers:       numWorkers,
	}
	for i := range record.ManagerResultSocket {
		record.ManagerResultSocket[i] = "none"
	}

	ctx, cancel := context.WithCancel(context.Background())
	lp := &fakeReceiver{}
	hp := &fakeReceiver{}
	cmd := &fakeReceiver{}
	mon := &fakeSender{}

	s := &Supervisor{
		name:         "test",
		fullname:     "Supervisor-test",
		record:       record,
		interval:     time.Hour,
		hooks:        DefaultHooks(),
		ctx:          ctx,
		cancel:       cancel,
		state:        StateInitialised,
		dataLP:       lp,
		dataHP:       hp,
		command:      cmd,
		monitoring:   mon,
		shutdownDone: make(chan struct{}),
		logger:       log.WithSupervisor("test"),
	}

	require.NoError(t, s.startManagers())
	s.startWorkers()
	s.stopCh = make(chan struct{})

	t.Cleanup(func() {
		for _, h := range s.managers {
			h.mgr.Stop(true)
		}
		cancel()
	})

	return s, lp, hp, mon
}

func TestCommandStartStopTogglesProcessing(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t, []int{1})

	s.CommandStart()
	assert.Equal(t, StateProcessing, s.State())

	s.CommandStop()
	assert.Equal(t, StateWaiting, s.State())
}

func TestCommandResetIgnoredOutsideProcessingOrWaiting(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t, []int{1})
	s.setState(StateShutdown)

	s.managers[0].mgr.Enqueue([]byte("x"), queue.Low)
	s.CommandReset()

	lp, _, _ := s.managers[0].mgr.QueueSizes()
	assert.Equal(t, 1, lp, "reset must be a no-op outside Processing/Waiting")
}

func TestCommandResetDrainsQueuesAndReturnsToWaiting(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t, []int{1})
	s.setState(StateProcessing)

	s.managers[0].mgr.Enqueue([]byte("a"), queue.Low)
	s.managers[0].mgr.Enqueue([]byte("b"), queue.High)

	s.CommandReset()

	lp, hp, result := s.managers[0].mgr.QueueSizes()
	assert.Equal(t, 0, lp)
	assert.Equal(t, 0, hp)
	assert.Equal(t, 0, result)
	assert.Equal(t, StateWaiting, s.State())
}

func TestIngestLoopRoutesStringPayloadToEveryManager(t *testing.T) {
	s, lp, _, _ := newTestSupervisor(t, []int{1, 1})
	s.wg.Add(1)
	go s.ingestLoop(lp, queue.Low, "lp")
	defer func() {
		lp.Close()
		close(s.stopCh)
		s.wg.Wait()
	}()

	lp.push([]byte("frame-1"))

	require.Eventually(t, func() bool {
		a, _, _ := s.managers[0].mgr.QueueSizes()
		b, _, _ := s.managers[1].mgr.QueueSizes()
		return a == 1 && b == 1
	}, time.Second, 5*time.Millisecond)
}

func TestIngestLoopPausesWhileStopDataInputSet(t *testing.T) {
	s, lp, _, _ := newTestSupervisor(t, []int{1})
	s.CommandStopData()

	s.wg.Add(1)
	go s.ingestLoop(lp, queue.Low, "lp")
	defer func() {
		lp.Close()
		close(s.stopCh)
		s.wg.Wait()
	}()

	lp.push([]byte("frame-1"))
	time.Sleep(30 * time.Millisecond)

	lpSize, _, _ := s.managers[0].mgr.QueueSizes()
	assert.Equal(t, 0, lpSize, "ingestion must not enqueue while stopdata is set")
}

func TestForwardOneDropsSilentlyWhenResultSocketIsNone(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t, []int{1})
	s.managers[0].mgr.ResultQueue().Push([]byte("result"))

	assert.NotPanics(t, func() { s.forwardOne(s.managers[0]) })
	assert.Equal(t, 0, s.managers[0].mgr.ResultQueue().Len())
}

func TestForwardOneSendsExactlyOneItemVerbatim(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t, []int{1})
	sender := &fakeSender{}
	s.managers[0].resultSender = sender

	s.managers[0].mgr.ResultQueue().Push([]byte("first"))
	s.managers[0].mgr.ResultQueue().Push([]byte("second"))

	s.forwardOne(s.managers[0])

	sent := sender.snapshot()
	require.Len(t, sent, 1, "a single sweep must forward exactly one item")
	assert.Equal(t, "first", string(sent[0]))
	assert.Equal(t, 1, s.managers[0].mgr.ResultQueue().Len(), "the second item must remain queued, not be silently dequeued")
}

func TestCommandGetStatusRequestsDirectedSnapshot(t *testing.T) {
	s, _, _, mon := newTestSupervisor(t, []int{1})
	s.CommandGetStatus("CLI-7")

	require.Eventually(t, func() bool {
		for _, payload := range mon.snapshot() {
			if string(payload) != "" {
				return true
			}
		}
		return false
	}, 3*time.Second, 5*time.Millisecond) // a snapshot spends ~1s in its CPU probe
}

func TestCleanedShutdownWaitsForQueueDrain(t *testing.T) {
	s, _, _, _ := newTestSupervisor(t, []int{1})
	s.setState(StateProcessing)
	s.managers[0].mgr.SetProcessData(1)
	s.managers[0].mgr.ResultQueue().Push([]byte("leftover"))

	// The result forwarder is what empties the result queue; stopAll stops it.
	s.wg.Add(1)
	go s.resultLoop()

	done := make(chan struct{})
	go func() {
		s.CommandCleanedShutdown()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	lp, hp, result := s.managers[0].mgr.QueueSizes()
	assert.Equal(t, 0, lp)
	assert.Equal(t, 0, hp)
	assert.True(t, result >= 0)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanedshutdown did not complete once queues drained")
	}
	assert.Equal(t, StateShutdown, s.State())
}
