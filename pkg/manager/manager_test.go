package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/dataprocessor/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	ch chan []byte
}

func newFakeSender() *fakeSender {
	return &fakeSender{ch: make(chan []byte, 16)}
}

func (f *fakeSender) Send(ctx context.Context, payload []byte) error {
	f.ch <- payload
	return nil
}

func newTestManager(t *testing.T, processingType string) *Manager {
	t.Helper()
	m, err := New(Config{
		SupervisorName: "t",
		Name:           "stage-a",
		ProcessingType: processingType,
		NumWorkers:     2,
		LPTimeout:      20 * time.Millisecond,
	})
	require.NoError(t, err)
	return m
}

func TestNewRejectsNonPositiveWorkerCount(t *testing.T) {
	_, err := New(Config{SupervisorName: "t", Name: "bad", ProcessingType: "thread", NumWorkers: 0})
	require.Error(t, err)
}

func TestManagerNameIsQualified(t *testing.T) {
	m := newTestManager(t, "thread")
	assert.Equal(t, "WorkerManager-t-stage-a", m.Name())
}

func TestManagerProcessesInStrictPriorityOrder(t *testing.T) {
	// A single worker: items claimed by different workers of one manager
	// have no ordering guarantee relative to each other.
	m, err := New(Config{
		SupervisorName: "t",
		Name:           "stage-a",
		ProcessingType: "thread",
		NumWorkers:     1,
		LPTimeout:      20 * time.Millisecond,
	})
	require.NoError(t, err)

	var processed processedLog
	hook := func(payload []byte, priority queue.Priority) error {
		processed.record(priority.String() + ":" + string(payload))
		return nil
	}

	m.Enqueue([]byte("lp1"), queue.Low)
	m.Enqueue([]byte("hp1"), queue.High)
	m.Enqueue([]byte("hp2"), queue.High)

	sender := newFakeSender()
	m.Start(sender, time.Hour, hook, nil)
	defer m.Stop(true)

	m.SetProcessData(1)

	require.Eventually(t, func() bool { return len(processed.snapshot()) == 3 }, time.Second, 5*time.Millisecond)

	got := processed.snapshot()
	assert.Equal(t, "high:hp1", got[0])
	assert.Equal(t, "high:hp2", got[1])
	assert.Equal(t, "low:lp1", got[2])
}

func TestManagerResetDrainsAllQueues(t *testing.T) {
	m := newTestManager(t, "thread")
	m.Enqueue([]byte("a"), queue.Low)
	m.Enqueue([]byte("b"), queue.High)
	m.resultQueue.Push([]byte("leftover-result"))

	m.CleanQueue()

	lp, hp, result := m.QueueSizes()
	assert.Equal(t, 0, lp)
	assert.Equal(t, 0, hp)
	assert.Equal(t, 0, result)
	assert.True(t, m.QueuesEmpty())
}

func TestManagerDirectedStatusReachesReporter(t *testing.T) {
	m := newTestManager(t, "thread")
	sender := newFakeSender()
	m.Start(sender, time.Hour, func([]byte, queue.Priority) error { return nil }, nil)
	defer m.Stop(true)

	m.RequestDirectedStatus("CLI-1")

	select {
	case payload := <-sender.ch:
		assert.Contains(t, string(payload), "CLI-1")
	case <-time.After(3 * time.Second): // a snapshot spends ~1s in its CPU probe
		t.Fatal("directed status snapshot was never published")
	}
}

func TestManagerStopIsCleanInThreadMode(t *testing.T) {
	m := newTestManager(t, "thread")
	sender := newFakeSender()
	m.Start(sender, time.Hour, func([]byte, queue.Priority) error { return nil }, nil)

	done := make(chan struct{})
	go func() {
		m.Stop(true)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return promptly")
	}
}

// processedLog is a tiny mutex-guarded string slice, used in place of a
// table-driven fixture since ordering (not just membership) is what these
// tests assert.
type processedLog struct {
	mu    sync.Mutex
	items []string
}

func (l *processedLog) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, s)
}

func (l *processedLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}
